// Package voices loads the voice listing served by a backend at
// /api/voices and exposes it as observable state for user interfaces.
//
// A Loader owns three state cells (the voices, a loading flag and the last
// error message) and one operation, fetch-and-populate, which runs once when
// the Loader is activated and again on every Refresh. Failures never reach
// the caller of Refresh; they are surfaced through the error cell and logged.
package voices
