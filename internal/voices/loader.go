package voices

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/xid"
)

// Phase is the loader's position in its two-state machine.
type Phase int

const (
	// PhaseIdle means no fetch is outstanding.
	PhaseIdle Phase = iota
	// PhaseFetching means a fetch is outstanding.
	PhaseFetching
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	default:
		return "unknown"
	}
}

// State is a snapshot of the loader's state cells.
type State struct {
	Voices  []Voice // server order; empty until the first success
	Loading bool    // true while a fetch is outstanding
	Error   string  // last failure's message, empty when there is none
	Version uint64  // incremented on every mutation
}

// Phase derives the state machine position from the loading flag.
func (s State) Phase() Phase {
	if s.Loading {
		return PhaseFetching
	}
	return PhaseIdle
}

// HasError reports whether the error cell is set.
func (s State) HasError() bool {
	return s.Error != ""
}

func (s State) clone() State {
	s.Voices = slices.Clone(s.Voices)
	return s
}

type subscriber struct {
	id int
	fn func(State)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger failures and diagnostics are written to.
func WithLogger(logger *log.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loader holds the voice listing state of one owning UI unit.
//
// Every Refresh runs independently in its own goroutine. Overlapping
// refreshes are neither deduplicated nor ordered: whichever completes last
// determines the final state, even if it was started first.
type Loader struct {
	fetcher Fetcher
	logger  *log.Logger

	mu      sync.Mutex
	state   State
	subs    []subscriber
	nextSub int
	closed  bool

	activate sync.Once
	inflight sync.WaitGroup
}

// NewLoader returns a loader in its initial state: no voices, no error and
// loading set, since activation is expected to follow.
func NewLoader(f Fetcher, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetcher: f,
		logger:  log.Default(),
		state: State{
			Voices:  []Voice{},
			Loading: true,
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Activate runs the initial fetch. Only the first call has an effect.
func (l *Loader) Activate() {
	l.activate.Do(l.Refresh)
}

// Refresh re-runs fetch-and-populate. It returns once loading is set and
// the error cleared; the fetch itself completes in the background and its
// outcome is only visible through the state cells.
func (l *Loader) Refresh() {
	if !l.commit(func(s *State) {
		s.Loading = true
		s.Error = ""
	}) {
		l.logger.Debug("Ignoring refresh of closed voice loader")
		return
	}

	l.inflight.Add(1)
	go l.fetchAndPopulate(xid.New().String())
}

func (l *Loader) fetchAndPopulate(id string) {
	defer l.inflight.Done()

	start := time.Now()
	l.logger.Debug("Fetching voices", "fetch", id)

	vs, err := l.fetcher.FetchVoices(WithRequestID(context.Background(), id))
	if err != nil {
		l.logger.Error("Error fetching voices", "fetch", id, "err", err)
	}

	applied := l.commit(func(s *State) {
		if err != nil {
			s.Error = ErrorMessage(err)
		} else {
			if vs == nil {
				vs = []Voice{}
			}
			s.Voices = vs
		}
		s.Loading = false
	})

	switch {
	case !applied:
		l.logger.Debug("Dropping voices fetched after close", "fetch", id)
	case err == nil:
		l.logger.Debug("Fetched voices", "fetch", id, "count", len(vs), "took", time.Since(start))
	}
}

// commit applies mutate under the lock and notifies subscribers with the
// resulting snapshot. It reports false if the loader has been closed.
func (l *Loader) commit(mutate func(*State)) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	mutate(&l.state)
	l.state.Version++
	snapshot := l.state.clone()
	subs := slices.Clone(l.subs)
	l.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snapshot)
	}
	return true
}

// State returns a snapshot of the state cells.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.clone()
}

// Voices returns the current voice listing.
func (l *Loader) Voices() []Voice {
	return l.State().Voices
}

// Loading reports whether a fetch is outstanding.
func (l *Loader) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Loading
}

// Err returns the last failure's message, or the empty string.
func (l *Loader) Err() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Error
}

// Subscribe registers fn to be called with a snapshot after every state
// change. Calls happen on the goroutine that made the change, outside the
// loader's lock. The returned function removes the subscription.
func (l *Loader) Subscribe(fn func(State)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return func() {}
	}

	id := l.nextSub
	l.nextSub++
	l.subs = append(l.subs, subscriber{id: id, fn: fn})

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.subs = slices.DeleteFunc(l.subs, func(s subscriber) bool { return s.id == id })
	}
}

// Wait blocks until every fetch started before the call has completed.
func (l *Loader) Wait() {
	l.inflight.Wait()
}

// Close tears the loader down. Subscribers are dropped and fetches that
// complete afterwards leave the state untouched. In-flight requests are not
// cancelled.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.subs = nil
}

type requestIDKey struct{}

// WithRequestID returns a context carrying a request id for the fetch.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id carried by ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
