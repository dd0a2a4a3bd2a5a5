package ui

import (
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/voices/internal/voices"
)

// VoiceLoader is the part of voices.Loader the browser drives.
type VoiceLoader interface {
	Activate()
	Refresh()
	State() voices.State
}

// Loader message types for the Bubble Tea command pattern

// voicesStateMsg carries a snapshot of the loader's state cells.
type voicesStateMsg voices.State

// clipboardMsg is sent when a copy to the clipboard completes.
type clipboardMsg struct {
	what string
	err  error
}

type statusMessageTimeoutMsg struct{}

// activateCmd activates the loader and reports the resulting state.
func activateCmd(loader VoiceLoader) tea.Cmd {
	return func() tea.Msg {
		loader.Activate()
		return voicesStateMsg(loader.State())
	}
}

// refreshCmd re-runs the loader's fetch.
func refreshCmd(loader VoiceLoader) tea.Cmd {
	return func() tea.Msg {
		loader.Refresh()
		return voicesStateMsg(loader.State())
	}
}

// copyCmd writes text to the system clipboard.
func copyCmd(what, text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{what: what, err: clipboard.WriteAll(text)}
	}
}

func statusMessageTimeoutCmd() tea.Cmd {
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{}
	})
}
