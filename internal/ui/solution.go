package ui

import (
	"github.com/bz888/solver/internal/api"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	titleIdle    = "Solution"
	titleLoading = "Solution [generating…]"
	titleFailed  = "Solution [failed]"
)

// solutionView renders State snapshots. Render may be called from any
// goroutine; queue hands the update to the UI goroutine.
type solutionView struct {
	view  *tview.TextView
	queue func(func())
}

func newSolutionView(queue func(func())) *solutionView {
	view := tview.NewTextView().
		SetDynamicColors(false).
		SetRegions(false).
		SetWordWrap(true).
		SetScrollable(true)
	view.SetTitle(titleIdle).SetBorder(true)
	view.SetText(welcome)
	return &solutionView{view: view, queue: queue}
}

func (s *solutionView) Render(snap api.Snapshot) {
	s.queue(func() {
		s.apply(snap)
	})
}

func (s *solutionView) apply(snap api.Snapshot) {
	s.view.SetTitle(titleFor(snap))
	if snap.Phase == api.Failed {
		s.view.SetTextColor(tcell.ColorRed)
	} else {
		s.view.SetTextColor(tview.Styles.PrimaryTextColor)
	}
	s.view.SetText(snap.Text)
	if snap.Phase == api.Streaming {
		s.view.ScrollToEnd()
	} else {
		s.view.ScrollToBeginning()
	}
}

// show replaces the content with a message. Only call it on the UI goroutine.
func (s *solutionView) show(text string) {
	s.apply(api.Snapshot{Phase: api.Idle, Text: text})
}

func titleFor(snap api.Snapshot) string {
	switch {
	case snap.Loading:
		return titleLoading
	case snap.Phase == api.Failed:
		return titleFailed
	default:
		return titleIdle
	}
}
