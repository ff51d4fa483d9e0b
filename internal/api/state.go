package api

import (
	"sync"

	"github.com/bz888/solver/internal/language"
)

const (
	// NoSolution replaces an empty result.
	NoSolution = "// No solution generated."
	// LoadingText is shown until the first byte of a solution arrives.
	LoadingText = "Generating solution..."
	errorPrefix = "Error generating solution: "
)

type Phase int

const (
	Idle Phase = iota
	Loading
	Streaming
	Complete
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Streaming:
		return "streaming"
	case Complete:
		return "complete"
	case Failed:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is what a Display renders.
type Snapshot struct {
	Phase   Phase
	Text    string
	Loading bool
	Err     error
}

// Display receives every state transition, in order.
type Display interface {
	Render(Snapshot)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(Snapshot)

func (f DisplayFunc) Render(s Snapshot) { f(s) }

// State is the per-session view state: the selected language and what is
// currently on screen. It is passed explicitly to Fetcher.Solve.
type State struct {
	mu       sync.Mutex
	renderMu sync.Mutex
	language language.Language
	snap     Snapshot
	display  Display
}

func NewState(lang language.Language, display Display) *State {
	if display == nil {
		display = DisplayFunc(func(Snapshot) {})
	}
	return &State{language: lang, display: display}
}

func (s *State) Language() language.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *State) SetLanguage(lang language.Language) {
	s.mu.Lock()
	s.language = lang
	s.mu.Unlock()
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *State) begin() {
	s.set(Snapshot{Phase: Loading, Text: LoadingText, Loading: true})
}

func (s *State) partial(text string) {
	s.set(Snapshot{Phase: Streaming, Text: text, Loading: true})
}

// finish is the single exit transition; it always clears Loading.
func (s *State) finish(result string, err error) {
	if err != nil {
		s.set(Snapshot{Phase: Failed, Text: errorPrefix + err.Error(), Err: err})
		return
	}
	s.set(Snapshot{Phase: Complete, Text: result})
}

// set stores the snapshot and renders it. renderMu keeps renders in
// transition order without holding mu while the display works.
func (s *State) set(snap Snapshot) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.display.Render(snap)
}
