package page

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bz888/solver/internal/speech"
)

// AudioSource transcribes a spoken problem statement from a mono 16-bit
// WAV recording.
type AudioSource struct {
	Path        string
	Transcriber speech.Transcriber
}

func (s AudioSource) Content(ctx context.Context) (Page, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return Page{}, fmt.Errorf("open audio %s: %w", s.Path, err)
	}
	defer f.Close()

	buf, err := speech.ReadWAV(f)
	if err != nil {
		return Page{}, fmt.Errorf("read audio %s: %w", s.Path, err)
	}
	data, err := speech.EncodeFLAC(buf)
	if err != nil {
		return Page{}, fmt.Errorf("encode audio %s: %w", s.Path, err)
	}

	text, err := s.Transcriber.Transcribe(ctx, data, buf.Format.SampleRate)
	if err != nil {
		return Page{}, fmt.Errorf("transcribe %s: %w", s.Path, err)
	}
	if strings.TrimSpace(text) == "" {
		return Page{}, ErrEmptyPage
	}
	return Page{Origin: s.Path, Markup: text}, nil
}
