package speech

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const pcmFormat = 1

var (
	ErrInvalidWAV = errors.New("not a WAV file")
	ErrFormat     = errors.New("audio must be mono 16-bit PCM WAV")
	ErrNoAudio    = errors.New("audio file has no samples")
)

// ReadWAV decodes a mono 16-bit PCM WAV recording.
func ReadWAV(r io.ReadSeeker) (*audio.IntBuffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if d.WavAudioFormat != pcmFormat || d.NumChans != 1 || d.BitDepth != 16 {
		return nil, fmt.Errorf("%w: got format %d, %d channels, %d bits",
			ErrFormat, d.WavAudioFormat, d.NumChans, d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if len(buf.Data) == 0 {
		return nil, ErrNoAudio
	}
	buf.Format = &audio.Format{NumChannels: 1, SampleRate: int(d.SampleRate)}
	buf.SourceBitDepth = 16
	return buf, nil
}
