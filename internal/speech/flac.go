package speech

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
	"github.com/orcaman/writerseeker"
)

const blockSize = 4096

// EncodeFLAC encodes a mono 16-bit buffer as a FLAC stream with verbatim
// subframes. The stream info is patched in place once all frames are
// written, so the output is built in a seekable in-memory buffer.
func EncodeFLAC(buf *audio.IntBuffer) ([]byte, error) {
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, ErrNoAudio
	}
	if buf.Format.NumChannels != 1 {
		return nil, ErrFormat
	}
	sampleRate := uint32(buf.Format.SampleRate)

	samples := make([]int32, len(buf.Data))
	sum := md5.New()
	raw := make([]byte, 2)
	for i, v := range buf.Data {
		samples[i] = int32(int16(v))
		binary.LittleEndian.PutUint16(raw, uint16(int16(v)))
		sum.Write(raw)
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  16,
		BlockSizeMax:  blockSize,
		SampleRate:    sampleRate,
		NChannels:     1,
		BitsPerSample: 16,
		NSamples:      uint64(len(samples)),
	}
	copy(info.MD5sum[:], sum.Sum(nil))

	out := &writerseeker.WriterSeeker{}
	enc, err := flac.NewEncoder(out, info)
	if err != nil {
		return nil, fmt.Errorf("create flac encoder: %w", err)
	}

	for num, start := 0, 0; start < len(samples); num, start = num+1, start+blockSize {
		end := min(start+blockSize, len(samples))
		block := samples[start:end]
		f := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         uint16(len(block)),
				SampleRate:        sampleRate,
				Channels:          frame.ChannelsMono,
				BitsPerSample:     16,
				Num:               uint64(num),
			},
			Subframes: []*frame.Subframe{{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   block,
				NSamples:  len(block),
			}},
		}
		if err := enc.WriteFrame(f); err != nil {
			return nil, errors.Join(fmt.Errorf("write flac frame %d: %w", num, err), enc.Close())
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close flac encoder: %w", err)
	}

	data, err := io.ReadAll(out.Reader())
	if err != nil {
		return nil, fmt.Errorf("read flac data: %w", err)
	}
	return data, nil
}
