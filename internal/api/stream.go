package api

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const chunkSize = 4096

// readStream decodes body as UTF-8 and calls emit with the accumulated text
// after every chunk. A rune split across reads is held back until it is
// complete. Invalid bytes become U+FFFD unless strict is set, in which case
// they fail the read with a DecodeError.
func readStream(body io.Reader, strict bool, emit func(string)) (string, error) {
	var t transform.Transformer = unicode.UTF8.NewDecoder()
	if strict {
		t = encoding.UTF8Validator
	}
	r := transform.NewReader(body, t)

	var (
		received strings.Builder
		chunks   int
		buf      = make([]byte, chunkSize)
	)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunks++
			received.Write(buf[:n])
			emit(received.String())
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, encoding.ErrInvalidUTF8) {
			return "", &DecodeError{Err: err}
		}
		if err != nil {
			return "", &NetworkError{Err: err}
		}
	}

	if chunks == 0 {
		return NoSolution, nil
	}
	return received.String(), nil
}
