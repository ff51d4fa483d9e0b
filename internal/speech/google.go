package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bz888/solver/internal/logger"
)

const DefaultGoogleEndpoint = "http://www.google.com/speech-api/v2/recognize"

var ErrNoTranscript = errors.New("no transcript in recogniser response")

// Transcriber turns a FLAC recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, flacData []byte, sampleRate int) (string, error)
}

type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type Result struct {
	Alternative []Alternative `json:"alternative"`
	Final       bool          `json:"final"`
}

type Response struct {
	Result []Result `json:"result"`
}

// GoogleClient talks to the Google speech recogniser used by Chromium.
type GoogleClient struct {
	endpoint string
	key      string
	lang     string
	http     *http.Client
	log      *logger.Logger
}

func NewGoogleClient(endpoint, key, lang string) *GoogleClient {
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}
	if lang == "" {
		lang = "en-US"
	}
	return &GoogleClient{
		endpoint: endpoint,
		key:      key,
		lang:     lang,
		http:     &http.Client{},
		log:      logger.NewLogger("speech"),
	}
}

func (g *GoogleClient) Transcribe(ctx context.Context, flacData []byte, sampleRate int) (string, error) {
	params := url.Values{}
	params.Set("client", "chromium")
	params.Set("lang", g.lang)
	params.Set("key", g.key)
	params.Set("pFilter", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"?"+params.Encode(), bytes.NewReader(flacData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", fmt.Sprintf("audio/x-flac; rate=%d", sampleRate))

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send recogniser request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read recogniser response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recogniser: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	best, err := parseResponse(string(body))
	if err != nil {
		return "", err
	}
	g.log.Infof("transcribed %d bytes of audio, confidence %.2f", len(flacData), best.Confidence)
	return best.Transcript, nil
}

// parseResponse picks the most confident alternative of the first non-empty
// result. The recogniser answers with one JSON object per line and the
// first is usually empty.
func parseResponse(text string) (Alternative, error) {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var response Response
		if err := json.Unmarshal([]byte(line), &response); err != nil {
			return Alternative{}, fmt.Errorf("decode recogniser response: %w", err)
		}
		if len(response.Result) == 0 {
			continue
		}
		return bestHypothesis(response.Result[0].Alternative)
	}
	return Alternative{}, ErrNoTranscript
}

func bestHypothesis(alternatives []Alternative) (Alternative, error) {
	best := Alternative{Confidence: -1}
	for _, alternative := range alternatives {
		if alternative.Confidence > best.Confidence {
			best = alternative
		}
	}
	if best.Transcript == "" {
		return Alternative{}, ErrNoTranscript
	}
	return best, nil
}
