package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/bz888/solver/internal/language"
	"github.com/bz888/solver/internal/logger"
	"github.com/google/uuid"
)

// Mode selects how a successful response body is read.
type Mode string

const (
	// ModeAuto decodes JSON when the response says it is JSON and streams
	// otherwise.
	ModeAuto   Mode = "auto"
	ModeStream Mode = "stream"
	ModeJSON   Mode = "json"
)

func (m Mode) accept() string {
	switch m {
	case ModeStream:
		return "text/plain"
	case ModeJSON:
		return "application/json"
	default:
		return "text/plain, application/json;q=0.9"
	}
}

// Request is one solve call as sent to the service.
type Request struct {
	Task     string
	Language language.Language
}

type Options struct {
	Endpoint   string
	Mode       Mode
	StrictUTF8 bool
	HTTPClient *http.Client
}

// Fetcher sends tasks to the solution service. It keeps no per-call state
// and may be shared.
type Fetcher struct {
	endpoint string
	mode     Mode
	strict   bool
	http     *http.Client
	log      *logger.Logger
}

func NewFetcher(opts Options) (*Fetcher, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q", opts.Endpoint)
	}

	mode := opts.Mode
	switch mode {
	case "":
		mode = ModeAuto
	case ModeAuto, ModeStream, ModeJSON:
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	client := opts.HTTPClient
	if client == nil {
		// no overall timeout: a streamed solution can take minutes
		client = &http.Client{}
	}

	return &Fetcher{
		endpoint: u.String(),
		mode:     mode,
		strict:   opts.StrictUTF8,
		http:     client,
		log:      logger.NewLogger("fetcher"),
	}, nil
}

func (f *Fetcher) Mode() Mode {
	return f.mode
}

// Solve sends task in the language selected in st and drives st through
// loading, streaming and a final complete or error state. The returned
// string is the final text on success and "" on failure. st always ends
// with Loading cleared.
func (f *Fetcher) Solve(ctx context.Context, st *State, task string) (result string, err error) {
	req := Request{Task: task, Language: st.Language()}
	st.begin()
	defer func() {
		if err != nil {
			result = ""
			f.log.Error("solve failed: ", err)
		}
		st.finish(result, err)
	}()

	f.log.Infof("solving %d bytes of task in %s", len(req.Task), req.Language)

	resp, err := f.send(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", f.requestFailed(resp)
	}

	if f.wantsJSON(resp) {
		return decodeJSON(resp.Body)
	}
	return readStream(resp.Body, f.strict, st.partial)
}

func (f *Fetcher) send(ctx context.Context, req Request) (*http.Response, error) {
	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, body)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", f.mode.accept())
	httpReq.Header.Set("X-Request-Id", requestID)

	resp, err := f.http.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	f.log.Infof("request %s: %s", requestID, resp.Status)
	return resp, nil
}

// requestFailed reads what it can of an error response. A body cut short is
// kept and marked as truncated.
func (f *Fetcher) requestFailed(resp *http.Response) *RequestFailedError {
	data, err := io.ReadAll(resp.Body)
	body := strings.TrimSpace(string(data))
	if err != nil {
		f.log.Warn("read error response: ", err)
		body = strings.TrimSpace(fmt.Sprintf("%s (body truncated: %v)", body, err))
	}
	return &RequestFailedError{Status: resp.StatusCode, Body: body}
}

func (f *Fetcher) wantsJSON(resp *http.Response) bool {
	switch f.mode {
	case ModeJSON:
		return true
	case ModeStream:
		return false
	}
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// encodeForm writes the task and programming_language fields as
// multipart/form-data.
func encodeForm(req Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("task", req.Task); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("programming_language", req.Language.String()); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func decodeJSON(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return NoSolution, nil
	}

	var out UploadResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", &DecodeError{Err: err}
	}
	if out.LLMResponse == nil || *out.LLMResponse == "" {
		return NoSolution, nil
	}
	return *out.LLMResponse, nil
}
