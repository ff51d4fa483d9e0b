package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var ErrEmptyPage = errors.New("could not retrieve page content")

// Page is the captured content of the page being solved.
type Page struct {
	Origin string
	Title  string
	Markup string
}

// Source produces the task text for a solve request.
type Source interface {
	Content(ctx context.Context) (Page, error)
}

// FileSource reads markup from a file, or from stdin when Path is "-".
type FileSource struct {
	Path    string
	Compact bool
	Stdin   io.Reader
}

func (s FileSource) Content(ctx context.Context) (Page, error) {
	var (
		data []byte
		err  error
	)
	if s.Path == "-" {
		in := s.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(s.Path)
	}
	if err != nil {
		return Page{}, fmt.Errorf("read page %s: %w", s.Path, err)
	}
	return build(s.Path, data, s.Compact)
}

// URLSource fetches the page over HTTP.
type URLSource struct {
	URL     string
	Compact bool
	Client  *http.Client
}

func (s URLSource) Content(ctx context.Context) (Page, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, fmt.Errorf("fetch page: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("fetch page: %w", err)
	}
	return build(s.URL, data, s.Compact)
}

// TextSource is a problem statement typed by the user. It is sent as-is.
type TextSource struct {
	Text string
}

func (s TextSource) Content(context.Context) (Page, error) {
	if strings.TrimSpace(s.Text) == "" {
		return Page{}, ErrEmptyPage
	}
	return Page{Origin: "text", Markup: s.Text}, nil
}

// NewSource picks a source for a path or URL. An empty location yields nil.
func NewSource(location string, compact bool) Source {
	switch {
	case location == "":
		return nil
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return URLSource{URL: location, Compact: compact}
	default:
		return FileSource{Path: location, Compact: compact}
	}
}

func build(origin string, data []byte, compact bool) (Page, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Page{}, ErrEmptyPage
	}
	p := Page{
		Origin: origin,
		Title:  Title(data),
		Markup: string(data),
	}
	if compact {
		md, err := ToMarkdown(data)
		if err != nil {
			return Page{}, fmt.Errorf("compact page: %w", err)
		}
		if strings.TrimSpace(md) != "" {
			p.Markup = md
		}
	}
	return p, nil
}
