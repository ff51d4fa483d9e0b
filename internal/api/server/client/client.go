package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to a model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator turns a conversation into text, delivering it to fn piece by
// piece as the model produces it.
type Generator interface {
	Name() string
	Models(ctx context.Context) ([]string, error)
	Generate(ctx context.Context, messages []Message, fn func(string) error) error
}

// Client represents a client for the API
type Client struct {
	base      *url.URL
	http      *http.Client
	modelsUrl *url.URL
	chatUrl   *url.URL
}

// ClientConfig holds the configuration for the client
type ClientConfig struct {
	Scheme     string
	Host       string
	ModelsPath string
	ChatPath   string
}

// NewClient creates a new API client with configurable base URL and endpoints
func NewClient(config ClientConfig) *Client {
	baseURL := &url.URL{Scheme: config.Scheme, Host: config.Host}
	return &Client{
		base:      baseURL,
		http:      &http.Client{},
		modelsUrl: baseURL.ResolveReference(&url.URL{Path: config.ModelsPath}),
		chatUrl:   baseURL.ResolveReference(&url.URL{Path: config.ChatPath}),
	}
}

func (c *Client) GetModelsURL() string {
	return c.modelsUrl.String()
}

func (c *Client) GetChatURL() string {
	return c.chatUrl.String()
}

// splitHost accepts "host:port" or a full URL and returns scheme and host.
func splitHost(raw, defaultScheme string) (string, string) {
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Scheme, u.Host
	}
	return defaultScheme, strings.TrimRight(raw, "/")
}

// scanLines feeds every line of body to fn. Model responses can carry long
// lines, so the buffer grows to 512 KB.
func scanLines(body io.Reader, fn func([]byte) error) error {
	scanner := bufio.NewScanner(body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 512*1024)
	for scanner.Scan() {
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

// errStop ends a scan early without being an error.
var errStop = errors.New("stop")

func readError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("received non-200 response: %d, error: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
