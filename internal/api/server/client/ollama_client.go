package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bz888/solver/internal/logger"
)

// OllamaClient represents a client for the Ollama API
type OllamaClient struct {
	Client
	model       string
	temperature float64
	log         *logger.Logger
}

// NewOllamaClient creates a new Ollama API client. host is "host:port" or a
// full URL.
func NewOllamaClient(host, model string, temperature float64) *OllamaClient {
	scheme, h := splitHost(host, "http")
	return &OllamaClient{
		Client: *NewClient(ClientConfig{
			Scheme:     scheme,
			Host:       h,
			ModelsPath: "/api/tags",
			ChatPath:   "/api/chat",
		}),
		model:       model,
		temperature: temperature,
		log:         logger.NewLogger("ollama"),
	}
}

type OllamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  OllamaOptions `json:"options"`
}

type OllamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type OllamaAPIResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

type ModelsResponse struct {
	Models []OllamaModel `json:"models"`
}

type OllamaModel struct {
	Name       string       `json:"name"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details"`
}

type Families []string

// ModelDetails Details represents the details of a model.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          Families `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

func (c *OllamaClient) Name() string {
	return "ollama/" + c.model
}

func (c *OllamaClient) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.GetModelsURL(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("failed to fetch data: " + resp.Status)
	}

	var response ModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	names := make([]string, len(response.Models))
	for i, model := range response.Models {
		names[i] = model.Name
	}
	return names, nil
}

func (c *OllamaClient) Generate(ctx context.Context, messages []Message, fn func(string) error) error {
	req := &OllamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
		Options:  OllamaOptions{Temperature: c.temperature},
	}
	return c.stream(ctx, req, func(bts []byte) error {
		var apiResp OllamaAPIResponse
		if err := json.Unmarshal(bts, &apiResp); err != nil {
			c.log.Error("Failed to unmarshal response: ", err)
			c.log.Error("Raw response data: ", string(bts))
			return err
		}
		if apiResp.Error != "" {
			return errors.New(apiResp.Error)
		}
		if apiResp.Message.Content != "" {
			if err := fn(apiResp.Message.Content); err != nil {
				return err
			}
		}
		if apiResp.Done {
			return errStop
		}
		return nil
	})
}

func (c *OllamaClient) stream(ctx context.Context, data *OllamaChatRequest, fn func([]byte) error) error {
	bts, err := json.Marshal(data)
	if err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.GetChatURL(), bytes.NewBuffer(bts))
	if err != nil {
		c.log.Error("Failed to request on ollama chat: ", err)
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/x-ndjson")
	response, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return readError(response)
	}

	err = scanLines(response.Body, func(line []byte) error {
		if len(bytes.TrimSpace(line)) == 0 {
			return nil
		}
		return fn(line)
	})
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

// UnmarshalJSON handles the custom unmarshalling for Families.
func (f *Families) UnmarshalJSON(data []byte) error {
	// If the JSON data is "null", return an empty Families slice.
	if string(data) == "null" {
		*f = Families{}
		return nil
	}

	// Otherwise, unmarshal the data as a regular slice of strings.
	var families []string
	if err := json.Unmarshal(data, &families); err != nil {
		return err
	}
	*f = Families(families)
	return nil
}
