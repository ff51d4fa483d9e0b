package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bz888/solver/internal/logger"
)

// OpenAIClient represents a client for the OpenAI API
type OpenAIClient struct {
	Client
	apiKey      string
	model       string
	temperature float64
	log         *logger.Logger
}

// NewOpenAIClient creates a new OpenAI API client
func NewOpenAIClient(host, apiKey, model string, temperature float64) *OpenAIClient {
	scheme, h := splitHost(host, "https")
	return &OpenAIClient{
		Client: *NewClient(ClientConfig{
			Scheme:     scheme,
			Host:       h,
			ModelsPath: "/v1/models",
			ChatPath:   "/v1/chat/completions",
		}),
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		log:         logger.NewLogger("openai"),
	}
}

type OpenAIChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
}

type OpenAIChatResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []OpenAIChatChoice `json:"choices"`
}

type OpenAIChatChoice struct {
	Delta        OpenAIChatDelta `json:"delta"`
	FinishReason *string         `json:"finish_reason,omitempty"` // Pointer to handle null
	Index        int             `json:"index"`
}

type OpenAIChatDelta struct {
	Content *string `json:"content,omitempty"` // Pointer to handle null
	Role    *string `json:"role,omitempty"`    // Pointer to handle null
}

type OpenAIModelsResponse struct {
	Object string        `json:"object"`
	Data   []OpenAIModel `json:"data"`
}

type OpenAIModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

func (c *OpenAIClient) Name() string {
	return "openai/" + c.model
}

// Models fetches the models from the OpenAI API
func (c *OpenAIClient) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.GetModelsURL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("failed to fetch data: " + resp.Status)
	}

	var response OpenAIModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(response.Data))
	for _, model := range response.Data {
		if model.ID != "" {
			names = append(names, model.ID)
		}
	}
	return names, nil
}

// Generate streams a chat completion, passing every content delta to fn.
func (c *OpenAIClient) Generate(ctx context.Context, messages []Message, fn func(string) error) error {
	req := &OpenAIChatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      true,
		Temperature: c.temperature,
	}
	return c.stream(ctx, req, func(bts []byte) error {
		cleanData := bytes.TrimSpace(bytes.TrimPrefix(bts, []byte("data:")))
		if len(cleanData) == 0 {
			return nil
		}
		if string(cleanData) == "[DONE]" {
			return errStop
		}

		var apiResp OpenAIChatResponse
		if err := json.Unmarshal(cleanData, &apiResp); err != nil {
			c.log.Error("Failed to unmarshal response: ", err)
			c.log.Error("Raw response data: ", string(bts))
			return err
		}
		if len(apiResp.Choices) > 0 && apiResp.Choices[0].Delta.Content != nil {
			if content := *apiResp.Choices[0].Delta.Content; content != "" {
				return fn(content)
			}
		}
		return nil
	})
}

func (c *OpenAIClient) stream(ctx context.Context, data *OpenAIChatRequest, fn func([]byte) error) error {
	bts, err := json.Marshal(data)
	if err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.GetChatURL(), bytes.NewBuffer(bts))
	if err != nil {
		c.log.Error("Failed to request on openai chat: ", err)
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "text/event-stream")
	request.Header.Set("Authorization", "Bearer "+c.apiKey)

	response, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(response.Body).Decode(&errResp); err != nil || errResp.Error.Message == "" {
			return fmt.Errorf("received non-200 response: %d", response.StatusCode)
		}
		c.log.Error("Received error response: ", errResp.Error.Message)
		return fmt.Errorf("received non-200 response: %d, error: %s", response.StatusCode, errResp.Error.Message)
	}

	err = scanLines(response.Body, func(line []byte) error {
		// SSE comments and event names carry nothing we need
		if !strings.HasPrefix(string(line), "data:") {
			return nil
		}
		return fn(line)
	})
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}
