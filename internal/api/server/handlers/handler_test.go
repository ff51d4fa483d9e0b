package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bz888/solver/internal/api"
	"github.com/bz888/solver/internal/api/server/client"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Name() string {
	return "mock/model"
}

func (m *MockGenerator) Models(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockGenerator) Generate(ctx context.Context, messages []client.Message, fn func(string) error) error {
	args := m.Called(ctx, messages, fn)
	return args.Error(0)
}

// emits makes a Generate expectation deliver parts to the callback.
func emits(parts ...string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		fn := args.Get(2).(func(string) error)
		for _, p := range parts {
			if err := fn(p); err != nil {
				return
			}
		}
	}
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", h.Root)
	r.GET("/models", h.Models)
	r.POST("/upload", h.Upload)
	return r
}

func uploadRequest(t *testing.T, fields map[string]string, accept string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return req
}

var validFields = map[string]string{"task": "<html>Two Sum</html>", "programming_language": "go"}

func TestUploadStreams(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Run(emits("package ", "main")).Return(nil)

	reg := prometheus.NewRegistry()
	h := NewHandler(gen, "Solve the task.", NewMetrics(reg))
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, uploadRequest(t, validFields, "text/plain"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "package main", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.NotEmpty(t, rec.Header().Get("X-Session-Id"))

	gen.AssertCalled(t, "Generate", mock.Anything, []client.Message{
		{Role: client.RoleSystem, Content: "Prompt: Solve the task.\nProgramming Language: go"},
		{Role: client.RoleUser, Content: "<html>Two Sum</html>"},
	}, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.uploads.WithLabelValues("stream", "ok")))
}

func TestUploadStreamFailsBeforeFirstByte(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	rec := httptest.NewRecorder()
	newRouter(NewHandler(gen, "", nil)).ServeHTTP(rec, uploadRequest(t, validFields, ""))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error processing upload: connection refused", rec.Body.String())
}

func TestUploadStreamEmpty(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rec := httptest.NewRecorder()
	newRouter(NewHandler(gen, "", nil)).ServeHTTP(rec, uploadRequest(t, validFields, "*/*"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestUploadJSON(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Run(emits("print(", "42)")).Return(nil)

	rec := httptest.NewRecorder()
	newRouter(NewHandler(gen, "", nil)).ServeHTTP(rec, uploadRequest(t, validFields, "application/json"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, msgProcessed, resp.Message)
	require.NotNil(t, resp.LLMResponse)
	assert.Equal(t, "print(42)", *resp.LLMResponse)
}

func TestUploadJSONViaQuery(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	req := uploadRequest(t, validFields, "text/plain")
	req.URL.RawQuery = "stream=false"
	rec := httptest.NewRecorder()
	newRouter(NewHandler(gen, "", nil)).ServeHTTP(rec, req)

	var resp api.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, msgNoResponse, resp.Message)
	assert.Nil(t, resp.LLMResponse)
}

func TestUploadJSONGenerationFailure(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("model not found"))

	rec := httptest.NewRecorder()
	newRouter(NewHandler(gen, "", nil)).ServeHTTP(rec, uploadRequest(t, validFields, "application/json"))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp api.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, msgFailed, resp.Message)
	require.NotNil(t, resp.LLMResponse)
	assert.Equal(t, "Error running LLM: model not found", *resp.LLMResponse)
}

func TestUploadMissingFields(t *testing.T) {
	gen := new(MockGenerator)
	reg := prometheus.NewRegistry()
	h := NewHandler(gen, "", NewMetrics(reg))

	for _, fields := range []map[string]string{
		{"task": "x"},
		{"programming_language": "go"},
		{},
	} {
		rec := httptest.NewRecorder()
		newRouter(h).ServeHTTP(rec, uploadRequest(t, fields, ""))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	}
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.uploads.WithLabelValues("invalid", "rejected")))
}

func TestModels(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Models", mock.Anything).Return([]string{"llama3:latest", "qwen2.5-coder:32b"}, nil).Once()
	gen.On("Models", mock.Anything).Return([]string(nil), errors.New("ollama down")).Once()

	router := newRouter(NewHandler(gen, "", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/models", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"current":"mock/model","models":["llama3:latest","qwen2.5-coder:32b"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/models", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "ollama down")
}

func TestRoot(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(NewHandler(new(MockGenerator), "", nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Solver backend is running"}`, rec.Body.String())
}

func isExtraction(messages []client.Message) bool {
	return len(messages) == 2 && messages[0].Content == DefaultExtractPrompt
}

func TestUploadExtractsThenSolves(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(isExtraction), mock.Anything).
		Run(emits("  Two Sum: return the indices of two numbers adding up to target.\n")).Return(nil).Once()
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(emits("func twoSum(", "nums []int, target int) []int")).Return(nil).Once()

	h := NewHandler(gen, "Solve the task.", nil)
	h.EnableExtraction("")
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, uploadRequest(t, validFields, "text/plain"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "func twoSum(nums []int, target int) []int", rec.Body.String())

	gen.AssertNumberOfCalls(t, "Generate", 2)
	gen.AssertCalled(t, "Generate", mock.Anything, []client.Message{
		{Role: client.RoleSystem, Content: DefaultExtractPrompt},
		{Role: client.RoleUser, Content: "<html>Two Sum</html>"},
	}, mock.Anything)
	gen.AssertCalled(t, "Generate", mock.Anything, []client.Message{
		{Role: client.RoleSystem, Content: "Prompt: Solve the task.\nProgramming Language: go"},
		{Role: client.RoleUser, Content: "Two Sum: return the indices of two numbers adding up to target."},
	}, mock.Anything)
}

func TestUploadExtractionFailure(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(isExtraction), mock.Anything).
		Return(errors.New("model not found")).Once()

	h := NewHandler(gen, "", nil)
	h.EnableExtraction("")

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, uploadRequest(t, validFields, ""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error processing upload: extract problem: model not found", rec.Body.String())

	gen.On("Generate", mock.Anything, mock.MatchedBy(isExtraction), mock.Anything).
		Return(errors.New("model not found")).Once()
	rec = httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, uploadRequest(t, validFields, "application/json"))

	var resp api.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, msgFailed, resp.Message)
	require.NotNil(t, resp.LLMResponse)
	assert.Equal(t, "Error running LLM: extract problem: model not found", *resp.LLMResponse)
	gen.AssertNumberOfCalls(t, "Generate", 2)
}
