package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bz888/solver/internal/api/server/client"
	"github.com/bz888/solver/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultExtractPrompt asks the model to pull the problem out of a captured
// page before it is solved.
const DefaultExtractPrompt = "The user message is the markup of a web page with a programming problem on it. " +
	"Extract the problem: its statement, input and output format, constraints and examples. " +
	"Reply with the problem only, as plain text, without solving it."

type Handler struct {
	generator     client.Generator
	prompt        string
	extractPrompt string
	metrics       *Metrics
	log           *logger.Logger
}

func NewHandler(generator client.Generator, prompt string, metrics *Metrics) *Handler {
	return &Handler{
		generator: generator,
		prompt:    prompt,
		metrics:   metrics,
		log:       logger.NewLogger("handlers"),
	}
}

// EnableExtraction makes every upload run in two steps: the problem is
// first extracted from the task with prompt, and the extract is solved.
func (h *Handler) EnableExtraction(prompt string) {
	if prompt == "" {
		prompt = DefaultExtractPrompt
	}
	h.extractPrompt = prompt
}

// Root reports that the service is up.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Solver backend is running"})
}

// messages builds the conversation for one task.
func (h *Handler) messages(task, language string) []client.Message {
	return []client.Message{
		{
			Role:    client.RoleSystem,
			Content: fmt.Sprintf("Prompt: %s\nProgramming Language: %s", h.prompt, language),
		},
		{
			Role:    client.RoleUser,
			Content: task,
		},
	}
}

// generate solves task, streaming the answer to fn. With extraction on, the
// problem statement is extracted first and replaces the task.
func (h *Handler) generate(ctx context.Context, task, language string, fn func(string) error) error {
	if h.extractPrompt != "" {
		problem, err := h.extractProblem(ctx, task)
		if err != nil {
			return fmt.Errorf("extract problem: %w", err)
		}
		if problem != "" {
			task = problem
		} else {
			h.log.Warn("extraction returned nothing, solving the raw task")
		}
	}
	return h.generator.Generate(ctx, h.messages(task, language), fn)
}

func (h *Handler) extractProblem(ctx context.Context, task string) (string, error) {
	start := time.Now()
	var sb strings.Builder
	err := h.generator.Generate(ctx, []client.Message{
		{Role: client.RoleSystem, Content: h.extractPrompt},
		{Role: client.RoleUser, Content: task},
	}, func(s string) error {
		sb.WriteString(s)
		return nil
	})
	if err != nil {
		return "", err
	}
	h.log.Infof("extracted %d bytes of problem from %d bytes in %s", sb.Len(), len(task), time.Since(start))
	return strings.TrimSpace(sb.String()), nil
}

// Metrics counts uploads by response mode and outcome and times generation.
type Metrics struct {
	uploads  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solver",
			Name:      "uploads_total",
			Help:      "Upload requests by response mode and outcome.",
		}, []string{"mode", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "solver",
			Name:      "generation_seconds",
			Help:      "Time spent generating a solution.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"mode"}),
	}
	reg.MustRegister(m.uploads, m.duration)
	return m
}

func (m *Metrics) observe(mode, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(mode, outcome).Inc()
	if !start.IsZero() {
		m.duration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}
}
