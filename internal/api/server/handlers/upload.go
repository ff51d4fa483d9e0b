package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/bz888/solver/internal/api"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgProcessed  = "Data uploaded and LLM processed successfully"
	msgNoResponse = "Data uploaded, but no LLM response generated"
	msgFailed     = "Data uploaded but LLM processing failed"
)

// Upload generates a solution for the task and language form fields. The
// answer is streamed as plain text unless the client asks for JSON.
func (h *Handler) Upload(c *gin.Context) {
	task, hasTask := c.GetPostForm("task")
	language, hasLanguage := c.GetPostForm("programming_language")
	if !hasTask || !hasLanguage {
		h.metrics.observe("invalid", "rejected", time.Time{})
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "task and programming_language form fields are required"})
		return
	}

	sessionID := uuid.NewString()
	h.log.Infof("upload %s: %d bytes, language %s, request %s", sessionID, len(task), language, c.GetHeader("X-Request-Id"))

	if wantsJSON(c) {
		h.respondJSON(c, sessionID, task, language)
		return
	}
	h.respondStream(c, sessionID, task, language)
}

func wantsJSON(c *gin.Context) bool {
	if c.Query("stream") == "false" {
		return true
	}
	return c.NegotiateFormat("text/plain", gin.MIMEJSON) == gin.MIMEJSON
}

func (h *Handler) respondJSON(c *gin.Context, sessionID, task, language string) {
	start := time.Now()

	var sb strings.Builder
	err := h.generate(c.Request.Context(), task, language, func(s string) error {
		sb.WriteString(s)
		return nil
	})

	resp := api.UploadResponse{SessionID: sessionID}
	switch {
	case err != nil:
		h.log.Error("generation failed: ", err)
		text := "Error running LLM: " + err.Error()
		resp.Message = msgFailed
		resp.LLMResponse = &text
		h.metrics.observe("json", "failed", start)
	case sb.Len() == 0:
		resp.Message = msgNoResponse
		h.metrics.observe("json", "empty", start)
	default:
		text := sb.String()
		resp.Message = msgProcessed
		resp.LLMResponse = &text
		h.metrics.observe("json", "ok", start)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) respondStream(c *gin.Context, sessionID, task, language string) {
	start := time.Now()

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Session-Id", sessionID)

	started := false
	err := h.generate(c.Request.Context(), task, language, func(s string) error {
		if !started {
			c.Status(http.StatusOK)
			started = true
		}
		if _, err := c.Writer.WriteString(s); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})

	switch {
	case err != nil && !started:
		h.log.Error("generation failed: ", err)
		h.metrics.observe("stream", "failed", start)
		c.String(http.StatusInternalServerError, "Error processing upload: %s", err.Error())
	case err != nil:
		// headers are gone; the client sees a short stream
		h.log.Error("generation broke off mid-stream: ", err)
		h.metrics.observe("stream", "truncated", start)
	case !started:
		h.metrics.observe("stream", "empty", start)
		c.Status(http.StatusOK)
	default:
		h.metrics.observe("stream", "ok", start)
	}
}
