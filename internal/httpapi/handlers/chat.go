package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/brainstorm-chat/internal/ai"
	"github.com/suPer8Hu/brainstorm-chat/internal/httpapi/middleware"
	"github.com/suPer8Hu/brainstorm-chat/internal/render"
)

const maxHistoryTurns = 200

type chatStreamReq struct {
	Messages []ai.Message `json:"messages"`
}

// validateHistory returns a client-facing reason, or "" when msgs can be sent.
func validateHistory(msgs []ai.Message) string {
	if len(msgs) == 0 {
		return "messages required"
	}
	if len(msgs) > maxHistoryTurns {
		return fmt.Sprintf("too many messages (max %d)", maxHistoryTurns)
	}
	hasUser := false
	for i, m := range msgs {
		if !m.Role.Valid() {
			return fmt.Sprintf("messages[%d]: unknown role %q", i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Sprintf("messages[%d]: content required", i)
		}
		if m.Role == ai.RoleUser {
			hasUser = true
		}
	}
	if !hasUser {
		return "at least one user message required"
	}
	return ""
}

// ChatStream relays one aggregation as server-sent events:
// progress (full text so far), then exactly one of done, truncated or error.
func (h *Handler) ChatStream(c *gin.Context) {
	var req chatStreamReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if reason := validateHistory(req.Messages); reason != "" {
		fail(c, http.StatusBadRequest, 10002, reason)
		return
	}

	flusher, okf := c.Writer.(http.Flusher)
	if !okf {
		fail(c, http.StatusInternalServerError, 50003, "streaming not supported")
		return
	}

	// SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // helpful if behind nginx

	// avoid gin writing a JSON response later
	c.Status(http.StatusOK)
	flusher.Flush()

	reqID := c.GetString(middleware.RequestIDKey)
	writeJSON := func(event string, payload any) {
		b, err := json.Marshal(payload)
		if err != nil {
			// last-resort: send a simple error that won't break SSE framing
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"type\":\"error\",\"message\":\"json marshal failed\"}\n\n")
			flusher.Flush()
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, b)
		flusher.Flush()
	}
	finalEvent := func(event, text string) {
		payload := gin.H{"type": event, "text": text}
		html, err := render.HTML(text)
		if err != nil {
			log.Printf("[ChatStream] render failed request_id=%s err=%v", reqID, err)
		} else {
			payload["html"] = html
		}
		writeJSON(event, payload)
	}

	// the request context ends when the client goes away, which cancels the upstream
	ctx := c.Request.Context()
	updates, errs := ai.StreamChat(ctx, h.Streamer, req.Messages)

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	start := time.Now()
	var latest string
	for {
		select {
		case u, okc := <-updates:
			if !okc {
				h.finishStream(c, start, latest, <-errs, finalEvent, writeJSON)
				return
			}
			if u.Done {
				finalEvent("done", u.Text)
				log.Printf("[ChatStream] done request_id=%s turns=%d chars=%d cost=%s",
					reqID, len(req.Messages), len(u.Text), time.Since(start))
				continue
			}
			latest = u.Text
			writeJSON("progress", gin.H{
				"type": "progress",
				"text": u.Text,
			})

		case <-ticker.C:
			writeJSON("ping", gin.H{
				"type": "ping",
				"ts":   time.Now().Unix(),
			})

		case <-ctx.Done():
			log.Printf("[ChatStream] client gone request_id=%s cost=%s", reqID, time.Since(start))
			return
		}
	}
}

// finishStream reports how a run that produced no final snapshot ended.
func (h *Handler) finishStream(c *gin.Context, start time.Time, latest string, err error,
	finalEvent func(event, text string), writeJSON func(event string, payload any)) {
	if err == nil {
		// done was already sent
		return
	}
	reqID := c.GetString(middleware.RequestIDKey)
	if c.Request.Context().Err() != nil {
		return
	}

	var truncated *ai.TruncatedError
	if errors.As(err, &truncated) {
		log.Printf("[ChatStream] truncated request_id=%s chars=%d cost=%s", reqID, len(truncated.Partial), time.Since(start))
		finalEvent("truncated", strings.TrimSpace(truncated.Partial))
		return
	}

	log.Printf("[ChatStream] failed request_id=%s model=%s partial_chars=%d err=%v", reqID, h.Model, len(latest), err)
	writeJSON("error", gin.H{
		"type":    "error",
		"message": clientMessage(err),
	})
}

func clientMessage(err error) string {
	var te *ai.TransportError
	if errors.As(err, &te) {
		switch {
		case te.StatusCode == http.StatusUnauthorized || te.StatusCode == http.StatusForbidden:
			return "upstream rejected the api key"
		case te.StatusCode == http.StatusTooManyRequests:
			return "upstream rate limit reached"
		case te.StatusCode != 0:
			return fmt.Sprintf("upstream error (http %d)", te.StatusCode)
		}
		return "upstream unreachable"
	}
	return "internal error"
}
