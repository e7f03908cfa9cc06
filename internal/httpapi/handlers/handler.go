package handlers

import (
	"time"

	"github.com/suPer8Hu/brainstorm-chat/internal/ai"
	"github.com/suPer8Hu/brainstorm-chat/internal/journal"
)

const defaultHeartbeat = 15 * time.Second

type Handler struct {
	Streamer ai.Streamer
	// Runs is nil when the run journal is disabled.
	Runs  *journal.Repo
	Model string

	Heartbeat time.Duration
}

func NewHandler(streamer ai.Streamer, runs *journal.Repo, model string) *Handler {
	return &Handler{
		Streamer:  streamer,
		Runs:      runs,
		Model:     model,
		Heartbeat: defaultHeartbeat,
	}
}
