package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/brainstorm-chat/internal/httpapi/web"
)

func (h *Handler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.Index)
}

func (h *Handler) Ping(c *gin.Context) {
	ok(c, gin.H{"pong": true, "model": h.Model})
}
