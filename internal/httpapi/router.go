package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/brainstorm-chat/internal/common"
	"github.com/suPer8Hu/brainstorm-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/brainstorm-chat/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	r.GET("/", h.Index)
	r.GET("/ping", h.Ping)

	// chat
	r.POST("/chat/stream", h.ChatStream)

	// run journal
	r.GET("/runs", h.ListRuns)
	r.GET("/runs/:id", h.GetRun)
	return r
}
