package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func (h *Handler) ListRuns(c *gin.Context) {
	if h.Runs == nil {
		fail(c, http.StatusNotFound, 40403, "run journal disabled")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	runs, err := h.Runs.ListRecentRuns(c.Request.Context(), limit)
	if err != nil {
		log.Printf("[ListRuns] ListRecentRuns failed limit=%d err=%v", limit, err)
		fail(c, http.StatusInternalServerError, 50002, "failed to list runs")
		return
	}

	ok(c, gin.H{"runs": runs})
}

func (h *Handler) GetRun(c *gin.Context) {
	if h.Runs == nil {
		fail(c, http.StatusNotFound, 40403, "run journal disabled")
		return
	}

	id := c.Param("id")
	run, err := h.Runs.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, 40402, "run not found")
			return
		}
		log.Printf("[GetRun] failed id=%s err=%v", id, err)
		fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	ok(c, gin.H{"run": run})
}
