package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/brainstorm-chat/internal/common"
)

func ok(c *gin.Context, data any) { common.OK(c, data) }

func fail(c *gin.Context, httpStatus int, code int, msg string) {
	common.Fail(c, httpStatus, code, msg)
}
