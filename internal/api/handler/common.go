package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zf7c/studylab_go_server/internal/api/middleware"
)

// mustUserID 取当前用户 ID；路由已挂认证中间件，缺失视为编程错误
func mustUserID(c *gin.Context) int64 {
	id, _ := middleware.GetUserID(c)
	return id
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
