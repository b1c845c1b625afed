package controller

import (
	"training_tracker_backend/internal/model"
	"training_tracker_backend/internal/service"
	"training_tracker_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressTrackingService
}

func NewProgressController(progressService *service.ProgressTrackingService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// @Summary 记录测试课进步
// @Description 与基线成绩比较，更新各项测试的进步百分比。非测试课返回 processed=false
// @Tags 进步追踪
// @Accept json
// @Produce json
// @Param userId path int true "用户ID"
// @Param sessionId path int true "课程ID"
// @Param metrics body model.TestMetrics true "测试成绩"
// @Success 200 {object} util.Response
// @Router /users/{userId}/sessions/{sessionId}/testing-progress [post]
func (c *ProgressController) RecordTestingProgress(ctx *gin.Context) {
	userID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}
	sessionID, ok := pathID(ctx, "sessionId")
	if !ok {
		return
	}

	var metrics model.TestMetrics
	if err := ctx.ShouldBindJSON(&metrics); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	processed, err := c.ProgressService.RecordTestingProgress(ctx.Request.Context(), userID, sessionID, metrics)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"processed": processed})
}

// @Summary 获取进步记录
// @Tags 进步追踪
// @Produce json
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response{data=[]model.ProgressTracking}
// @Router /users/{userId}/progress [get]
func (c *ProgressController) ListProgress(ctx *gin.Context) {
	userID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}

	rows, err := c.ProgressService.ListProgress(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, rows)
}

// @Summary 重新计算进步记录
// @Description 以最早的测试成绩为基线、最新的为当前值重建全部记录
// @Tags 管理
// @Produce json
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /admin/users/{userId}/progress/recalculate [post]
func (c *ProgressController) RecalculateAll(ctx *gin.Context) {
	userID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}

	recalculated, err := c.ProgressService.RecalculateAll(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"recalculated": recalculated})
}
