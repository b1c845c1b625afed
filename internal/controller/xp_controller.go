package controller

import (
	"training_tracker_backend/internal/service"
	"training_tracker_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type XPController struct {
	XPService   *service.XPService
	StatService *service.UserStatService
}

func NewXPController(xpService *service.XPService, statService *service.UserStatService) *XPController {
	return &XPController{XPService: xpService, StatService: statService}
}

// @Summary 完成课程
// @Description 课程结果提交后调用：发放基础积分和奖励积分，并刷新用户统计
// @Tags 积分
// @Produce json
// @Param userId path int true "用户ID"
// @Param sessionId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CompletionOutcome}
// @Failure 404 {object} util.Response
// @Router /users/{userId}/sessions/{sessionId}/complete [post]
func (c *XPController) CompleteSession(ctx *gin.Context) {
	userID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}
	sessionID, ok := pathID(ctx, "sessionId")
	if !ok {
		return
	}

	outcome, err := c.StatService.UpdateAfterSessionCompletion(ctx.Request.Context(), userID, sessionID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, outcome)
}

// @Summary 获取总积分
// @Description 总积分及当前等级
// @Tags 积分
// @Produce json
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /users/{userId}/xp [get]
func (c *XPController) GetTotalXP(ctx *gin.Context) {
	userID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}

	total, err := c.XPService.TotalXP(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"userId":       userID,
		"totalXp":      total,
		"currentLevel": service.LevelForXP(total),
	})
}

// @Summary 获取等级信息
// @Description 当前等级以及距离下一级所需积分
// @Tags 积分
// @Produce json
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response{data=service.NextLevelInfo}
// @Router /users/{userId}/level [get]
func (c *XPController) GetLevel(ctx *gin.Context) {
	userID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}

	info, err := c.XPService.NextLevelInfo(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, info)
}

// @Summary 积分汇总
// @Description 总积分、等级、最近流水及按来源分类统计
// @Tags 积分
// @Produce json
// @Param userId path int true "用户ID"
// @Param limit query int false "最近流水条数" default(10)
// @Success 200 {object} util.Response{data=service.XPSummary}
// @Router /users/{userId}/xp/summary [get]
func (c *XPController) GetSummary(ctx *gin.Context) {
	userID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}
	limit := util.ParseLimit(ctx.Query("limit"), 0, util.MaxRecentTransactions)

	summary, err := c.XPService.UserXPSummary(ctx.Request.Context(), userID, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, summary)
}
