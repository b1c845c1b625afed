package controller

import (
	"training_tracker_backend/internal/service"
	"training_tracker_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StatsController struct {
	StatService *service.UserStatService
}

func NewStatsController(statService *service.UserStatService) *StatsController {
	return &StatsController{StatService: statService}
}

// @Summary 获取用户统计
// @Description 总积分、力量等级、完成率
// @Tags 统计
// @Produce json
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response{data=model.UserStat}
// @Router /users/{userId}/stats [get]
func (c *StatsController) GetUserStat(ctx *gin.Context) {
	userID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}

	stat, err := c.StatService.GetUserStat(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, stat)
}

// @Summary 获取排行榜
// @Description 按积分或完成率排名，只包含学生
// @Tags 统计
// @Produce json
// @Param metric query string false "xp 或 consistency" default(xp)
// @Param limit query int false "返回数量" default(10)
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /leaderboard [get]
func (c *StatsController) GetLeaderboard(ctx *gin.Context) {
	limit := util.ParseLimit(ctx.Query("limit"), util.DefaultLeaderboardLimit, util.MaxLeaderboardLimit)

	entries, err := c.StatService.Leaderboard(ctx.Request.Context(), ctx.Query("metric"), limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, entries)
}

// @Summary 重新计算用户统计
// @Tags 管理
// @Produce json
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response{data=model.UserStat}
// @Router /admin/users/{userId}/stats/recompute [post]
func (c *StatsController) RecomputeUserStat(ctx *gin.Context) {
	userID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}

	stat, err := c.StatService.RecomputeUserStat(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, stat)
}

// @Summary 重新计算全部学生统计
// @Description 部分失败时返回 500，并附带已成功的数量
// @Tags 管理
// @Produce json
// @Success 200 {object} util.Response
// @Router /admin/stats/recompute-all [post]
func (c *StatsController) RecomputeAll(ctx *gin.Context) {
	count, err := c.StatService.RecomputeAll(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"recomputed": count})
}
