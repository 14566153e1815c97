package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"place-scout/cmd/api/dto"
	"place-scout/services"
)

// UsageHandler godoc
// @Summary      Get daily usage summary
// @Description  Current day's estimated cost total and text-search call count for the caller, alongside the deep-search quota status.
// @Tags         quota
// @Produce      json
// @Success      200  {object}  dto.UsageDTO
// @Failure      500  {object}  dto.ErrorResponseDTO
// @Router       /usage [get]
func UsageHandler(quotaSvc *services.QuotaService, costSvc *services.CostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, tier := callerIdentity(c)
		ctx := c.Request.Context()

		status, err := quotaSvc.Status(ctx, userID, tier)
		if err != nil {
			writeError(c, err)
			return
		}
		costToday, err := costSvc.GetUserDailyCost(ctx, userID)
		if err != nil {
			writeError(c, err)
			return
		}
		searchCalls, err := costSvc.GetUserDailySearchCount(ctx, userID)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, dto.FromUsage(costToday, searchCalls, status))
	}
}
