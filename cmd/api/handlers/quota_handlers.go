package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"place-scout/cmd/api/dto"
	"place-scout/services"
)

// QuotaStatusHandler godoc
// @Summary      Get deep-search quota status
// @Description  Current day's deep-search usage for the caller, with the UTC reset time.
// @Tags         quota
// @Produce      json
// @Success      200  {object}  dto.QuotaStatusDTO
// @Failure      500  {object}  dto.ErrorResponseDTO
// @Router       /quota [get]
func QuotaStatusHandler(svc *services.QuotaService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, tier := callerIdentity(c)
		status, err := svc.Status(c.Request.Context(), userID, tier)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FromQuotaStatus(status))
	}
}
