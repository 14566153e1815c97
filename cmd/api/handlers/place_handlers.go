package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"place-scout/cmd/api/dto"
	"place-scout/services"
)

// GetPlaceHandler godoc
// @Summary      Get place by id
// @Description  Get a cached place by ObjectID. Never triggers upstream calls.
// @Tags         places
// @Param        id    path   string  true   "ObjectID"
// @Param        lang  query  string  false  "Display language"
// @Produce      json
// @Success      200  {object}  dto.PlaceDetailDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /places/{id} [get]
func GetPlaceHandler(svc *services.DetailService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := services.ParseObjectID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid place id"})
			return
		}

		out, err := svc.GetPlace(c.Request.Context(), id, c.DefaultQuery("lang", "en"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FromDetailOutput(out))
	}
}

// GetPlaceDetailHandler godoc
// @Summary      Get place with detail fields
// @Description  Serves detail fields from cache when present. Otherwise performs a single place-details upstream call, bounded by the caller's daily detail-view quota. Quota exhaustion degrades to basic fields, not an error.
// @Tags         places
// @Param        id    path   string  true   "ObjectID"
// @Param        lang  query  string  false  "Display language"
// @Produce      json
// @Success      200  {object}  dto.PlaceDetailDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /places/{id}/details [get]
func GetPlaceDetailHandler(svc *services.DetailService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := services.ParseObjectID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid place id"})
			return
		}

		userID, tier := callerIdentity(c)
		out, err := svc.GetPlaceDetail(c.Request.Context(), id, userID, tier, c.DefaultQuery("lang", "en"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FromDetailOutput(out))
	}
}
