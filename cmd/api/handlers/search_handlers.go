package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"place-scout/cmd/api/dto"
	"place-scout/services"
)

// SearchHandler godoc
// @Summary      Search places
// @Description  Cache-first place search. Falls through to a single upstream batch call plus AI recommendations when the cache cannot satisfy the request and the caller has deep-search quota left.
// @Tags         search
// @Param        q      query  string  true   "Free-text query"
// @Param        limit  query  int     false  "Max results (<= configured batch size)"
// @Param        lang   query  string  false  "Display language (en, zh, ...)"
// @Param        lat    query  number  false  "Caller latitude"
// @Param        lng    query  number  false  "Caller longitude"
// @Produce      json
// @Success      200  {object}  dto.SearchResponseDTO
// @Failure      400  {object}  dto.ErrorResponseDTO
// @Failure      503  {object}  dto.ErrorResponseDTO
// @Router       /search [get]
func SearchHandler(svc *services.SearchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := strings.TrimSpace(c.Query("q"))
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
			return
		}

		userID, tier := callerIdentity(c)
		in := services.SearchInput{
			Query:    query,
			UserID:   userID,
			Tier:     tier,
			Language: c.DefaultQuery("lang", "en"),
		}
		in.Limit, _ = strconv.Atoi(c.Query("limit"))
		if lat, err := strconv.ParseFloat(c.Query("lat"), 64); err == nil {
			in.UserLat = &lat
		}
		if lng, err := strconv.ParseFloat(c.Query("lng"), 64); err == nil {
			in.UserLng = &lng
		}

		out, err := svc.Search(c.Request.Context(), in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FromSearchOutput(out))
	}
}
