package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"place-scout/cmd/api/middleware"
	"place-scout/placeapi"
	"place-scout/services"
)

// callerIdentity 는 Identity 미들웨어가 심어둔 식별자를 꺼낸다.
func callerIdentity(c *gin.Context) (userID, tier string) {
	return c.GetString(middleware.ContextUserID), c.GetString(middleware.ContextUserTier)
}

// writeError 는 도메인 에러를 HTTP 상태로 변환한다.
//   - 잘못된 업스트림 요청(대개 질의 문제)은 400
//   - 업스트림 인증 거부는 호출자 잘못이 아니므로 502
//   - 캐시/쿼터/AI 전부 소진은 503
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrSearchUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case placeapi.KindOf(err) == placeapi.KindInvalidRequest:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid search request"})
	case placeapi.KindOf(err) == placeapi.KindRequestDenied:
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream rejected the request"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
