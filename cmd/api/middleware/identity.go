package middleware

import (
	"github.com/gin-gonic/gin"

	"place-scout/config"
)

const (
	headerUserID   = "X-User-Id"
	headerUserTier = "X-User-Tier"

	// ContextUserID / ContextUserTier 는 핸들러가 읽는 gin 컨텍스트 키다.
	ContextUserID   = "user_id"
	ContextUserTier = "user_tier"
)

// Identity 는 게이트웨이가 전달한 사용자 식별 헤더를 읽어 컨텍스트에 넣는다.
// 인증 자체는 게이트웨이 소관이고, 여기서는 쿼터/비용 귀속용 식별자만 다룬다.
//   - userId 가 없으면 client IP 기반 익명 식별자를 만들고 가장 제한적인 티어를 적용한다.
//   - 티어 헤더가 없거나 모르는 값이면 역시 익명 티어로 강등한다 (한도 우회 방지).
func Identity() gin.HandlerFunc {
	quotaCfg := config.GetConfig().Quota
	return func(c *gin.Context) {
		userID := c.GetHeader(headerUserID)
		tier := c.GetHeader(headerUserTier)

		if userID == "" {
			userID = "anon:" + c.ClientIP()
			tier = quotaCfg.AnonymousTier
		}
		if _, known := quotaCfg.DeepSearchTiers[tier]; !known {
			tier = quotaCfg.AnonymousTier
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUserTier, tier)
		c.Next()
	}
}
