package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"place-scout/aiprovider"
	"place-scout/cmd/api/handlers"
	"place-scout/cmd/api/middleware"
	"place-scout/config"
	"place-scout/db"
	_ "place-scout/docs"
	"place-scout/imagecheck"
	"place-scout/kafka"
	"place-scout/logger"
	"place-scout/placeapi"
	"place-scout/repositories"
	"place-scout/services"
)

func New() (*gin.Engine, error) {
	cfg := config.GetConfig()
	database := db.Database()

	placeRepo := repositories.NewPlaceRepository(database)
	intentSyncRepo := repositories.NewIntentSyncRepository(database)
	costRepo := repositories.NewCostLogRepository(database)
	quotaRepo := repositories.NewQuotaRepository(database)

	cacheSvc := services.NewPlaceCacheService(placeRepo, intentSyncRepo)
	costSvc := services.NewCostService(costRepo, cfg.Costs)
	quotaSvc := services.NewQuotaService(quotaRepo, cfg.Quota)

	pool, err := aiprovider.NewPoolFromConfig(cfg.AI)
	if err != nil {
		return nil, err
	}

	kafkaCfg := kafka.NewConfigFromEnv()
	if kafkaCfg != nil {
		if err := kafka.CreateTopicsIfNotExists(kafkaCfg); err != nil {
			logger.WarnWithFields("kafka topic setup failed", logger.Fields{"error": err.Error()})
		}
	}
	producer, err := kafka.NewProducer(kafkaCfg)
	if err != nil {
		// 이벤트 발행은 best-effort 라서 브로커 연결 실패가 기동을 막으면 안 된다.
		logger.WarnWithFields("kafka producer unavailable, events disabled", logger.Fields{
			"error": err.Error(),
		})
		producer = kafka.NoopProducer{}
	}

	searchSvc := services.NewSearchService(
		cacheSvc, quotaSvc, costSvc,
		placeapi.New(), pool, imagecheck.New(), producer,
		cfg,
	)
	detailSvc := services.NewDetailService(cacheSvc, quotaSvc, costSvc, placeapi.New())

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestTrace())
	r.Use(middleware.RequestLoggingMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := db.Client().Ping(ctx, nil); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "mongo": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// v1 routes
	api := r.Group("/api/v1")
	api.Use(middleware.Identity())
	{
		api.GET("/search", handlers.SearchHandler(searchSvc))
		api.GET("/places/:id", handlers.GetPlaceHandler(detailSvc))
		api.GET("/places/:id/details", handlers.GetPlaceDetailHandler(detailSvc))
		api.GET("/quota", handlers.QuotaStatusHandler(quotaSvc))
		api.GET("/usage", handlers.UsageHandler(quotaSvc, costSvc))
	}

	return r, nil
}
