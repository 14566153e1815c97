package main

import (
	"context"
	"log"
	"net/http"

	"github.com/rs/cors"

	"place-scout/cmd/api/router"
	"place-scout/config"
	"place-scout/db"
	_ "place-scout/docs" // swag will generate this package
	"place-scout/logger"
)

// @title           Place-Scout API
// @version         1.0
// @description     Quota-bounded place search with a Mongo read-through cache and AI provider fallback
// @BasePath        /api/v1
func main() {
	config.InitApp()
	logger.Init(config.GetConfig().Logging.Level)

	if err := db.Init(context.Background()); err != nil {
		log.Fatal(err)
	}

	r, err := router.New()
	if err != nil {
		log.Fatal(err)
	}

	// 모바일 클라이언트 외 웹 데모에서도 바로 호출할 수 있게 열어둔다.
	handler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"X-User-Id", "X-User-Tier", "X-Request-Id", "Content-Type"},
	}).Handler(r)

	if err := http.ListenAndServe(":8080", handler); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
