package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tryon_back/admin"
	"tryon_back/cache"
	"tryon_back/catalog"
	"tryon_back/logging"
)

func mustLoadEnv() {
	_ = godotenv.Load()
}

func main() {
	mustLoadEnv()

	logger, err := logging.InitFromEnv()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := catalog.OpenDatabaseFromEnv()
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	if err := catalog.Migrate(db); err != nil {
		logger.Fatal("migrate schema", zap.Error(err))
	}

	storage, err := catalog.NewAssetStorageFromEnv()
	if err != nil {
		logger.Fatal("init asset storage", zap.Error(err))
	}

	var modelCache *catalog.ModelCache
	if client, err := cache.GetRedisClient(); err != nil {
		logger.Info("response caching disabled", zap.Error(err))
	} else {
		modelCache = catalog.NewModelCache(client, logger)
	}
	defer func() { _ = cache.Close() }()

	svc := catalog.NewService(db, storage, modelCache, logger)

	if err := catalog.Seed(db, storage, logger); err != nil {
		logger.Fatal("seed default catalog", zap.Error(err))
	}

	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20
	r.Use(cors.New(corsConfigFromEnv()))
	r.LoadHTMLGlob("templates/admin/*.html")

	r.Static("/static", storage.StaticDir())
	r.Static("/models", storage.UploadDir())
	r.GET("/", func(c *gin.Context) {
		c.File(filepath.Join(storage.StaticDir(), "index.html"))
	})

	catalog.RegisterRoutes(r, svc, modelCache, logger)
	admin.RegisterRoutes(r, svc, logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info("starting virtual try-on backend", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("start server", zap.Error(err))
	}
}

func corsConfigFromEnv() cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if raw == "" || raw == "*" {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}

	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
