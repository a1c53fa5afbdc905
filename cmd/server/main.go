package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"kitchen_backoffice/internal/config"
	"kitchen_backoffice/internal/database"
	"kitchen_backoffice/internal/repositories"
	"kitchen_backoffice/internal/router"
	"kitchen_backoffice/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.InitLogger("info", "console")
		utils.LogError(err, "Failed to load configuration")
		os.Exit(1)
	}

	// Initialize Logger
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg)
	if err != nil {
		utils.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}
	defer db.Close()

	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	svc := router.NewServices(db, repositories.DialectFor(cfg.DBDriver), tokens)

	if adminUser, adminPassword := utils.Getenv("ADMIN_USERNAME", ""), utils.Getenv("ADMIN_PASSWORD", ""); adminUser != "" && adminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := svc.Auth.EnsureAdmin(ctx, adminUser, adminPassword); err != nil {
			utils.LogError(err, "Failed to create initial admin account")
		}
		cancel()
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(utils.GinLogger(), gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	router.Setup(engine, svc, tokens)

	utils.LogInfo("Server starting", map[string]interface{}{"addr": cfg.ListenAddr(), "driver": cfg.DBDriver})
	if err := engine.Run(cfg.ListenAddr()); err != nil {
		utils.LogError(err, "Failed to start server")
		os.Exit(1)
	}
}
