package main

import (
	"log"

	_ "backend/api/swagger" // swagger docs
	"backend/internal/config"
	"backend/internal/handler"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/vault"
	"backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Procedure Intake API
// @version         1.0
// @description     Versioned administrative procedure records with an ordered approval workflow and encrypted attachments.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	// Document vault: unusable key material must halt startup.
	docVault, err := vault.Open(cfg.UploadDir, cfg.KeyFile)
	if err != nil {
		log.Fatalf("Document vault initialization failed: %v", err)
	}

	store, err := newRecordStore(cfg)
	if err != nil {
		log.Fatalf("Record store initialization failed: %v", err)
	}

	users, err := repository.NewUserStore(cfg.UsersFile())
	if err != nil {
		log.Fatalf("User directory initialization failed: %v", err)
	}

	// Set up WebSocket Hub for owner notifications
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	jwtSecret := []byte(cfg.JWTSecret)
	procedureService := service.NewProcedureService(store, docVault, wsHub)
	authService := service.NewAuthService(users, jwtSecret)

	procedureHandler := handler.NewProcedureHandler(procedureService, jwtSecret)
	authHandler := handler.NewAuthHandler(authService, jwtSecret)

	// Set up Gin Router
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, jwtSecret)
	})

	// API Routing
	authHandler.RegisterRoutes(router.Group(""))
	procedureHandler.RegisterRoutes(router.Group(""))

	log.Printf("Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func newRecordStore(cfg *config.Config) (repository.RecordStore, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		return repository.NewGormStore(cfg.PostgresDSN)
	case config.DriverMemory:
		return repository.NewMemoryStore(), nil
	default:
		return repository.NewFileStore(cfg.RecordsFile())
	}
}
