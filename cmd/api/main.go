package main

import (
	"log"
	"os"

	"cafepos/internal/database"
	"cafepos/internal/handler"
	"cafepos/internal/middleware"
	"cafepos/internal/repository"
	"cafepos/internal/service"
	"cafepos/internal/station"
	"cafepos/internal/websocket"

	_ "cafepos/api/swagger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Cafe POS API
// @version         1.0
// @description     Order approval, tab ledger and settlement backend for table service.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	currency := os.Getenv("CURRENCY")
	if currency == "" {
		currency = "TRY"
	}

	mapping, err := station.ParseMapping(os.Getenv("STATION_MAP"))
	if err != nil {
		log.Fatalf("Invalid STATION_MAP: %v", err)
	}
	stationRouter := station.NewRouter(mapping)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	requestRepo := repository.NewRequestRepository(db)
	tabRepo := repository.NewTabRepository(db)
	tableRepo := repository.NewTableRepository(db)
	productRepo := repository.NewProductRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	clock := service.NewClock()
	catalog := service.NewCatalog(productRepo)
	requestService := service.NewRequestService(requestRepo, tableRepo, auditRepo, catalog, txManager, clock, wsHub)
	approvalService := service.NewApprovalService(requestRepo, tabRepo, tableRepo, auditRepo, catalog, txManager, stationRouter, clock, wsHub)
	tabService := service.NewTabService(tabRepo, tableRepo, auditRepo, txManager, stationRouter, clock, wsHub, currency)
	menuService := service.NewMenuService(productRepo)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	requestHandler := handler.NewRequestHandler(requestService, approvalService)
	tabHandler := handler.NewTabHandler(tabService)
	stationHandler := handler.NewStationHandler(tabService)
	menuHandler := handler.NewMenuHandler(menuService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger documentation route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint for station displays, waiter devices and the dashboard
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	apiGroup := router.Group("")
	requestHandler.RegisterRoutes(apiGroup)
	tabHandler.RegisterRoutes(apiGroup)
	stationHandler.RegisterRoutes(apiGroup)
	menuHandler.RegisterRoutes(apiGroup)
	auditHandler.RegisterRoutes(apiGroup)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
