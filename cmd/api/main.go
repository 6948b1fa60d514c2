package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/api/swagger" // swagger docs
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/authz"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/config"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/database"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/handler"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/logging"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/middleware"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/navigation"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/repository"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/service"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/session"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Dopravní systém Access API
// @version         1.0
// @description     Role registry, session claims and navigation guard for the fleet dashboard.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := logging.Init(&cfg.Logging); err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.Database.DSN())
	if err != nil {
		fatal("database connection failed", err)
	}
	if err := database.Migrate(db); err != nil {
		fatal("database migration failed", err)
	}
	logging.Info("connected to PostgreSQL")

	menu, err := navigation.Load(cfg.Pages.MenuFile)
	if err != nil {
		fatal("loading navigation menu", err)
	}

	sessions, err := session.NewManager([]byte(cfg.Session.SigningKey), cfg.Session.Issuer, cfg.Session.Expiry)
	if err != nil {
		fatal("session manager setup failed", err)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	defer wsHub.Stop()

	// Set up dependencies (Repository -> Service -> Handler)
	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	resolver := authz.NewResolver(roleRepo, prefRepo)
	adminGuard := service.NewAdminGuard(userRepo, roleRepo, cfg.Admin.Email)

	roleService := service.NewRoleService(roleRepo, auditRepo, txManager, wsHub)
	userService := service.NewUserService(service.UserServiceDeps{
		Users:    userRepo,
		Roles:    roleRepo,
		Prefs:    prefRepo,
		Audit:    auditRepo,
		Tx:       txManager,
		Guard:    adminGuard,
		Resolver: resolver,
		Notifier: wsHub,
	})
	authService := service.NewAuthService(userRepo, resolver, sessions)
	auditService := service.NewAuditService(auditRepo)

	if err := roleService.SeedDefaultRoles(ctx); err != nil {
		fatal("seeding default roles", err)
	}
	if err := userService.EnsureAdminAccount(ctx, cfg.Admin); err != nil {
		fatal("seeding administrator account", err)
	}

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService, userService, menu, cfg.Session.SecureCookie)
	roleHandler := handler.NewRoleHandler(roleService, adminGuard)
	userHandler := handler.NewUserHandler(userService, adminGuard)
	auditHandler := handler.NewAuditHandler(auditService, adminGuard)
	pageHandler := handler.NewPageHandler(authz.Guard{
		PublicEntry: cfg.Pages.PublicEntry,
		Forbidden:   cfg.Pages.Forbidden,
		PublicPages: cfg.Pages.PublicPages,
	}, menu)

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.Authenticate(sessions))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, sessions)
	})

	// API Routing
	authHandler.RegisterRoutes(router.Group(""))
	roleHandler.RegisterRoutes(router.Group(""))
	userHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	// Everything else is a dashboard page behind the route guard
	pageHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server failed", err)
		}
	}()

	<-ctx.Done()
	logging.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("server shutdown failed", "error", err)
	}
}

func fatal(msg string, err error) {
	logging.Error(msg, "error", err)
	os.Exit(1)
}
