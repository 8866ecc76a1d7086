package app

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	"passguard/internal/config"
	"passguard/internal/handlers"
	"passguard/internal/middleware"
	"passguard/internal/repositories"
	"passguard/internal/routes"
	"passguard/internal/services"
)

func Run() {
	cfg := config.LoadConfig()

	// === Stores ===
	var (
		userRepo  repositories.UserRepository
		verifRepo repositories.VerificationRepository
	)
	switch cfg.Store.Driver {
	case "postgres":
		db, err := sql.Open("postgres", cfg.Store.DSN)
		if err != nil {
			log.Fatal("failed to connect to database: ", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Printf("failed to close database: %v", err)
			}
		}()
		userRepo = repositories.NewPostgresUserRepository(db)
		verifRepo = repositories.NewPostgresVerificationRepository(db)
	default:
		fileRepo, err := repositories.NewFileUserRepository(cfg.Store.Path)
		if err != nil {
			log.Fatal("failed to open user store: ", err)
		}
		userRepo = fileRepo
		verifRepo = repositories.NewMemoryVerificationRepository()
	}

	// === Notifier ===
	var (
		notifier     services.Notifier
		emailService services.EmailService
	)
	switch cfg.Notifier.Channel {
	case "email":
		emailService = services.NewEmailService(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromEmail,
		)
		notifier = emailService
	case "telegram":
		tg, err := services.NewTelegramNotifier(cfg.Telegram.BotToken)
		if err != nil {
			log.Fatal("failed to init telegram notifier: ", err)
		}
		notifier = tg
	default:
		notifier = services.NewSimulationNotifier()
	}

	// === Services ===
	authService := services.NewAuthService()

	verification := services.NewVerificationService(verifRepo, notifier)
	verification.CodeLength = cfg.Verification.CodeLength
	verification.CodeTTL = cfg.Verification.TTL.Std()
	verification.MaxAttempts = cfg.Verification.MaxCodeAttempts
	verification.MaxResends = cfg.Verification.MaxResends
	verification.ResendWindow = cfg.Verification.ResendWindow.Std()

	userService := services.NewUserService(userRepo, verification, emailService, authService, cfg.Notifier.Channel)
	resetService := services.NewPasswordResetService(userService, userRepo, verification, emailService, authService)
	sessionService := services.NewSessionService(
		userService,
		verification,
		resetService,
		cfg.Auth.MaxLoginAttempts,
		cfg.Auth.TwoFactor,
		cfg.Auth.SessionTTL.Std(),
	)

	middleware.SetSigningKey(cfg.Auth.JWTSecret)

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(sessionService, userService)
	userHandler := handlers.NewUserHandler(userService)
	verifyHandler := handlers.NewVerifyHandler(userService)
	passwordHandler := handlers.NewPasswordHandler(sessionService)

	// === Gin ===
	router := gin.Default()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	routes.SetupRoutes(router, authHandler, userHandler, verifyHandler, passwordHandler)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("server listening on %s (store=%s notifier=%s)", listenAddr, cfg.Store.Driver, cfg.Notifier.Channel)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("failed to start server: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Session-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
