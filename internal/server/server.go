package server

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mansoorceksport/storeit/internal/config"
	"github.com/mansoorceksport/storeit/internal/domain"
	"github.com/mansoorceksport/storeit/internal/handler"
	"github.com/mansoorceksport/storeit/internal/middleware"
	"github.com/mansoorceksport/storeit/internal/repository"
	"github.com/mansoorceksport/storeit/internal/service"
	"github.com/mansoorceksport/storeit/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// multipartOverhead leaves room for form boundaries and headers around the largest allowed file
const multipartOverhead = 1024 * 1024

const defaultIdempotencyTTL = 10 * time.Minute

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	BlobStore   domain.BlobStore
	AuthClient  service.FirebaseAuthClient // nil disables /v1/auth/firebase
	Mailer      domain.Mailer              // nil logs codes instead of sending them
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	cfg := deps.Config

	// Initialize repositories
	userRepo := repository.NewMongoUserRepository(deps.MongoDB)
	fileRepo := repository.NewMongoFileRepository(deps.MongoDB)
	otpRepo := repository.NewMongoOTPRepository(deps.MongoDB)
	refreshTokenRepo := repository.NewMongoRefreshTokenRepository(deps.MongoDB)
	cacheRepo := repository.NewRedisCacheRepository(deps.RedisClient)
	rateLimiter := repository.NewRedisRateLimiter(deps.RedisClient)

	mailer := deps.Mailer
	if mailer == nil {
		mailer = service.LogMailer{}
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, otpRepo, mailer, rateLimiter, deps.AuthClient, cfg.OTP)
	tokenService := service.NewTokenService(cfg.JWT, refreshTokenRepo, userRepo)
	fileService := service.NewFileService(fileRepo, deps.BlobStore, cacheRepo, cfg.MaxUploadBytes())
	usageService := service.NewUsageService(fileRepo, cacheRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, tokenService, cfg.Server.SecureCookies)
	fileHandler := handler.NewFileHandler(fileService)
	usageHandler := handler.NewUsageHandler(usageService)

	idempotencyTTL := cfg.Server.IdempotencyTTL
	if idempotencyTTL <= 0 {
		idempotencyTTL = defaultIdempotencyTTL
	}

	allowOrigins := cfg.Server.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:      "StoreIt API",
		BodyLimit:    int(cfg.MaxUploadBytes()) + multipartOverhead,
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(telemetry.FiberMiddleware())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: allowOrigins != "*",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "storeit",
		})
	})

	v1 := app.Group("/v1")
	requireSession := middleware.RequireSession(cfg.JWT.Secret)

	// Auth endpoints (public)
	auth := v1.Group("/auth")
	auth.Post("/sign-up", authHandler.SignUp)
	auth.Post("/sign-in", authHandler.SignIn)
	auth.Post("/verify", authHandler.Verify)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", authHandler.Logout)
	auth.Post("/logout-all", requireSession, authHandler.LogoutAll)
	if deps.AuthClient != nil {
		auth.Post("/firebase", authHandler.Firebase)
	}

	v1.Get("/me", requireSession, authHandler.Me)

	files := v1.Group("/files", requireSession)
	files.Get("/", fileHandler.List)
	files.Post("/", middleware.IdempotencyMiddleware(deps.RedisClient, idempotencyTTL), fileHandler.Upload)
	files.Get("/options", fileHandler.Options)
	files.Get("/:id", fileHandler.Get)
	files.Get("/:id/download", fileHandler.Download)
	files.Patch("/:id", fileHandler.Rename)
	files.Put("/:id/users", fileHandler.UpdateShares)
	files.Delete("/:id", fileHandler.Delete)

	v1.Get("/usage", requireSession, usageHandler.GetUsage)
	v1.Get("/dashboard", requireSession, usageHandler.GetDashboard)

	return app
}

// customErrorHandler renders errors that escaped the handlers (404 routes, body limit, panics)
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	} else {
		log.Printf("Error: %v", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
