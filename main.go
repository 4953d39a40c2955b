package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"agora/internal/clock"
	"agora/internal/handlers"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/repositories"
	"agora/internal/services"
	"agora/internal/session"
	"agora/pkg/events"
)

// Config holds process configuration resolved from the environment.
type Config struct {
	AppPort     string
	DBDriver    string
	DBDSN       string
	JWTSecret   string
	EditWindow  time.Duration
	RabbitMQURL string
}

// LoadConfig reads configuration from environment variables with
// defaults suitable for local development.
func LoadConfig() Config {
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATABASE_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_DSN", "agora.db")
	viper.SetDefault("JWT_SECRET", "dev-secret-change-me")
	viper.SetDefault("EDIT_WINDOW_MINUTES", 10)
	viper.SetDefault("RABBITMQ_URL", "")
	viper.AutomaticEnv() // Load environment variables

	return Config{
		AppPort:     viper.GetString("APP_PORT"),
		DBDriver:    viper.GetString("DATABASE_DRIVER"),
		DBDSN:       viper.GetString("DATABASE_DSN"),
		JWTSecret:   viper.GetString("JWT_SECRET"),
		EditWindow:  time.Duration(viper.GetInt("EDIT_WINDOW_MINUTES")) * time.Minute,
		RabbitMQURL: viper.GetString("RABBITMQ_URL"),
	}
}

// OpenDatabase connects to the configured database and migrates the
// schema.
func OpenDatabase(cfg Config) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dial = postgres.Open(cfg.DBDSN)
	default:
		dial = sqlite.Open(cfg.DBDSN)
	}

	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.Product{}, &models.User{}, &models.Thread{}, &models.Post{}); err != nil {
		return nil, err
	}
	return db, nil
}

// NewApp wires repositories, services, handlers and middleware into a
// Fiber app. publisher may be nil to disable event publishing.
func NewApp(cfg Config, db *gorm.DB, publisher services.EventPublisher) *fiber.App {
	// --- Repositories ---
	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	threadRepo := repositories.NewGORMThreadRepository(db)
	postRepo := repositories.NewGORMPostRepository(db)

	// --- Services ---
	productService := services.NewProductService(productRepo)
	cartService := services.NewCartService(productRepo)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret)
	forumService := services.NewForumService(threadRepo, postRepo, clock.Real{}, cfg.EditWindow, publisher)
	accountService := services.NewAccountService(userRepo, publisher)

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	catalogHandler := handlers.NewCatalogHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService, productService)
	forumHandler := handlers.NewForumHandler(forumService)
	adminHandler := handlers.NewAdminHandler(accountService)

	sessionStore := session.NewMemoryStore()

	app := fiber.New()
	app.Use(logger.New()) // Request logger

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Every API route carries the visitor's session and, when a bearer
	// token is present, the authenticated user.
	apiV1 := app.Group("/api/v1",
		middleware.SessionContext(sessionStore),
		middleware.UserContext(authService),
	)

	// Auth routes are reachable without a CSRF token so a fresh client
	// can bootstrap one via GET /auth/session.
	authHandler.RegisterRoutes(apiV1)

	// Everything else validates the CSRF token on mutating methods.
	protected := apiV1.Group("", middleware.CSRFProtect())
	cartHandler.RegisterRoutes(protected)
	forumHandler.RegisterRoutes(protected)

	admin := protected.Group("/admin",
		middleware.AuthRequired(authService),
		middleware.AdminRequired(),
	)
	catalogHandler.RegisterRoutes(protected, admin)
	adminHandler.RegisterRoutes(admin)

	return app
}

func main() {
	cfg := LoadConfig()

	// --- Database ---
	db, err := OpenDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	seedProducts(repositories.NewGORMProductRepository(db))

	// --- Event publisher (optional) ---
	// The site stays fully functional without a broker; moderation
	// events are simply not published.
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := events.NewClient(events.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Printf("RabbitMQ unavailable, continuing without event publishing: %v", err)
		} else {
			defer mqClient.Close()
			publisher = mqClient

			// Drain the moderation queue into the audit log.
			if err := mqClient.Consume(func(msg amqp.Delivery) error {
				log.Printf("Moderation event %s: %s", msg.Type, msg.Body)
				return nil
			}); err != nil {
				log.Printf("Failed to start moderation event consumer: %v", err)
			}
		}
	}

	app := NewApp(cfg, db, publisher)

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}

// seedProducts populates an empty catalog so a fresh install has
// something to show.
func seedProducts(repo repositories.ProductRepository) {
	existing, err := repo.GetAll(true)
	if err != nil || len(existing) > 0 {
		return
	}

	products := []models.Product{
		{Name: "Laptop", Description: "High performance laptop", Price: 1200.00, Stock: 10, Active: true},
		{Name: "Keyboard", Description: "Mechanical keyboard", Price: 75.00, Stock: 25, Active: true},
		{Name: "Mouse", Description: "Ergonomic wireless mouse", Price: 25.00, Stock: 50, Active: true},
	}

	for i := range products {
		if err := repo.Create(&products[i]); err != nil {
			log.Printf("Error seeding product %s: %v", products[i].Name, err)
		} else {
			log.Printf("Seeded product: %s (ID: %s)", products[i].Name, products[i].ID)
		}
	}
}
