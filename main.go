package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"al-huda-school/app/config"
	"al-huda-school/app/firebase"
	"al-huda-school/app/firesync"
	syncroutes "al-huda-school/app/routes/sync"
	"al-huda-school/app/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// apiErrorHandler renders every error as a JSON envelope
func apiErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	})
}

func main() {
	// Set global time zone to Pakistan Standard Time
	loc, err := time.LoadLocation("Asia/Karachi")
	if err != nil {
		log.Printf("Warning: Failed to load Asia/Karachi location, falling back to UTC+5: %v", err)
		time.Local = time.FixedZone("PKT", 5*60*60)
	} else {
		time.Local = loc
	}
	log.Printf("Application time zone set to: %s", time.Local.String())

	// Load configuration and connect to PostgreSQL
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	defer cfg.DB.Close()

	// Connect to the Firestore replica
	ctx := context.Background()
	store, err := firebase.NewStore(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatal("Failed to connect to Firestore:", err)
	}
	defer store.Close()

	slogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	syncCfg := firesync.Config{
		MaxBatchSize: cfg.Sync.MaxBatchSize,
		Workers:      cfg.Sync.Workers,
		OpTimeout:    cfg.Sync.OpTimeout,
	}
	svc := services.NewSyncService(cfg.DB, store, syncCfg, slogger)

	// Start background sync scheduler
	services.StartScheduler(ctx, svc, cfg.Sync.RetentionDays)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: apiErrorHandler,
	})

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Setup sync routes
	syncroutes.SetupSyncRoutes(app, svc)

	// Catch-all route for 404 errors (must be last)
	app.Use("*", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not found")
	})

	// Start server
	log.Println("Sync server starting on", cfg.Listen)
	log.Fatal(app.Listen(cfg.Listen))
}
