package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"materiel-tracker/core/config"
	"materiel-tracker/core/database"
	"materiel-tracker/core/loader"
	"materiel-tracker/core/logger"
	"materiel-tracker/core/middleware/auth"
	"materiel-tracker/core/middleware/rayid"
	"materiel-tracker/core/storage"

	"materiel-tracker/feature/inventory"
	"materiel-tracker/feature/materiel"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "materiel-tracker/docs/swagger"
)

// @title Materiel Tracker API
// @version 1.0
// @description Campaign reconciliation engine for institutional asset inventories.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the materiel tracker server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}
		logg.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

		// 4. Initialize Photo Storage
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logg.Fatal("Failed to create storage client", zap.Error(err))
		}

		// 5. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We log our own startup message
		})

		// 6. Initialize Feature Loader
		mgr := loader.NewManager()

		materielFeature := materiel.NewFeature(db, store, cfg.Storage, logg, materiel.Options{
			NumberPrefix:          cfg.Engine.NumberPrefix,
			MaxAllocationAttempts: cfg.Engine.MaxAllocationAttempts,
		})
		inventoryFeature := inventory.NewFeature(db, materielFeature.Service(), logg, inventory.Options{
			LookupTimeout:  time.Duration(cfg.Engine.LookupTimeoutSeconds) * time.Second,
			ConfirmTimeout: time.Duration(cfg.Engine.ConfirmTimeoutSeconds) * time.Second,
		})

		mgr.Register(materielFeature)
		mgr.Register(inventoryFeature)

		// Middleware Registration
		// RayID must be first to trace everything
		app.Use(rayid.New())

		// Request logging with Zap + RayID
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Swagger Documentation (Public)
		app.Get("/swagger/*", swagger.HandlerDefault)

		// Auth (protect the engine API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 7. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 8. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 9. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
