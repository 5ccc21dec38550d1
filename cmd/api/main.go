package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-pos-access/internal/cache"
	"go-pos-access/internal/config"
	"go-pos-access/internal/event"
	"go-pos-access/internal/handler"
	"go-pos-access/internal/nav"
	"go-pos-access/internal/repository"
	"go-pos-access/internal/service"
	"go-pos-access/internal/ws"
	"go-pos-access/pkg/database"
	"go-pos-access/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// 1. Load config
	config.Logger()
	cfg := config.Load()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 2. Setup storage
	userRepo, roleRepo := setupRepositories(cfg.Database)

	// 3. Seed built-in roles and admin user
	if err := service.Seed(ctx, userRepo, roleRepo, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}

	// 4. Setup event fan-out: local websocket hub, plus Redis when configured
	wsHub := ws.NewHub()
	go wsHub.Run(ctx)

	publishers := event.Multi{wsHub}
	if cfg.Redis.Enabled() {
		redisClient, err := cache.NewClient(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		bus := cache.NewBus(redisClient, cfg.Redis.Channel)
		publishers = append(publishers, bus)
		go func() {
			if err := bus.Forward(ctx, wsHub); err != nil {
				log.Printf("Warning: event relay stopped: %v", err)
			}
		}()
		log.Printf("Relaying events over Redis channel %s", cfg.Redis.Channel)
	}

	// 5. Dependency Injection (Wiring Layers)
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL())
	navigation := nav.NewResolver(nav.AdminNav)

	authService := service.NewAuthService(userRepo, tokens, publishers, navigation, cfg.Session.IdleTimeout)
	roleService := service.NewRoleService(roleRepo, publishers)
	userService := service.NewUserService(userRepo, roleRepo, publishers)

	handlers := handler.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Roles:      handler.NewRoleHandler(roleService),
		Permission: handler.NewPermissionHandler(roleService),
		Users:      handler.NewUserHandler(userService),
		Hub:        wsHub,
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      cfg.Server.AppName,
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 7. Routes
	handler.RegisterRoutes(app, handlers, authService) // includes /ws

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Panic(err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	stop()

	log.Println("Server exited")
}

func setupRepositories(cfg config.DatabaseConfig) (repository.UserRepository, repository.RoleRepository) {
	if cfg.Driver == "memory" {
		log.Println("Warning: DB_DRIVER=memory, data is lost on restart")
		store := repository.NewMemoryStore()
		return store.Users(), store.Roles()
	}

	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	return repository.NewUserRepo(db), repository.NewRoleRepo(db)
}
