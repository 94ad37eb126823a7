package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/blogprojesi/backend/internal/config"
	"github.com/blogprojesi/backend/internal/db"
	"github.com/blogprojesi/backend/internal/models"
	"github.com/blogprojesi/backend/internal/services"
	"github.com/blogprojesi/backend/internal/telemetry"
	"github.com/blogprojesi/backend/internal/utils"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: create_admin <username> <email> <password>")
		fmt.Println("Example: create_admin admin admin@example.com 'S3cret-Pass'")
		os.Exit(1)
	}
	username := os.Args[1]
	email := os.Args[2]
	password := os.Args[3]

	_ = godotenv.Load()
	cfg := config.Load()
	telemetry.SetupLogger(cfg.LogFormat, cfg.LogLevel)

	gormDB, err := db.Open(db.Config{
		DatabaseURL:     cfg.DatabaseURL,
		PoolSize:        cfg.PoolSize,
		PoolRecycle:     cfg.PoolRecycle,
		PoolPrePing:     cfg.PoolPrePing,
		ConnectTimeout:  cfg.ConnectTimeout,
		ApplicationName: cfg.ApplicationName,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	ctx := context.Background()
	svc := services.NewServices(services.Deps{DB: gormDB, Location: utils.LoadLocation(cfg.Timezone)})
	if err := svc.Settings.InitializeDefaults(ctx); err != nil {
		log.Fatalf("Failed to initialize settings: %v", err)
	}

	user, err := svc.Users.CreateUser(ctx, services.CreateUserInput{
		RegisterInput: services.RegisterInput{Username: username, Email: email, Password: password},
		Role:          models.RoleAdmin,
	}, &models.User{Username: services.SystemActor}, "")
	if err != nil {
		fmt.Printf("Failed to create admin: %s\n", services.Message(err))
		os.Exit(1)
	}

	fmt.Printf("Admin user created successfully!\n")
	fmt.Printf("ID: %d\n", user.ID)
	fmt.Printf("Username: %s\n", user.Username)
	fmt.Printf("Email: %s\n", user.Email)
	fmt.Printf("Role: %s\n", user.Role)
}
