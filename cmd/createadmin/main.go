package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/lib/pq"

	"github.com/jsvoboda/recipe-api/internal/config"
	"github.com/jsvoboda/recipe-api/internal/database"
	"github.com/jsvoboda/recipe-api/internal/user"
)

// createadmin bootstraps a superuser account. The password is read from
// stdin so it never appears in shell history or process listings.
func main() {
	email := flag.String("email", "", "email address for the superuser account")
	flag.Parse()

	if *email == "" {
		log.Fatal("usage: createadmin -email <address>")
	}

	if err := run(*email); err != nil {
		log.Fatalf("createadmin: %v", err)
	}
}

func run(email string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sqlDB, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	db := database.NewBunDB(sqlDB)

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	fmt.Print("Password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	service := user.NewService(user.NewRepository(db))
	created, err := service.CreateSuperuser(ctx, email, password)
	if err != nil {
		return fmt.Errorf("failed to create superuser: %w", err)
	}

	fmt.Printf("Superuser %s created (id %s)\n", created.Email, created.ID)
	return nil
}
