//go:build ignore

// run_migrations applies the session store migrations.
//
//	go run scripts/run_migrations.go [up|down]
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/phuocduongts/storefront/internal/config"
	"github.com/phuocduongts/storefront/internal/database"
	"github.com/phuocduongts/storefront/internal/logging"
)

const migrationDir = "migrations"

func main() {
	log := logging.New("migrations")

	if len(os.Args) < 2 || (os.Args[1] != "up" && os.Args[1] != "down") {
		fmt.Fprintln(os.Stderr, "Usage: go run scripts/run_migrations.go [up|down]")
		os.Exit(2)
	}
	direction := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	files, err := os.ReadDir(migrationDir)
	if err != nil {
		log.Error("Failed to read migration directory", "dir", migrationDir, "error", err)
		os.Exit(1)
	}

	var names []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), "."+direction+".sql") {
			names = append(names, file.Name())
		}
	}
	sort.Strings(names)
	if direction == "down" {
		slices.Reverse(names)
	}

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(migrationDir, name))
		if err != nil {
			log.Error("Failed to read migration", "file", name, "error", err)
			os.Exit(1)
		}

		log.Info("Running migration", "file", name)
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			log.Error("Migration failed", "file", name, "error", err)
			os.Exit(1)
		}
	}

	log.Info("Migrations complete", "count", len(names), "direction", direction)
}
