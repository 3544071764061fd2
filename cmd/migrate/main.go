package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/campusride/internal/pkg/config"
	"github.com/samirrijal/campusride/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|status>")
	}

	cfg, err := config.Load("campusride-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	all, err := migrations.All()
	if err != nil {
		log.Fatalf("load migrations: %v", err)
	}

	switch os.Args[1] {
	case "up":
		runMigrations(ctx, pool, all)
	case "status":
		for _, m := range all {
			fmt.Printf("    %s\n", m.Name)
		}
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

// runMigrations applies every embedded migration in order. Each file is
// written to be re-runnable.
func runMigrations(ctx context.Context, pool *pgxpool.Pool, all []migrations.Migration) {
	for _, m := range all {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			log.Fatalf("exec %s: %v", m.Name, err)
		}
		fmt.Printf("OK  %s\n", m.Name)
	}

	log.Println("all migrations applied")
}
