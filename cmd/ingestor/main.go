package main

import (
	"context"
	"log"
	"os"

	"github.com/samirrijal/campusride/internal/adapters/postgres"
	"github.com/samirrijal/campusride/internal/adapters/static"
	"github.com/samirrijal/campusride/internal/core/usecases"
	"github.com/samirrijal/campusride/internal/pkg/config"
	"github.com/samirrijal/campusride/internal/pkg/logging"
)

// ingestor copies a catalog into postgres. With no argument it loads the
// embedded campus catalog; otherwise the JSON file named by the first argument.
func main() {
	cfg, err := config.Load("campusride-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "service", cfg.Telemetry.ServiceName)

	var cat *static.Catalog
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			log.Fatalf("read catalog: %v", err)
		}
		cat, err = static.Parse(data)
		if err != nil {
			log.Fatalf("parse catalog: %v", err)
		}
	} else {
		cat, err = static.Load()
		if err != nil {
			log.Fatalf("load catalog: %v", err)
		}
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	res, err := usecases.IngestCatalog(ctx, cat.Stops(), cat.Routes(), postgres.NewCatalogWriter(db.Pool))
	if err != nil {
		log.Fatalf("ingest: %v", err)
	}
	log.Printf("ingested %d stops, %d routes", res.Stops, res.Routes)
}
