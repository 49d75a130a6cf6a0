package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/counter-pos/db"
	"github.com/xenking/counter-pos/internal/catalogapi"
	"github.com/xenking/counter-pos/internal/domain/catalog"
	"github.com/xenking/counter-pos/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "catalog JSON file, optionally gzipped (.gz); the bundled sample when empty")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	data, err := readCatalog(catalogFile)
	if err != nil {
		return err
	}

	products, combos, err := catalogapi.DecodeCatalog(data)
	if err != nil {
		return errors.Wrap(err, "parse catalog")
	}
	// Reject duplicates before touching the database.
	if _, err := catalog.NewSnapshot(products, combos); err != nil {
		return errors.Wrap(err, "check catalog")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewCatalogRepository(pool)
	if err := repo.Upsert(ctx, products, combos); err != nil {
		return errors.Wrap(err, "upsert catalog")
	}

	slog.Info("catalog seeded",
		slog.Int("products", len(products)),
		slog.Int("combos", len(combos)),
	)
	return nil
}

func readCatalog(path string) ([]byte, error) {
	if path == "" {
		slog.Info("using bundled sample catalog")
		return db.SeedCatalog, nil
	}

	slog.Info("reading catalog file", slog.String("path", path))

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog file")
	}
	if !strings.HasSuffix(path, ".gz") {
		return raw, nil
	}

	gz, err := pgzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "open gzip")
	}
	defer func() { _ = gz.Close() }()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, errors.Wrap(err, "decompress catalog")
	}
	return data, nil
}
