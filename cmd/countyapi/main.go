// Command countyapi serves queries over the county table.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	d "github.com/invertedv/countydata"
	"github.com/invertedv/countydata/api"
	"github.com/invertedv/countydata/blob"
	"github.com/invertedv/countydata/labels"
	"github.com/invertedv/countydata/query"
)

func main() {
	log.Println("Starting county API...")

	ctx := context.Background()

	svc, err := loadService(ctx)
	if err != nil {
		log.Fatalf("Failed to load county table: %v", err)
	}

	log.Printf("Loaded %d rows, %d states", svc.Table().RowCount(), len(svc.States()))

	apiAddr := getEnv("API_ADDR", "0.0.0.0:8080")
	apiServer := api.NewServer(apiAddr, svc)

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Starting REST API server on %s", apiAddr)
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	log.Println("API endpoints:")
	log.Printf("  - States: http://%s/api/v1/states", apiAddr)
	log.Printf("  - Labels: http://%s/api/v1/labels", apiAddr)
	log.Printf("  - Ranking: http://%s/api/v1/ranking?label=", apiAddr)
	log.Printf("  - Health: http://%s/api/v1/health", apiAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v, shutting down...", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}

	log.Println("Shutdown complete")
}

// loadService reads the table from the database when COUNTY_DB_DIALECT is set, otherwise from
// COUNTY_FILE, first fetching it from S3 when COUNTY_S3_BUCKET is set.
func loadService(ctx context.Context) (*query.Service, error) {
	lm := labels.Default()
	if path := getEnv("COUNTY_LABELS", ""); path != "" {
		var err error
		if lm, err = labels.Load(path); err != nil {
			return nil, err
		}
	}

	if dialect := getEnv("COUNTY_DB_DIALECT", ""); dialect != "" {
		dlct, err := d.Connect(dialect, getEnv("COUNTY_DB_DSN", ""))
		if err != nil {
			return nil, err
		}
		defer func() { _ = dlct.Close() }()

		return query.LoadDB(dlct, getEnv("COUNTY_DB_TABLE", "county_data"), lm)
	}

	fileName := getEnv("COUNTY_FILE", "county_data.csv")
	if os.Getenv("COUNTY_S3_BUCKET") != "" {
		store, err := blob.OpenFromEnv(ctx)
		if err != nil {
			return nil, err
		}

		key := getEnv("COUNTY_S3_KEY", "county_data.csv")
		log.Printf("Fetching s3://%s/%s", store.Bucket(), key)

		if err := store.FetchFile(ctx, key, fileName); err != nil {
			return nil, err
		}
	}

	return query.Load(fileName, lm)
}

// getEnv gets an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}
