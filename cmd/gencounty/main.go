// Command gencounty downloads the ACS 1-year county statistics and writes the county table.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	d "github.com/invertedv/countydata"
	"github.com/invertedv/countydata/acs"
	"github.com/invertedv/countydata/blob"
	"github.com/invertedv/countydata/build"
	"github.com/invertedv/countydata/labels"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("gencounty: %v", err)
	}
}

func run(ctx context.Context) error {
	lm, err := loadLabels(getEnv("COUNTY_LABELS", ""))
	if err != nil {
		return err
	}

	client, err := acs.NewClient(acs.WithKey(getEnv("CENSUS_API_KEY", "")))
	if err != nil {
		return err
	}

	cfg := build.DefaultConfig()
	cfg.Labels = lm

	opts := []build.Opt{
		build.WithProgress(os.Stdout),
		build.WithLabelCheck(getEnvBool("COUNTY_CHECK_LABELS", true)),
	}

	if dialect := getEnv("COUNTY_DB_DIALECT", ""); dialect != "" {
		dlct, err := d.Connect(dialect, getEnv("COUNTY_DB_DSN", ""))
		if err != nil {
			return err
		}
		defer func() { _ = dlct.Close() }()

		opts = append(opts, build.WithDialect(dlct, getEnv("COUNTY_DB_TABLE", "county_data")))
	}

	if os.Getenv("COUNTY_S3_BUCKET") != "" {
		store, err := blob.OpenFromEnv(ctx)
		if err != nil {
			return err
		}

		opts = append(opts, build.WithPublisher(store, getEnv("COUNTY_S3_KEY", "county_data.csv")))
	}

	b, err := build.New(client, cfg, opts...)
	if err != nil {
		return err
	}

	outFile := getEnv("COUNTY_FILE", "county_data.csv")
	log.Printf("Building %s for %d to %d", outFile, cfg.StartYear, cfg.EndYear)

	if _, err := b.Build(ctx, outFile); err != nil {
		return err
	}

	log.Println("Done")

	return nil
}

func loadLabels(path string) (labels.Map, error) {
	if path == "" {
		return labels.Default(), nil
	}

	return labels.Load(path)
}

// getEnv gets an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default fallback.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}

	return defaultValue
}
