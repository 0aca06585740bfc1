package main

import (
	"context"
	"fmt"
	"os"

	"instagram-scraper/config"
	"instagram-scraper/ocr"
	"instagram-scraper/scraper/instagram"
	"instagram-scraper/services"
	"instagram-scraper/storage"
	"instagram-scraper/telemetry"
	"instagram-scraper/utils"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Please provide an Instagram profile name as an argument.")
		return
	}
	profile := os.Args[1]

	cfg := config.Load()

	logger, err := utils.NewFileLogger(cfg.LogFilePath)
	if err != nil {
		logger.Warn("Could not open log file, logging to console only: %v", err)
	}
	defer logger.Close()

	logger.Info("=== Instagram Scraping System starting ===")
	logger.Info("Config — profile: %s | max posts: %d | headless: %v | output: %s",
		profile, cfg.MaxPosts, cfg.Headless, cfg.CSVPath(profile))

	sink := &telemetry.LogSink{Logger: logger}

	reader, err := ocr.NewReader()
	if err != nil {
		logger.Error("Failed to initialize OCR reader: %v", err)
		os.Exit(1)
	}
	defer reader.Close()

	csvWriter, err := storage.NewCSVWriter(cfg.CSVPath(profile))
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	igScraper := instagram.New(cfg, logger, sink, reader)
	result, err := igScraper.Run(context.Background(), profile, csvWriter)
	if err != nil {
		logger.Error("An error occurred: %v", err)
	}
	if result == nil || len(result.Posts) == 0 {
		logger.Error("No posts were scraped. Exiting.")
		return
	}

	logger.Info("Scraped %d posts — rows saved to %s", result.Processed, cfg.CSVPath(profile))

	if cfg.PostgresEnabled {
		pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
		} else {
			defer pgWriter.Close()
			if err := pgWriter.Write(result.Posts); err != nil {
				logger.Error("PostgreSQL write failed: %v", err)
			} else {
				logger.Info("Posts stored in PostgreSQL (tables: posts, comments)")
			}
		}
	}

	reportSvc := services.NewReportService(logger)
	report := reportSvc.Generate(profile, result.Posts)
	reportSvc.Print(report)

	fmt.Printf("  Done. CSV → %s\n\n", cfg.CSVPath(profile))
}
