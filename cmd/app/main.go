package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"OpsPulse/internal/di"
	"OpsPulse/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Printf("opspulse: %v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Printf("boot env=%s sink=%s clickhouse=%s kafka=%v",
		cfg.Environment, cfg.Ingest.Sink, cfg.ClickHouse.Database, cfg.Kafka.Brokers)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("assemble app: %w", err)
	}

	// the engine re-tunes itself when this file changes
	app.SetConfigPath(configPath)

	return app.Run()
}
