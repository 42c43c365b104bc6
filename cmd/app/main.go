package main

import (
	"context"
	"flag"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"MarketSim/internal/di"
	"MarketSim/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	printConfig := flag.Bool("print-config", false, "print the effective config (file, .env and MARKETSIM_* applied) and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if *printConfig {
		redacted := *cfg
		redacted.Redis.Password = redact(redacted.Redis.Password)
		redacted.ClickHouse.Password = redact(redacted.ClickHouse.Password)
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(&redacted); err != nil {
			log.Fatalf("print config: %v", err)
		}
		return
	}

	// Wire DI: every component, disabled backends resolve to nil
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Blocks until SIGINT/SIGTERM
	if err := app.Run(context.Background()); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "******"
}
