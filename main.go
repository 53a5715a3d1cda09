package main

import (
	"flag"

	log "github.com/sirupsen/logrus"

	"github.com/0x3st/ainic/internal/config"
	"github.com/0x3st/ainic/internal/server"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("=== ainic — subdomain registry ===")
	log.Printf("Version: %s", version)
	log.Printf("Parent zone: %s", cfg.DNS.ParentZone)
	log.Printf("Listening on %s:%d", cfg.Server.Host, cfg.Server.Port)

	if err := server.Start(cfg, version); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
