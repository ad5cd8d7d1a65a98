package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Feed struct {
		// Transport selects the realtime backend: "websocket" or "nats".
		Transport string `yaml:"transport"`
		URL       string `yaml:"url"`
		// AuctionFilter scopes channel subscriptions to one auction.
		AuctionFilter string `yaml:"auction_filter"`
	} `yaml:"feed"`
	API struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"api"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Feed.Transport == "" {
		config.Feed.Transport = "websocket"
	}

	return &config, nil
}
