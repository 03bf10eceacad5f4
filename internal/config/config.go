package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Azure DevOps configuration
	Organization string // Required: Azure DevOps organization name
	PAT          string // Required (unless loaded from S3): personal access token
	Project      string // Optional: default project for created bugs

	// S3 configuration for PAT storage
	PATBucketName string // Optional: S3 bucket holding the encrypted PAT
	PATEncryptKey string // Required with bucket: base64 32-byte AES-256 key

	// Slack configuration for bug-created notifications
	SlackBotToken  string // Optional: Slack bot user OAuth token
	SlackChannelID string // Optional: channel to notify

	// Server configuration
	Port string // HTTP listen port

	// Log level
	LogLevel string
}

// Load creates a new Config instance from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		PAT:            os.Getenv("AZURE_DEVOPS_PAT"),
		Project:        os.Getenv("AZURE_DEVOPS_PROJECT"),
		PATBucketName:  os.Getenv("AZDO_PAT_BUCKET"),
		PATEncryptKey:  os.Getenv("AZDO_PAT_ENCRYPT_KEY"),
		SlackBotToken:  os.Getenv("SLACK_BOT_TOKEN"),
		SlackChannelID: os.Getenv("SLACK_CHANNEL_ID"),
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	// Load required values
	requiredVars := map[string]*string{
		"AZURE_DEVOPS_ORG": &cfg.Organization,
	}

	var missingVars []string
	for env, ptr := range requiredVars {
		*ptr = os.Getenv(env)
		if *ptr == "" {
			missingVars = append(missingVars, env)
		}
	}

	// The PAT may come from the S3 credential store instead of the environment
	if cfg.PAT == "" && cfg.PATBucketName == "" {
		missingVars = append(missingVars, "AZURE_DEVOPS_PAT")
	}
	if cfg.PATBucketName != "" && cfg.PATEncryptKey == "" {
		missingVars = append(missingVars, "AZDO_PAT_ENCRYPT_KEY")
	}

	if len(missingVars) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missingVars, ", "))
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
