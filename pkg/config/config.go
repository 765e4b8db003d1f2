package config

import (
	"os"
	"strconv"
)

// Config holds kernel process configuration.
type Config struct {
	NodeID                uint16
	LogLevel              string
	LedgerDSN             string
	Environment           string
	OTLPEndpoint          string
	ObservabilityOn       bool
	ObservabilityInsecure bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	nodeID := uint16(1)
	if v := os.Getenv("KERNEL_NODE_ID"); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 16); err == nil {
			nodeID = uint16(parsed)
		}
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	ledgerDSN := os.Getenv("KERNEL_LEDGER_DSN")
	if ledgerDSN == "" {
		// Default to an in-process sqlite file in the working directory.
		ledgerDSN = "kernel-ledger.db"
	}

	environment := os.Getenv("KERNEL_ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	observabilityOn := os.Getenv("KERNEL_OBSERVABILITY_DISABLED") != "true"
	observabilityInsecure := os.Getenv("KERNEL_OBSERVABILITY_INSECURE") == "true"

	return &Config{
		NodeID:                nodeID,
		LogLevel:              logLevel,
		LedgerDSN:             ledgerDSN,
		Environment:           environment,
		OTLPEndpoint:          otlpEndpoint,
		ObservabilityOn:       observabilityOn,
		ObservabilityInsecure: observabilityInsecure,
	}
}
