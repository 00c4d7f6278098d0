package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"rsyncsight/version"
)

type Config struct {
	InputFile         string            `json:"input_file"`
	OutputFormat      string            `json:"output_format"`
	OutputFileName    string            `json:"output_file_name"`
	IncludePatterns   []string          `json:"include_patterns"`
	ExcludePatterns   []string          `json:"exclude_patterns"`
	LogLevel          string            `json:"log_level"`
	CollectSystemInfo bool              `json:"collect_system_info"`
	ShowProgress      bool              `json:"progress"`
	ConfigFile        string            `json:"config_file"`
	OtelEndpoint      string            `json:"otel_endpoint"`
	OtelFromEnv       bool              `json:"otel_from_env"`
	OtelHeaders       map[string]string `json:"otel_headers"`
	OtelServiceName   string            `json:"otel_service_name"`
	OtelTimeout       time.Duration     `json:"otel_timeout"`
	OtelExportPaths   bool              `json:"otel_export_paths"`
}

func LoadConfig() (*Config, error) {
	now := time.Now().UTC()
	timestamp := now.Format("20060102-150405")
	cfg := &Config{
		InputFile:         "-",
		OutputFormat:      "json",
		OutputFileName:    fmt.Sprintf("rsyncsight-%s-%d.json", timestamp, now.Unix()),
		IncludePatterns:   []string{},
		ExcludePatterns:   []string{},
		LogLevel:          "info",
		CollectSystemInfo: false,
		ShowProgress:      true,
		OtelEndpoint:      "",
		OtelFromEnv:       false,
		OtelHeaders:       map[string]string{},
		OtelServiceName:   "rsyncsight",
		OtelTimeout:       5 * time.Second,
		OtelExportPaths:   false,
	}

	input := flag.String("input", cfg.InputFile, "Path to a captured rsync output file, or - for stdin (default: -).")
	format := flag.String("format", cfg.OutputFormat, fmt.Sprintf("Report format: json, ndjson, or csv (default: %s).", cfg.OutputFormat))
	output := flag.String("output", cfg.OutputFileName, "Report file name (default: rsyncsight-<timestamp>-<unix>.json).")
	includes := flag.String("include", "", "Comma-separated glob/regex patterns; only matching change paths are exported (default: none).")
	excludes := flag.String("exclude", "", "Comma-separated glob/regex patterns; matching change paths are dropped from the export (default: none).")
	logLevel := flag.String("log-level", cfg.LogLevel, fmt.Sprintf("Log level: debug, info, warn, error, fatal, or panic (default: %s).", cfg.LogLevel))
	collectSystemInfo := flag.Bool("collect-system-info", cfg.CollectSystemInfo, fmt.Sprintf("Attach a host snapshot to the report (default: %t).", cfg.CollectSystemInfo))
	progress := flag.Bool("progress", cfg.ShowProgress, fmt.Sprintf("Show ingest progress on a terminal (default: %t).", cfg.ShowProgress))
	configFile := flag.String("config", "", "Path to JSON configuration file (default: none).")
	otelEndpoint := flag.String("otel-endpoint", cfg.OtelEndpoint, "OTLP/HTTP logs endpoint (default: none).")
	otelFromEnv := flag.Bool("otel-from-env", cfg.OtelFromEnv, "Allow OTEL endpoint fallback from OTEL environment variables (default: false).")
	otelHeaders := flag.String("otel-headers", "", "Comma-separated OTEL headers (key=value) for export (default: none).")
	otelServiceName := flag.String("otel-service-name", cfg.OtelServiceName, "OTEL service name for export (default: rsyncsight).")
	otelTimeout := flag.Duration("otel-timeout", cfg.OtelTimeout, "OTEL export timeout (default: 5s).")
	otelExportPaths := flag.Bool("otel-export-paths", cfg.OtelExportPaths, "Include change paths in OTEL payloads (default: false).")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = displayHelp
	flag.Parse()

	if *showVersion {
		fmt.Printf("rsyncsight version %s\n", version.Version)
		os.Exit(0)
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	// Flags given explicitly on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputFile = *input
		case "format":
			cfg.OutputFormat = strings.ToLower(*format)
		case "output":
			cfg.OutputFileName = *output
		case "include":
			cfg.IncludePatterns = parseCommaSeparated(*includes)
		case "exclude":
			cfg.ExcludePatterns = parseCommaSeparated(*excludes)
		case "log-level":
			cfg.LogLevel = *logLevel
		case "collect-system-info":
			cfg.CollectSystemInfo = *collectSystemInfo
		case "progress":
			cfg.ShowProgress = *progress
		case "otel-endpoint":
			cfg.OtelEndpoint = strings.TrimSpace(*otelEndpoint)
		case "otel-from-env":
			cfg.OtelFromEnv = *otelFromEnv
		case "otel-headers":
			cfg.OtelHeaders = parseHeaders(*otelHeaders)
		case "otel-service-name":
			cfg.OtelServiceName = strings.TrimSpace(*otelServiceName)
		case "otel-timeout":
			cfg.OtelTimeout = *otelTimeout
		case "otel-export-paths":
			cfg.OtelExportPaths = *otelExportPaths
		}
	})
	if args := flag.Args(); len(args) == 1 && cfg.InputFile == "-" {
		cfg.InputFile = args[0]
	}
	cfg.OutputFormat = strings.ToLower(strings.TrimSpace(cfg.OutputFormat))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func displayHelp() {
	fmt.Println("rsyncsight - rsync itemized-output analyzer")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  rsyncsight [options] [input-file]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  rsync -ain --stats src/ dst/ | rsyncsight")
	fmt.Println("  rsyncsight --input run.log --format ndjson --output run.ndjson")
	fmt.Println("  rsyncsight --exclude \"*.tmp\" run.log")
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %v", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config file format: %v", err)
	}
	return nil
}

func (cfg *Config) validate() error {
	switch cfg.OutputFormat {
	case "json", "ndjson", "csv":
	default:
		return fmt.Errorf("invalid output format: %s (json, ndjson, or csv)", cfg.OutputFormat)
	}
	if strings.TrimSpace(cfg.InputFile) == "" {
		return fmt.Errorf("input must be a file path or - for stdin")
	}
	if strings.TrimSpace(cfg.OutputFileName) == "" {
		return fmt.Errorf("output file name must not be empty")
	}
	if cfg.OtelTimeout < 0 {
		return fmt.Errorf("otel-timeout must be zero or positive")
	}
	return nil
}

func parseCommaSeparated(input string) []string {
	if input == "" {
		return []string{}
	}
	items := strings.Split(input, ",")
	for i, item := range items {
		items[i] = strings.TrimSpace(item)
	}
	return items
}

func parseHeaders(input string) map[string]string {
	headers := make(map[string]string)
	if input == "" {
		return headers
	}
	items := strings.Split(input, ",")
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		headers[key] = value
	}
	return headers
}
