package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"radar_user" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"radar_password" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"topic_radar" description:"Database name"`

	// HTTP server
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for trigger endpoints (optional)"`

	// Collection
	SourcesFile         string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"Source chain table file (optional, built-in defaults used when absent)"`
	WorkerCount         int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers"`
	SchedulerInterval   int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler tick interval in seconds"`
	CooldownMinutes     int    `long:"cooldown-minutes" env:"COOLDOWN_MINUTES" default:"30" description:"Minimum interval between collections of the same topic"`
	CollectionDeadline  int    `long:"collection-deadline" env:"COLLECTION_DEADLINE" default:"180" description:"Per-topic collection deadline in seconds"`
	TopicConcurrency    int    `long:"topic-concurrency" env:"TOPIC_CONCURRENCY" default:"3" description:"Max topics collected concurrently during a pass"`
	RateAcquireTimeout  int    `long:"rate-acquire-timeout" env:"RATE_ACQUIRE_TIMEOUT" default:"5" description:"Max seconds to wait for a source rate slot"`
	ExtractionBatchSize int    `long:"extraction-batch-size" env:"EXTRACTION_BATCH_SIZE" default:"20" description:"Max posts per content extraction run"`

	// Digest
	DigestInterval   int    `long:"digest-interval" env:"DIGEST_INTERVAL" default:"3600" description:"Seconds between digest eligibility sweeps"`
	DigestGraceMin   int    `long:"digest-grace" env:"DIGEST_GRACE_MINUTES" default:"5" description:"Grace minutes absorbing digest trigger jitter"`
	BrevoAPIKey      string `long:"brevo-api-key" env:"BREVO_API" description:"Brevo transactional email API key"`
	BrevoFromEmail   string `long:"brevo-from" env:"BREVO_FROM" default:"noreply@topic-radar.dev" description:"Digest sender address"`
	BrevoFromName    string `long:"brevo-from-name" env:"BREVO_FROM_NAME" default:"Topic Radar" description:"Digest sender name"`
	SummarizerURL    string `long:"summarizer-url" env:"SUMMARIZER_URL" description:"OpenAI-compatible chat completions endpoint (optional)"`
	SummarizerModel  string `long:"summarizer-model" env:"SUMMARIZER_MODEL" default:"gpt-4o-mini" description:"Summarizer model name"`
	SummarizerAPIKey string `long:"summarizer-api-key" env:"SUMMARIZER_API_KEY" description:"Summarizer API key"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Topic Radar/1.0" description:"User agent string for outbound HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:              raw.DBHost,
		DBPort:              raw.DBPort,
		DBUser:              raw.DBUser,
		DBPassword:          raw.DBPassword,
		DBName:              raw.DBName,
		Port:                raw.Port,
		APIAccessKey:        raw.APIAccessKey,
		SourcesFile:         raw.SourcesFile,
		WorkerCount:         raw.WorkerCount,
		SchedulerInterval:   raw.SchedulerInterval,
		CooldownMinutes:     raw.CooldownMinutes,
		CollectionDeadline:  raw.CollectionDeadline,
		TopicConcurrency:    raw.TopicConcurrency,
		RateAcquireTimeout:  raw.RateAcquireTimeout,
		ExtractionBatchSize: raw.ExtractionBatchSize,
		DigestInterval:      raw.DigestInterval,
		DigestGraceMin:      raw.DigestGraceMin,
		BrevoAPIKey:         raw.BrevoAPIKey,
		BrevoFromEmail:      raw.BrevoFromEmail,
		BrevoFromName:       raw.BrevoFromName,
		SummarizerURL:       raw.SummarizerURL,
		SummarizerModel:     raw.SummarizerModel,
		SummarizerAPIKey:    raw.SummarizerAPIKey,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
