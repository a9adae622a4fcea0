package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        int
	DatabaseURL string

	// Secrets
	TallySecret  string
	ReviewerKey  string
	SubmitterKey string

	// Optional infrastructure; empty values fall back to in-process
	// substitutes (memory session store, log notifier).
	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string

	// Timing
	TickInterval time.Duration
	CodeTTL      time.Duration
	SessionTTL   time.Duration
}

// ParseFlags validates flags and fills defaults from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var brokers string

	fs := flag.NewFlagSet("safely-elect", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.RedisAddr, "redis", "", "Redis address (optional)")
	fs.StringVar(&brokers, "brokers", "", "Kafka brokers, comma separated (optional)")
	fs.StringVar(&cfg.KafkaTopic, "topic", "", "Kafka notification topic")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.TallySecret, "tally-secret", "", "Tally cipher secret (prefer env)")
	fs.StringVar(&cfg.ReviewerKey, "reviewer-key", "", "Reviewer admin key (prefer env)")
	fs.StringVar(&cfg.SubmitterKey, "submitter-key", "", "Submitter admin key (prefer env)")

	fs.DurationVar(&cfg.TickInterval, "tick", 0, "Roster materializer interval")
	fs.DurationVar(&cfg.CodeTTL, "code-ttl", 0, "One-time code expiry")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", 0, "Voting session expiry")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3419 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.RedisAddr == "" {
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	}
	if brokers == "" {
		brokers = os.Getenv("KAFKA_BROKERS")
	}
	if brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = os.Getenv("KAFKA_TOPIC")
		if cfg.KafkaTopic == "" {
			cfg.KafkaTopic = "election-notifications"
		}
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return Config{}, errors.New("KAFKA_TOPIC required when brokers are set")
	}

	// Secrets - MUST be provided
	if cfg.TallySecret == "" {
		cfg.TallySecret = os.Getenv("TALLY_SECRET")
	}
	if cfg.TallySecret == "" {
		return Config{}, errors.New("TALLY_SECRET required")
	}

	if cfg.ReviewerKey == "" {
		cfg.ReviewerKey = os.Getenv("REVIEWER_KEY")
	}
	if cfg.ReviewerKey == "" {
		return Config{}, errors.New("REVIEWER_KEY required")
	}

	if cfg.SubmitterKey == "" {
		cfg.SubmitterKey = os.Getenv("SUBMITTER_KEY")
	}
	if cfg.SubmitterKey == "" {
		return Config{}, errors.New("SUBMITTER_KEY required")
	}
	if cfg.ReviewerKey == cfg.SubmitterKey {
		return Config{}, errors.New("REVIEWER_KEY and SUBMITTER_KEY must differ")
	}

	if cfg.TickInterval == 0 {
		cfg.TickInterval = envDuration("TICK_INTERVAL", time.Minute)
	}
	if cfg.CodeTTL == 0 {
		cfg.CodeTTL = envDuration("CODE_TTL", 10*time.Minute)
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = envDuration("SESSION_TTL", 15*time.Minute)
	}

	return cfg, nil
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
