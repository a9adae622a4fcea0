// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv() {
	os.Setenv("DATABASE_URL", "postgres://test")
	os.Setenv("TALLY_SECRET", "tally-secret")
	os.Setenv("REVIEWER_KEY", "reviewer")
	os.Setenv("SUBMITTER_KEY", "submitter")
}

func TestParseFlags_EnvVars(t *testing.T) {
	setRequiredEnv()
	os.Setenv("PORT", "9000")
	os.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("expected two trimmed brokers, got %v", cfg.KafkaBrokers)
	}
	if cfg.KafkaTopic != "election-notifications" {
		t.Errorf("expected default topic, got %s", cfg.KafkaTopic)
	}
	if cfg.TickInterval != time.Minute || cfg.CodeTTL != 10*time.Minute || cfg.SessionTTL != 15*time.Minute {
		t.Errorf("unexpected timing defaults: %v %v %v", cfg.TickInterval, cfg.CodeTTL, cfg.SessionTTL)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	setRequiredEnv()
	os.Setenv("PORT", "9000")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{"-p", "8080", "-tick", "30s"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.TickInterval != 30*time.Second {
		t.Errorf("expected 30s tick, got %v", cfg.TickInterval)
	}
}

func TestParseFlags_MissingSecrets(t *testing.T) {
	os.Clearenv()
	os.Setenv("DATABASE_URL", "postgres://test")
	defer os.Clearenv()

	if _, err := ParseFlags([]string{}); err == nil {
		t.Error("expected an error without TALLY_SECRET")
	}
}

func TestParseFlags_KeysMustDiffer(t *testing.T) {
	setRequiredEnv()
	os.Setenv("SUBMITTER_KEY", "reviewer")
	defer os.Clearenv()

	if _, err := ParseFlags([]string{}); err == nil {
		t.Error("expected an error when reviewer and submitter keys match")
	}
}
