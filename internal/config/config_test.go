package config

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if cfg.PollInterval != 10*time.Second || cfg.PersistDebounce != 2*time.Second || cfg.GraceWindow != 5*time.Second {
		t.Errorf("timings = %v %v %v", cfg.PollInterval, cfg.PersistDebounce, cfg.GraceWindow)
	}
	if cfg.InitialBudget != 30_000_000 || cfg.StorageLimitMB != 45 || cfg.FetchRetries != 3 {
		t.Errorf("budget/limit/retries = %d/%v/%d", cfg.InitialBudget, cfg.StorageLimitMB, cfg.FetchRetries)
	}
	if cfg.SMTPEnabled() {
		t.Error("SMTP enabled without a host")
	}
}

func TestNewConfigOverrides(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "3s")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DB_CONN", "")
	t.Setenv("INITIAL_BUDGET", "1000000")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if cfg.PollInterval != 3*time.Second || cfg.StoreDriver != "memory" || cfg.InitialBudget != 1_000_000 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestNewConfigInvalid(t *testing.T) {
	tests := map[string][2]string{
		"bad duration": {"POLL_INTERVAL", "often"},
		"bad driver":   {"STORE_DRIVER", "mongo"},
		"bad retries":  {"FETCH_RETRIES", "0"},
		"no secret":    {"JWT_SECRET", ""},
		"bad budget":   {"INITIAL_BUDGET", "lots"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := NewConfig(); err == nil {
				t.Errorf("NewConfig() with %s=%q succeeded", kv[0], kv[1])
			}
		})
	}
}
