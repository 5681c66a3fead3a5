package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Trading.Symbol != "R_100" || c.Trading.Stake != 100 || c.Trading.Duration != 1 {
		t.Errorf("trading defaults = %+v", c.Trading)
	}
	if c.Trading.MinAccuracy != 70 || c.Trading.MinSampleSize != 5 {
		t.Errorf("threshold defaults = %v/%v", c.Trading.MinAccuracy, c.Trading.MinSampleSize)
	}
	if c.Trading.TickInterval != 5*time.Second || c.Trading.PollInterval != 2*time.Second || c.Trading.SettlementTimeout != 300*time.Second {
		t.Errorf("interval defaults = %v %v %v", c.Trading.TickInterval, c.Trading.PollInterval, c.Trading.SettlementTimeout)
	}
	if c.Redis.PingTimeout != 5*time.Second || c.Deriv.RequestTimeout != 30*time.Second {
		t.Errorf("timeouts = %v %v", c.Redis.PingTimeout, c.Deriv.RequestTimeout)
	}
	if c.Storage.LearningFile != "learning.json" {
		t.Errorf("learning file = %q", c.Storage.LearningFile)
	}
	if c.Notify.Email.SMTPHost != "smtp.gmail.com" || c.Notify.Email.SMTPPort != 587 {
		t.Errorf("smtp = %s:%d", c.Notify.Email.SMTPHost, c.Notify.Email.SMTPPort)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "trading:\n  symbol: R_50\n  stake: 10\nstorage:\n  backend: memory\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Trading.Symbol != "R_50" || c.Trading.Stake != 10 {
		t.Errorf("overlay = %+v", c.Trading)
	}
	// untouched keys keep their defaults
	if c.Trading.Currency != "USD" {
		t.Errorf("currency = %q", c.Trading.Currency)
	}
	if c.Storage.Backend != "memory" {
		t.Errorf("backend = %q", c.Storage.Backend)
	}
}

func TestApplyEnv(t *testing.T) {
	c, _ := Load("")
	err := c.applyEnv(envMap(map[string]string{
		"DERIV_API_TOKEN":     "tok",
		"DERIV_APP_ID":        "1089",
		"DERIV_SYMBOL":        "R_25",
		"DERIV_STAKE":         "2.5",
		"DERIV_DURATION_MIN":  "3",
		"DERIV_TIMEFRAME_SEC": "300",
		"LEARNING_FILE":       "/tmp/l.json",
		"KAFKA_BROKERS":       "a:9092,b:9092",
	}))
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if c.Deriv.APIToken != "tok" || c.Deriv.AppID != "1089" {
		t.Errorf("deriv = %+v", c.Deriv)
	}
	if c.Trading.Symbol != "R_25" || c.Trading.Stake != 2.5 || c.Trading.Duration != 3 || c.Trading.Granularity != 300 {
		t.Errorf("trading = %+v", c.Trading)
	}
	if c.Storage.LearningFile != "/tmp/l.json" {
		t.Errorf("learning file = %q", c.Storage.LearningFile)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Errorf("kafka = %v %v", c.Kafka.Enabled, c.Kafka.Brokers)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestApplyEnvInvalidNumber(t *testing.T) {
	c, _ := Load("")
	err := c.applyEnv(envMap(map[string]string{
		"DERIV_STAKE":        "lots",
		"DERIV_DURATION_MIN": "1m",
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"DERIV_STAKE", "DERIV_DURATION_MIN"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c, _ := Load("")
		c.Deriv.APIToken = "tok"
		c.Deriv.AppID = "1089"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"missing token", func(c *Config) { c.Deriv.APIToken = "" }, true},
		{"zero stake", func(c *Config) { c.Trading.Stake = 0 }, true},
		{"accuracy above 100", func(c *Config) { c.Trading.MinAccuracy = 101 }, true},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, true},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }, true},
		{"timeout below poll", func(c *Config) { c.Trading.SettlementTimeout = time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
