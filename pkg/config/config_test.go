package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	StoreID       string        `split_words:"true" default:"2u8zw0on"`
	MaxIterations int           `split_words:"true" default:"5"`
	UTCOffset     time.Duration `envconfig:"UTC_OFFSET" default:"5h30m"`
	APIKey        string        `envconfig:"API_KEY" required:"true"`
}

func TestNewReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "CFGTEST_API_KEY=secret\nCFGTEST_MAX_ITERATIONS=7\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CFGTEST_STORE_ID", "from-env")
	t.Cleanup(func() {
		os.Unsetenv("CFGTEST_API_KEY")
		os.Unsetenv("CFGTEST_MAX_ITERATIONS")
		SetEnvFile("")
	})

	SetEnvFile(path)
	conf, err := New[sampleConfig]("CFGTEST")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.APIKey != "secret" || conf.MaxIterations != 7 {
		t.Fatalf("env file values not applied: %+v", conf)
	}
	if conf.StoreID != "from-env" {
		t.Fatalf("process env must win over file, got %s", conf.StoreID)
	}
	if conf.UTCOffset != 5*time.Hour+30*time.Minute {
		t.Fatalf("unexpected default offset: %s", conf.UTCOffset)
	}
}

func TestNewMissingRequired(t *testing.T) {
	if _, err := New[sampleConfig]("CFGMISSING"); err == nil {
		t.Fatal("expected error for missing required value")
	}
}
