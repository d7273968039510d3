package cli

import (
	"os"
	"path/filepath"
	"testing"

	"finboard/internal/config"
)

func TestSetupLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finboard.log")
	cfg := &config.Config{LogLevel: "debug", LogFormat: "json", LogFile: path}

	logger, closer := SetupLogger(cfg, "test")
	logger.Debug("hello from test")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}

func TestInitSessionStore_Memory(t *testing.T) {
	cfg := &config.Config{SessionBackend: "memory", LogLevel: "error"}
	logger, closer := SetupLogger(cfg, "test")
	defer closer.Close()

	store := InitSessionStore(logger, cfg)
	defer store.Close()
	if store == nil {
		t.Fatal("expected a session store")
	}
}
