package app

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.HTTPAddr != "0.0.0.0:3030" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel=%q", cfg.LogLevel)
	}
	if cfg.DBSchema != "relay" {
		t.Fatalf("DBSchema=%q", cfg.DBSchema)
	}
	if cfg.BusQueueSize != 128 {
		t.Fatalf("BusQueueSize=%d", cfg.BusQueueSize)
	}
	if cfg.WSWriteTimeout != 5*time.Second {
		t.Fatalf("WSWriteTimeout=%v", cfg.WSWriteTimeout)
	}
	if cfg.ReadinessRequireDB {
		t.Fatal("ReadinessRequireDB should default to false")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("RELAY_HTTP_ADDR", "127.0.0.1:9999")
	t.Setenv("RELAY_LOG_PRETTY", "true")
	t.Setenv("RELAY_BUS_QUEUE", "16")
	t.Setenv("RELAY_WS_WRITE_TIMEOUT", "250ms")
	t.Setenv("RELAY_WS_ORIGIN_PATTERNS", "chat.example.com,*.example.org")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.HTTPAddr != "127.0.0.1:9999" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if !cfg.LogPretty {
		t.Fatal("LogPretty should be true")
	}
	if cfg.BusQueueSize != 16 {
		t.Fatalf("BusQueueSize=%d", cfg.BusQueueSize)
	}
	if cfg.WSWriteTimeout != 250*time.Millisecond {
		t.Fatalf("WSWriteTimeout=%v", cfg.WSWriteTimeout)
	}
	if len(cfg.WSOriginPatterns) != 2 || cfg.WSOriginPatterns[1] != "*.example.org" {
		t.Fatalf("WSOriginPatterns=%v", cfg.WSOriginPatterns)
	}
}

func TestLoadConfig_RejectsBadDuration(t *testing.T) {
	t.Setenv("RELAY_WS_WRITE_TIMEOUT", "not-a-duration")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}
