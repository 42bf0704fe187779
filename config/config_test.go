package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_MatchesDocumentedDefaults(t *testing.T) {
	cfg := Default()
	if cfg.MaxMemoryMB != 4096 {
		t.Fatalf("MaxMemoryMB = %d, want 4096", cfg.MaxMemoryMB)
	}
	if !cfg.EnableParallel {
		t.Fatal("EnableParallel should default to true")
	}
}

func TestLoad_UnsetFieldsKeepDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "castellan.yaml")
	if err := os.WriteFile(path, []byte("enterprise:\n  enable_audit_logs: true\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxMemoryMB != 4096 {
		t.Fatalf("MaxMemoryMB = %d, want default 4096 to survive an omitted key", cfg.MaxMemoryMB)
	}
	if !cfg.Enterprise.EnableAuditLogs {
		t.Fatal("EnableAuditLogs should be true per the file")
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load("/no/such/castellan.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "castellan.yaml")
	if err := os.WriteFile(path, []byte("max_memry_mb: 10\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown field (typo'd key)")
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("CASTELLAN_API_KEY", "secret-123")
	dir := t.TempDir()
	path := filepath.Join(dir, "castellan.yaml")
	doc := "enterprise:\n  platform_api_keys:\n    steam: \"${CASTELLAN_API_KEY}\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Enterprise.PlatformAPIKeys["steam"] != "secret-123" {
		t.Fatalf("platform_api_keys[steam] = %q, want expanded env value", cfg.Enterprise.PlatformAPIKeys["steam"])
	}
}

func TestMaxMemoryBytes_ConvertsFromMB(t *testing.T) {
	cfg := Config{MaxMemoryMB: 16}
	if got, want := cfg.MaxMemoryBytes(), int64(16*1024*1024); got != want {
		t.Fatalf("MaxMemoryBytes() = %d, want %d", got, want)
	}
}
