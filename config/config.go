// Package config loads the module's configuration object: memory and
// parallelism defaults, the audit/enterprise block.
package config

// Config is the top-level configuration object. All values are optional
// and fall back to their documented defaults.
type Config struct {
	MaxMemoryMB    int              `yaml:"max_memory_mb"`
	EnableParallel bool             `yaml:"enable_parallel"`
	TempDir        string           `yaml:"temp_dir,omitempty"`
	Enterprise     EnterpriseConfig `yaml:"enterprise"`
}

// EnterpriseConfig gates audit logging and compliance verification
// strictness, plus platform API credentials for enterprise integrations.
type EnterpriseConfig struct {
	EnableAuditLogs               bool              `yaml:"enable_audit_logs"`
	AuditLogDir                   string            `yaml:"audit_log_dir,omitempty"`
	RequireComplianceVerification bool              `yaml:"require_compliance_verification"`
	PlatformAPIKeys               map[string]string `yaml:"platform_api_keys,omitempty"`
}

// DefaultMaxMemoryMB is the default memory cap.
const DefaultMaxMemoryMB = 4096

// Default returns the configuration that applies when no file is loaded:
// max_memory_mb 4096, enable_parallel true (cross-job only), no temp_dir
// override, enterprise features off.
func Default() Config {
	return Config{
		MaxMemoryMB:    DefaultMaxMemoryMB,
		EnableParallel: true,
	}
}

// MaxMemoryBytes converts MaxMemoryMB to bytes, falling back to
// DefaultMaxMemoryMB if unset or non-positive.
func (c Config) MaxMemoryBytes() int64 {
	mb := c.MaxMemoryMB
	if mb <= 0 {
		mb = DefaultMaxMemoryMB
	}
	return int64(mb) * 1024 * 1024
}
