// Package types defines the core domain model shared across the
// extraction pipeline: jobs, provenance, events, compliance profiles,
// and the patch-recipe document shape.
package types

import "time"

// JobState is the state of an extraction job. Transitions are monotonic
// except Running -> Failed.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// CanTransitionTo reports whether moving from s to next is a legal
// monotonic transition per the job state machine.
func (s JobState) CanTransitionTo(next JobState) bool {
	switch s {
	case JobQueued:
		return next == JobRunning
	case JobRunning:
		return next == JobCompleted || next == JobFailed
	default:
		return false
	}
}

// Job describes one extraction request.
type Job struct {
	ID         string
	SourcePath string
	OutputDir  string
	State      JobState
}

// NewJob creates a queued job with a fresh UUID id, assigned by the caller.
func NewJob(id, sourcePath, outputDir string) *Job {
	return &Job{
		ID:         id,
		SourcePath: sourcePath,
		OutputDir:  outputDir,
		State:      JobQueued,
	}
}

// RiskLevel classifies a compliance profile's extraction risk.
type RiskLevel string

const (
	RiskPermissive RiskLevel = "permissive"
	RiskNeutral    RiskLevel = "neutral"
	RiskHighRisk   RiskLevel = "high_risk"
)

// FormatSupport classifies how well a format is supported for a publisher.
type FormatSupport string

const (
	FormatSupported      FormatSupport = "supported"
	FormatCommunityOnly  FormatSupport = "community_only"
	FormatNotSupported   FormatSupport = "not_supported"
)

// ComplianceProfile is the policy record governing whether extraction
// from a given publisher's content is permitted, and with what warnings.
type ComplianceProfile struct {
	Publisher       string                   `yaml:"publisher" json:"publisher"`
	GameID          string                   `yaml:"game_id,omitempty" json:"game_id,omitempty"`
	Risk            RiskLevel                `yaml:"risk" json:"risk"`
	OfficialSupport bool                     `yaml:"official_support" json:"official_support"`
	BountyEligible  bool                     `yaml:"bounty_eligible" json:"bounty_eligible"`
	Warning         string                   `yaml:"warning,omitempty" json:"warning,omitempty"`
	PolicyURL       string                   `yaml:"policy_url,omitempty" json:"policy_url,omitempty"`
	FormatSupport   map[string]FormatSupport `yaml:"format_support,omitempty" json:"format_support,omitempty"`
}

// ExtractionAllowed implements the risk predicate:
// Permissive/Neutral allow extraction; HighRisk requires an explicit
// operator override.
func (p ComplianceProfile) ExtractionAllowed(operatorOverride bool) bool {
	if p.Risk == RiskHighRisk {
		return operatorOverride
	}
	return true
}

// DefaultProfile is returned by the Compliance Registry when a game_id
// has no matching profile.
func DefaultProfile() ComplianceProfile {
	return ComplianceProfile{
		Publisher: "unknown",
		Risk:      RiskNeutral,
		Warning:   "no compliance profile on file for this title; verify content ownership before distributing any derived output",
	}
}

// PluginInfo identifies the handler factory that produced a Provenance.
type PluginInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Provenance pins a job to a source hash, a plugin, a compliance profile
// snapshot, and a timestamp. Immutable once created.
type Provenance struct {
	SessionID  string            `json:"session_id"`
	GameID     string            `json:"game_id,omitempty"`
	SourceHash string            `json:"source_hash"`
	SourcePath string            `json:"source_path"`
	Profile    ComplianceProfile `json:"profile"`
	Timestamp  time.Time         `json:"timestamp"`
	CoreVersion string           `json:"core_version"`
	PluginInfo PluginInfo        `json:"plugin_info"`
}

// CoreVersion is the version stamped into every Provenance record.
// All on-disk artifacts (recipes, manifests, audit lines) reference
// this constant; it is authoritative.
const CoreVersion = "0.1.0"
