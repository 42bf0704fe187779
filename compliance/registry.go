// Package compliance implements the Compliance Registry (C1): a directory
// of per-publisher YAML profile documents, keyed by file stem, with a
// default-profile fallback for unrecognized content.
package compliance

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/castellan/extract/types"
)

// Registry resolves a game_id to a ComplianceProfile.
type Registry struct {
	profiles map[string]types.ComplianceProfile
}

// NewRegistry returns an empty Registry; every Resolve call falls through
// to the default profile until profiles are loaded.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]types.ComplianceProfile)}
}

// LoadDir populates the registry by reading one YAML document per *.yaml/
// *.yml file in dir; the file stem (name without extension) becomes the
// lookup key. Unknown YAML keys are rejected to catch authoring typos
// early, the same way strict config loaders do.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read compliance profile directory %q: %w", dir, err)
	}

	r := NewRegistry()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		key := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		path := filepath.Join(dir, entry.Name())

		profile, err := loadProfile(path)
		if err != nil {
			return nil, fmt.Errorf("loading compliance profile %q: %w", path, err)
		}
		r.profiles[key] = profile
	}
	return r, nil
}

func loadProfile(path string) (types.ComplianceProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ComplianceProfile{}, err
	}

	var profile types.ComplianceProfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&profile); err != nil && !errors.Is(err, io.EOF) {
		return types.ComplianceProfile{}, fmt.Errorf("invalid YAML: %w", err)
	}
	return profile, nil
}

// Put registers a profile directly under key, bypassing file loading; used
// by tests and by callers that source profiles from somewhere other than
// a directory (e.g. an embedded default set).
func (r *Registry) Put(key string, profile types.ComplianceProfile) {
	r.profiles[key] = profile
}

// Resolve looks up the profile for gameID, falling back to the default
// profile (Neutral risk, unknown publisher) when there is no match.
func (r *Registry) Resolve(gameID string) types.ComplianceProfile {
	if gameID == "" {
		return types.DefaultProfile()
	}
	if profile, ok := r.profiles[gameID]; ok {
		return profile
	}
	return types.DefaultProfile()
}

// Advisory formats a human-readable advisory string combining risk,
// warning, and policy URL for the terminal ComplianceDecision event,
// grounded on original_source/aegis-security/src/compliance.rs's advisory
// formatting.
func Advisory(profile types.ComplianceProfile) []string {
	var lines []string

	switch profile.Risk {
	case types.RiskHighRisk:
		lines = append(lines, fmt.Sprintf("%s is flagged high-risk; extraction requires an explicit operator override", publisherLabel(profile)))
	case types.RiskPermissive:
		lines = append(lines, fmt.Sprintf("%s permits extraction under its stated policy", publisherLabel(profile)))
	default:
		lines = append(lines, fmt.Sprintf("%s has no explicit extraction policy on file", publisherLabel(profile)))
	}

	if profile.Warning != "" {
		lines = append(lines, profile.Warning)
	}
	if profile.PolicyURL != "" {
		lines = append(lines, "policy: "+profile.PolicyURL)
	}
	if profile.BountyEligible {
		lines = append(lines, "this title participates in a bug/mod bounty program")
	}
	return lines
}

func publisherLabel(profile types.ComplianceProfile) string {
	if profile.Publisher == "" {
		return "this publisher"
	}
	return profile.Publisher
}
