package main

import (
	"github.com/castellan/extract/archive/flatpack"
	"github.com/castellan/extract/archive/genericpak"
	"github.com/castellan/extract/compliance"
	"github.com/castellan/extract/plugin"
)

// buildRegistry assembles the plugin registry from every archive format
// this build ships, each resolving compliance profiles through the same
// shared compliance registry.
func buildRegistry(complianceRegistry *compliance.Registry) *plugin.Registry {
	r := plugin.NewRegistry()
	r.Register(flatpack.NewFactory(complianceRegistry))
	r.Register(genericpak.NewFactory(complianceRegistry))
	return r
}

// loadCompliance loads profiles from dir, or returns an empty registry
// (falling back to the default profile for every lookup) if dir is empty.
func loadCompliance(dir string) (*compliance.Registry, error) {
	if dir == "" {
		return compliance.NewRegistry(), nil
	}
	return compliance.LoadDir(dir)
}
