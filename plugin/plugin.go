// Package plugin implements the Plugin Registry & Handler Contract: a
// registry of format-detecting handler factories and the two-phase
// dispatch policy that picks one for a source.
package plugin

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/castellan/extract/decompress"
	"github.com/castellan/extract/failure"
	"github.com/castellan/extract/types"
)

// HeaderPeekSize is the maximum number of leading bytes a Factory's Detect
// may inspect; detect must be a pure, side-effect-free function of no more
// than this many bytes and must tolerate truncated input by returning false.
const HeaderPeekSize = 1024

// Factory produces Handlers for one archive format and advertises how to
// recognize it.
type Factory interface {
	// Name uniquely identifies this factory within a Registry.
	Name() string
	// Version is the factory's own format-support version string.
	Version() string
	// SupportedExtensions lists file extensions (with leading dot, e.g.
	// ".pak") this format is conventionally found under.
	SupportedExtensions() []string
	// Detect reports whether header, the first up-to-HeaderPeekSize bytes
	// of the source, looks like this factory's format. Must be pure and
	// must not panic or error on truncated input.
	Detect(header []byte) bool
	// Create opens a Handler bound to the source at path.
	Create(ctx context.Context, path string) (Handler, error)
	// ComplianceInfo describes this plugin for audit and advisory display.
	ComplianceInfo() types.PluginInfo
}

// Handler is bound to one opened source and can enumerate and read its
// entries.
type Handler interface {
	// ListEntries returns metadata for every entry without decoding payloads.
	ListEntries(ctx context.Context) ([]types.EntryMetadata, error)
	// ReadEntry returns the entry's raw compressed region and the
	// algorithm needed to decode it.
	ReadEntry(ctx context.Context, id types.EntryID) (compressed []byte, algo decompress.Algorithm, expectedSize int64, err error)
	// Profile is the compliance profile resolved for this source (via C1).
	Profile() types.ComplianceProfile
	// Provenance records source identity: content hash, plugin name/version.
	Provenance() types.Provenance
	// Close releases any resources (open file handles) held by the handler.
	Close() error
}

// OffsetReporter is implemented by handlers whose entries live at a fixed
// byte range within the opened source file, letting the Patch-Recipe
// Engine build byte-range deltas instead of embedding decoded payloads.
// Formats that pack entries without a seekable offset table (no fixed
// range exists to pin a delta to) do not implement this.
type OffsetReporter interface {
	EntryOffset(id types.EntryID) (offset, compressedSize int64, ok bool)
}

// Registry holds registered factories and implements FindFactory's
// two-phase dispatch.
type Registry struct {
	factories []Factory
	byName    map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Factory)}
}

// Register adds factory under its Name. Registering a duplicate name
// replaces the prior registration's dispatch order position with panic-free
// last-write-wins, matching the "registration is by unique name" rule.
func (r *Registry) Register(f Factory) {
	name := f.Name()
	if _, exists := r.byName[name]; exists {
		for i, existing := range r.factories {
			if existing.Name() == name {
				r.factories[i] = f
				r.byName[name] = f
				return
			}
		}
	}
	r.factories = append(r.factories, f)
	r.byName[name] = f
}

// Lookup returns the factory registered under name, if any.
func (r *Registry) Lookup(name string) (Factory, bool) {
	f, ok := r.byName[name]
	return f, ok
}

// FindFactory implements the two-phase dispatch policy: first prefer a
// factory whose supported extensions include path's extension and whose
// Detect accepts header; failing that, the first factory (registration
// order) whose Detect accepts header; failing that, NoSuitablePlugin.
func (r *Registry) FindFactory(path string, header []byte) (Factory, error) {
	ext := strings.ToLower(filepath.Ext(path))

	for _, f := range r.factories {
		if !hasExtension(f, ext) {
			continue
		}
		if f.Detect(header) {
			return f, nil
		}
	}

	for _, f := range r.factories {
		if f.Detect(header) {
			return f, nil
		}
	}

	return nil, failure.ErrNoSuitablePlugin
}

func hasExtension(f Factory, ext string) bool {
	if ext == "" {
		return false
	}
	for _, e := range f.SupportedExtensions() {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
