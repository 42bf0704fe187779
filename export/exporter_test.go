package export

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"sync"
	"testing"

	"github.com/castellan/extract/resource"
	"github.com/castellan/extract/types"
)

type memBackend struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemBackend() *memBackend {
	return &memBackend{files: make(map[string][]byte)}
}

func (b *memBackend) Put(ctx context.Context, key string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[key] = data
	return nil
}

func TestExportAll_SmallTextureBecomesPNG(t *testing.T) {
	tex := &resource.Texture{
		Name:   "hero_diffuse",
		Width:  2,
		Height: 2,
		Format: resource.TextureFormatRGBA8,
		Data:   bytes.Repeat([]byte{255, 0, 0, 255}, 4),
	}

	backend := newMemBackend()
	x := New(backend, Options{CompressionEnabled: true})
	manifest, err := x.ExportAll(context.Background(), "job-1", []resource.Resource{tex})
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if len(manifest.Entries) != 1 || manifest.Entries[0].Format != "png" {
		t.Fatalf("expected a single PNG entry, got %+v", manifest.Entries)
	}

	data := backend.files["hero_diffuse.png"]
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("exported texture is not a valid PNG: %v", err)
	}
}

func TestExportAll_LargeCompressedTextureBecomesKTX2(t *testing.T) {
	tex := &resource.Texture{
		Name:      "terrain_albedo",
		Width:     256,
		Height:    256,
		MipLevels: 3,
		Format:    resource.TextureFormatBC7,
		Data:      make([]byte, 70*1024),
	}

	backend := newMemBackend()
	x := New(backend, Options{CompressionEnabled: true})
	manifest, err := x.ExportAll(context.Background(), "job-2", []resource.Resource{tex})
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if manifest.Entries[0].Format != "ktx2" {
		t.Fatalf("format = %q, want ktx2", manifest.Entries[0].Format)
	}
	data := backend.files["terrain_albedo.ktx2"]
	if !bytes.HasPrefix(data, ktx2LiteMagic[:]) {
		t.Fatal("ktx2 output missing magic prefix")
	}
}

func TestExportAll_CompressionDisabledAlwaysPNG(t *testing.T) {
	tex := &resource.Texture{
		Name: "big", Width: 4, Height: 4, Format: resource.TextureFormatRGBA8,
		Data: make([]byte, 70*1024),
	}
	backend := newMemBackend()
	x := New(backend, Options{CompressionEnabled: false})
	manifest, err := x.ExportAll(context.Background(), "job-3", []resource.Resource{tex})
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if manifest.Entries[0].Format != "png" {
		t.Fatalf("format = %q, want png when compression disabled", manifest.Entries[0].Format)
	}
}

func TestExportAll_MeshBecomesGltfWithEmbeddedBuffer(t *testing.T) {
	mesh := &resource.Mesh{
		Name:     "cube",
		Vertices: []resource.Vertex{{Position: [3]float32{0, 0, 0}}, {Position: [3]float32{1, 0, 0}}, {Position: [3]float32{0, 1, 0}}},
		Indices:  []uint32{0, 1, 2},
	}
	backend := newMemBackend()
	x := New(backend, Options{})
	manifest, err := x.ExportAll(context.Background(), "job-4", []resource.Resource{mesh})
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if manifest.Entries[0].Format != "gltf" {
		t.Fatalf("format = %q, want gltf", manifest.Entries[0].Format)
	}
	var doc map[string]any
	if err := json.Unmarshal(backend.files["cube.gltf"], &doc); err != nil {
		t.Fatalf("exported mesh is not valid JSON: %v", err)
	}
	if _, ok := doc["buffers"]; !ok {
		t.Fatal("gltf document missing buffers")
	}
}

func TestExportAll_AlreadyOggPassesThrough(t *testing.T) {
	audio := &resource.Audio{Name: "theme", Format: resource.AudioFormatOGG, Data: []byte("oggdata")}
	backend := newMemBackend()
	x := New(backend, Options{})
	if _, err := x.ExportAll(context.Background(), "job-5", []resource.Resource{audio}); err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if string(backend.files["theme.ogg"]) != "oggdata" {
		t.Fatal("expected ogg passthrough to be byte-identical")
	}
}

func TestExportAll_WavWrappedInOggContainer(t *testing.T) {
	audio := &resource.Audio{Name: "sfx", Format: resource.AudioFormatWAV, Data: []byte("wavbytes")}
	backend := newMemBackend()
	x := New(backend, Options{})
	if _, err := x.ExportAll(context.Background(), "job-6", []resource.Resource{audio}); err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	data := backend.files["sfx.ogg"]
	if !bytes.HasPrefix(data, oggMagic[:]) {
		t.Fatal("wrapped ogg output missing OggS capture pattern")
	}
}

func TestExportAll_MaterialAndTextAndBinary(t *testing.T) {
	material := &resource.Material{Name: "skin", Shader: "pbr"}
	text := &resource.Text{Name: "readme", Contents: "hello"}
	binary := &resource.Binary{Name: "raw.bin", Data: []byte{1, 2, 3}}

	backend := newMemBackend()
	x := New(backend, Options{})
	manifest, err := x.ExportAll(context.Background(), "job-7", []resource.Resource{material, text, binary})
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if len(manifest.Entries) != 3 {
		t.Fatalf("len(Entries) = %d, want 3", len(manifest.Entries))
	}
	if string(backend.files["readme.txt"]) != "hello" {
		t.Fatal("text resource not written verbatim")
	}
	if !bytes.Equal(backend.files["raw.bin"], []byte{1, 2, 3}) {
		t.Fatal("binary resource not written verbatim")
	}
}

func TestWriteManifest_EmbedsProvenance(t *testing.T) {
	backend := newMemBackend()
	x := New(backend, Options{})
	err := x.WriteManifest(context.Background(), "manifest.json", Manifest{JobID: "job-8"}, types.Provenance{SourceHash: "deadbeef"})
	if err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	if _, ok := backend.files["manifest.json"]; !ok {
		t.Fatal("manifest.json was not written")
	}
}
