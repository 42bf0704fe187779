// Package resource implements the Resource Model: a tagged union over the
// eight decoded-asset variants a handler's entry decoder can produce, per
// extraction pipeline.
package resource

import "fmt"

// Kind discriminates the eight Resource variants. The variant tag alone
// determines which export path in the exporter applies.
type Kind string

const (
	KindTexture   Kind = "texture"
	KindMesh      Kind = "mesh"
	KindMaterial  Kind = "material"
	KindAnimation Kind = "animation"
	KindAudio     Kind = "audio"
	KindLevel     Kind = "level"
	KindBinary    Kind = "binary"
	KindText      Kind = "text"
)

// Resource is the tagged-union interface every variant implements.
// Consumers (exporter, memory estimator, naming) must switch on Kind() and
// fall through to Binary/Text explicitly rather than assume exhaustiveness.
type Resource interface {
	// Kind reports which of the eight variants this value is.
	Kind() Kind
	// ResourceName is the stable name carried through to export.
	ResourceName() string
	// EstimateMemory estimates the in-memory footprint in bytes, used by
	// the extractor's pre-flight memory cap check.
	EstimateMemory() int64
}

// Texture is a decoded image resource.
type Texture struct {
	Name      string
	Width     uint32
	Height    uint32
	Format    TextureFormat
	Data      []byte
	MipLevels uint8
	UsageHint TextureUsage // empty string if unknown
}

func (t *Texture) Kind() Kind           { return KindTexture }
func (t *Texture) ResourceName() string { return t.Name }
func (t *Texture) EstimateMemory() int64 {
	return int64(len(t.Data))
}

// TextureFormat names a pixel/block encoding.
type TextureFormat string

const (
	TextureFormatRGBA8 TextureFormat = "rgba8"
	TextureFormatRGB8  TextureFormat = "rgb8"
	TextureFormatRGBA16 TextureFormat = "rgba16"
	TextureFormatDXT1  TextureFormat = "dxt1"
	TextureFormatDXT3  TextureFormat = "dxt3"
	TextureFormatDXT5  TextureFormat = "dxt5"
	TextureFormatBC7   TextureFormat = "bc7"
	TextureFormatETC2  TextureFormat = "etc2"
	TextureFormatASTC  TextureFormat = "astc"
)

// TextureUsage hints at the texture's intended role, carried through from
// the source engine's material bindings when the handler can recover it.
type TextureUsage string

const (
	TextureUsageAlbedo    TextureUsage = "albedo"
	TextureUsageNormal    TextureUsage = "normal"
	TextureUsageRoughness TextureUsage = "roughness"
	TextureUsageMetallic  TextureUsage = "metallic"
	TextureUsageEmission  TextureUsage = "emission"
	TextureUsageOcclusion TextureUsage = "occlusion"
	TextureUsageUI        TextureUsage = "ui"
	TextureUsageLightmap  TextureUsage = "lightmap"
)

// Vertex is a single mesh vertex; Normal, UV, and Color are optional per
// source format.
type Vertex struct {
	Position [3]float32
	Normal   *[3]float32
	UV       *[2]float32
	Color    *[4]float32
}

// BoneWeight ties a vertex to a skeletal bone for skinned meshes.
type BoneWeight struct {
	BoneIndex uint32
	Weight    float32
}

// Mesh is a decoded geometry resource.
type Mesh struct {
	Name        string
	Vertices    []Vertex
	Indices     []uint32
	MaterialID  string // empty if unbound
	BoneWeights []BoneWeight
}

func (m *Mesh) Kind() Kind           { return KindMesh }
func (m *Mesh) ResourceName() string { return m.Name }
func (m *Mesh) EstimateMemory() int64 {
	const vertexSize = int64(3+3+2+4) * 4 // position+normal+uv+color, float32
	return int64(len(m.Vertices))*vertexSize + int64(len(m.Indices))*4 + int64(len(m.BoneWeights))*8
}

// MaterialPropertyKind discriminates MaterialProperty's value union.
type MaterialPropertyKind string

const (
	MaterialPropertyFloat   MaterialPropertyKind = "float"
	MaterialPropertyVector2 MaterialPropertyKind = "vector2"
	MaterialPropertyVector3 MaterialPropertyKind = "vector3"
	MaterialPropertyVector4 MaterialPropertyKind = "vector4"
	MaterialPropertyColor   MaterialPropertyKind = "color"
	MaterialPropertyTexture MaterialPropertyKind = "texture"
)

// MaterialProperty is a single named shader parameter value.
type MaterialProperty struct {
	Kind    MaterialPropertyKind
	Float   float32
	Vector  [4]float32 // holds vector2/vector3/vector4/color, unused lanes zero
	Texture string      // texture resource ID, set only when Kind == MaterialPropertyTexture
}

// BlendMode names a material's surface compositing mode.
type BlendMode string

const (
	BlendModeOpaque     BlendMode = "opaque"
	BlendModeAlphaBlend BlendMode = "alpha_blend"
	BlendModeAdditive   BlendMode = "additive"
	BlendModeMultiply   BlendMode = "multiply"
)

// Material is a decoded surface-shading resource.
type Material struct {
	Name       string
	Shader     string
	Textures   map[string]string // slot name -> texture resource ID
	Properties map[string]MaterialProperty
	BlendMode  BlendMode
}

func (m *Material) Kind() Kind           { return KindMaterial }
func (m *Material) ResourceName() string { return m.Name }
func (m *Material) EstimateMemory() int64 {
	return int64(len(m.Shader)) + int64(len(m.Textures))*64 + int64(len(m.Properties))*32
}

// LoopMode names an animation's playback repetition.
type LoopMode string

const (
	LoopModeOnce     LoopMode = "once"
	LoopModeLoop     LoopMode = "loop"
	LoopModePingPong LoopMode = "ping_pong"
)

// PositionKey, RotationKey, and ScaleKey are per-bone transform keyframes.
type PositionKey struct {
	Time     float32
	Position [3]float32
}

type RotationKey struct {
	Time     float32
	Rotation [4]float32 // quaternion
}

type ScaleKey struct {
	Time  float32
	Scale [3]float32
}

// BoneTrack carries one bone's keyframe tracks.
type BoneTrack struct {
	BoneName      string
	PositionKeys  []PositionKey
	RotationKeys  []RotationKey
	ScaleKeys     []ScaleKey
}

// Animation is a decoded skeletal-animation resource.
type Animation struct {
	Name            string
	DurationSeconds float32
	BoneTracks      []BoneTrack
	LoopMode        LoopMode
}

func (a *Animation) Kind() Kind           { return KindAnimation }
func (a *Animation) ResourceName() string { return a.Name }
func (a *Animation) EstimateMemory() int64 {
	var n int64
	for _, bt := range a.BoneTracks {
		n += int64(len(bt.PositionKeys))*16 + int64(len(bt.RotationKeys))*20 + int64(len(bt.ScaleKeys))*16
	}
	return n
}

// AudioFormat names a decoded audio resource's source codec.
type AudioFormat string

const (
	AudioFormatPCM  AudioFormat = "pcm"
	AudioFormatMP3  AudioFormat = "mp3"
	AudioFormatOGG  AudioFormat = "ogg"
	AudioFormatWAV  AudioFormat = "wav"
	AudioFormatFLAC AudioFormat = "flac"
)

// Audio is a decoded sound resource.
type Audio struct {
	Name            string
	Format          AudioFormat
	Data            []byte
	SampleRate      uint32
	Channels        uint8
	DurationSeconds float32
}

func (a *Audio) Kind() Kind           { return KindAudio }
func (a *Audio) ResourceName() string { return a.Name }
func (a *Audio) EstimateMemory() int64 {
	return int64(len(a.Data))
}

// Transform is a 3D affine transform: position, rotation quaternion, scale.
type Transform struct {
	Position [3]float32
	Rotation [4]float32
	Scale    [3]float32
}

// Component is an engine-specific behavior attached to a GameObject; the
// property bag is free-form since components are per-engine.
type Component struct {
	TypeName   string
	Properties map[string]string
}

// GameObject is one entity placed in a level.
type GameObject struct {
	ID          string
	Name        string
	Transform   Transform
	MeshID      string // empty if unbound
	MaterialIDs []string
	Components  []Component
}

// LightType names a light source's illumination model.
type LightType string

const (
	LightTypeDirectional LightType = "directional"
	LightTypePoint       LightType = "point"
	LightTypeSpot        LightType = "spot"
)

// Light is a single placed light source.
type Light struct {
	LightType LightType
	Position  [3]float32
	Direction *[3]float32 // nil for point lights
}

// LightingInfo aggregates a level's illumination data.
type LightingInfo struct {
	AmbientColor [3]float32
	Lights       []Light
	Lightmaps    []string // texture resource IDs
}

// Level is a decoded scene/world resource.
type Level struct {
	Name     string
	Objects  []GameObject
	Lighting LightingInfo
}

func (l *Level) Kind() Kind           { return KindLevel }
func (l *Level) ResourceName() string { return l.Name }
func (l *Level) EstimateMemory() int64 {
	return int64(len(l.Objects))*256 + int64(len(l.Lighting.Lights))*32
}

// Binary is the fallback variant for entries with no dedicated decoder:
// the raw decompressed bytes, unmodified.
type Binary struct {
	Name string
	Data []byte
}

func (b *Binary) Kind() Kind             { return KindBinary }
func (b *Binary) ResourceName() string   { return b.Name }
func (b *Binary) EstimateMemory() int64 { return int64(len(b.Data)) }

// Text is a decoded UTF-8 text resource (scripts, config, localization).
type Text struct {
	Name     string
	Contents string
}

func (t *Text) Kind() Kind           { return KindText }
func (t *Text) ResourceName() string { return t.Name }
func (t *Text) EstimateMemory() int64 {
	return int64(len(t.Contents))
}

// Describe returns a short human-readable summary, used by CLI progress
// output and audit-log entry annotations.
func Describe(r Resource) string {
	return fmt.Sprintf("%s %q (%d bytes)", r.Kind(), r.ResourceName(), r.EstimateMemory())
}
