package extract

import (
	"path/filepath"
	"strings"

	"github.com/castellan/extract/resource"
	"github.com/castellan/extract/types"
)

// decodeResource classifies one entry into one of the eight Resource
// variants given its metadata and fully decompressed bytes.
// Classification is by content type (when the handler supplied one),
// falling back to the logical path's extension; an entry that matches a
// known text extension decodes to Text, and anything else falls back to
// Binary. A handler format's own native texture/mesh/material encodings
// are beyond this dispatcher's scope — no game-engine-specific binary
// layouts are parsed here.
func decodeResource(meta types.EntryMetadata, data []byte) resource.Resource {
	name := meta.Name
	if name == "" {
		name = meta.LogicalPath
	}

	switch classify(meta) {
	case resource.KindTexture:
		return &resource.Texture{
			Name:   name,
			Format: resource.TextureFormatRGBA8,
			Data:   data,
		}
	case resource.KindAudio:
		return &resource.Audio{
			Name:   name,
			Format: resource.AudioFormatOGG,
			Data:   data,
		}
	case resource.KindText:
		return &resource.Text{
			Name:     name,
			Contents: string(data),
		}
	default:
		return &resource.Binary{Name: name, Data: data}
	}
}

var textureExtensions = map[string]bool{
	".png": true, ".tga": true, ".dds": true, ".ktx": true, ".ktx2": true,
	".bmp": true, ".jpg": true, ".jpeg": true, ".astc": true,
}

var audioExtensions = map[string]bool{
	".ogg": true, ".wav": true, ".mp3": true, ".opus": true, ".flac": true,
}

var textExtensions = map[string]bool{
	".json": true, ".txt": true, ".xml": true, ".cfg": true, ".ini": true,
	".lua": true, ".yaml": true, ".yml": true,
}

func classify(meta types.EntryMetadata) resource.Kind {
	ct := strings.ToLower(meta.ContentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return resource.KindTexture
	case strings.HasPrefix(ct, "audio/"):
		return resource.KindAudio
	case strings.HasPrefix(ct, "text/"):
		return resource.KindText
	}

	ext := strings.ToLower(filepath.Ext(meta.LogicalPath))
	switch {
	case textureExtensions[ext]:
		return resource.KindTexture
	case audioExtensions[ext]:
		return resource.KindAudio
	case textExtensions[ext]:
		return resource.KindText
	}

	return resource.KindBinary
}
