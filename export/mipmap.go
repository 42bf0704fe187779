package export

import (
	"image"

	"golang.org/x/image/draw"
)

// GenerateMipmaps returns base followed by levels-1 successively
// half-sized downsamples, each scaled with a bilinear filter. Used by the
// KTX2 export path to build the mip chain a real KTX2 container expects,
// since basis-universal compression itself isn't available in the
// current dependency set.
func GenerateMipmaps(base *image.RGBA, levels int) []*image.RGBA {
	if levels < 1 {
		levels = 1
	}

	chain := make([]*image.RGBA, 0, levels)
	chain = append(chain, base)

	prev := base
	for i := 1; i < levels; i++ {
		b := prev.Bounds()
		w, h := b.Dx()/2, b.Dy()/2
		if w < 1 || h < 1 {
			break
		}
		next := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(next, next.Bounds(), prev, prev.Bounds(), draw.Src, nil)
		chain = append(chain, next)
		prev = next
	}
	return chain
}
