// Package encode turns page rasters into baseline JPEG streams.
package encode

import (
	"fmt"
	"image/jpeg"
	"math"

	"github.com/spherical/pdf-compressor/internal/domain"
)

// defaultBufferSize fits a typical letter page at scale 1.5 and quality 40.
const defaultBufferSize = 512 * 1024

// JPEGEncoder encodes rasters with image/jpeg. It is safe for concurrent use.
type JPEGEncoder struct {
	buffers *BufferPool
}

// NewJPEGEncoder creates a new encoder
func NewJPEGEncoder() *JPEGEncoder {
	return &JPEGEncoder{buffers: NewBufferPool(defaultBufferSize)}
}

// Encode compresses raster at qualityFraction, clamped to (0,1].
func (e *JPEGEncoder) Encode(raster *domain.PageRaster, qualityFraction float64) (*domain.EncodedImage, error) {
	if raster == nil || raster.Released() || raster.Pixels == nil {
		return nil, domain.EncodeError("raster has no pixel buffer", nil)
	}
	if raster.Width <= 0 || raster.Height <= 0 {
		return nil, domain.EncodeError(fmt.Sprintf("degenerate raster %dx%d", raster.Width, raster.Height), nil)
	}

	buf := e.buffers.Get()
	defer e.buffers.Put(buf)

	if err := jpeg.Encode(buf, raster.Pixels, &jpeg.Options{Quality: Quality(qualityFraction)}); err != nil {
		return nil, domain.EncodeError(fmt.Sprintf("failed to encode page %d as JPEG", raster.PageNumber), err)
	}

	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())

	return &domain.EncodedImage{
		Data:   data,
		Width:  raster.Width,
		Height: raster.Height,
	}, nil
}

// Quality maps a fraction onto image/jpeg's 1..100 scale.
func Quality(fraction float64) int {
	if math.IsNaN(fraction) {
		return domain.DefaultQuality
	}
	q := int(math.Round(fraction * 100))
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	return q
}
