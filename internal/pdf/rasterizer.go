package pdf

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/spherical/pdf-compressor/internal/domain"
	"golang.org/x/image/draw"
)

// pointsPerInch is the PDF user-space unit density at scale 1.0.
const pointsPerInch = 72.0

// Rasterizer renders go-fitz pages. It holds no per-run state.
type Rasterizer struct {
	// Scaler resamples when MuPDF's pixel rounding misses the target size.
	Scaler draw.Scaler
}

// NewRasterizer creates a new rasterizer using bilinear resampling
func NewRasterizer() *Rasterizer {
	return &Rasterizer{Scaler: draw.ApproxBiLinear}
}

// Render rasterizes page at scale onto an opaque white background.
func (r *Rasterizer) Render(ctx context.Context, page domain.Page, scale float64) (*domain.PageRaster, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.CancelledError(err)
	}

	p, ok := page.(*Page)
	if !ok || p.owner == nil {
		return nil, domain.RenderError(fmt.Sprintf("page %d was not opened by the fitz backend", page.Number()), nil)
	}

	width, height := p.Size()
	targetW, targetH := TargetSize(width, height, scale)
	if targetW <= 0 || targetH <= 0 {
		return nil, domain.RenderError(fmt.Sprintf("page %d has degenerate size %.2fx%.2f", p.number, width, height), nil)
	}

	img, err := p.owner.renderDPI(p.number, pointsPerInch*scale)
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("failed to render page %d", p.number), err)
	}

	return domain.NewPageRaster(p.number, Flatten(img, targetW, targetH, r.Scaler), nil), nil
}

// TargetSize returns ceil(width*scale) x ceil(height*scale).
func TargetSize(width, height, scale float64) (int, int) {
	return int(math.Ceil(width * scale)), int(math.Ceil(height * scale))
}

// Flatten returns src as a fully opaque width x height image. src is returned
// unchanged when it already satisfies both.
func Flatten(src *image.RGBA, width, height int, scaler draw.Scaler) *image.RGBA {
	sb := src.Bounds()
	if sb.Dx() == width && sb.Dy() == height && sb.Min == (image.Point{}) && src.Opaque() {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	if sb.Dx() == width && sb.Dy() == height {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
		return dst
	}

	if scaler == nil {
		scaler = draw.ApproxBiLinear
	}
	scaler.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	return dst
}
