package pdf

import (
	"bytes"
	"image"
	"math"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/spherical/pdf-compressor/internal/assemble"
	"github.com/spherical/pdf-compressor/internal/domain"
	"github.com/spherical/pdf-compressor/internal/observability"
)

// boundTolerance is how far MuPDF's whole-point bounds may sit from the
// fractional page box before the box is distrusted.
const boundTolerance = 1.5

// Opener opens PDF bytes with MuPDF through go-fitz.
type Opener struct {
	validator *Validator
	logger    *observability.Logger
}

// NewOpener creates a new go-fitz backed opener
func NewOpener(logger *observability.Logger) *Opener {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Opener{validator: NewValidator(logger), logger: logger}
}

// Open parses data and indexes its pages. The returned document must be closed.
func (o *Opener) Open(data []byte) (domain.SourceDocument, error) {
	if err := o.validator.ValidateBytes(data); err != nil {
		return nil, domain.LoadError("input is not a PDF document", err)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, domain.LoadError("failed to open PDF", err)
	}

	pageCount := doc.NumPage()
	if pageCount <= 0 {
		_ = doc.Close()
		return nil, domain.LoadError("PDF has no pages", nil)
	}

	return &Document{doc: doc, pageCount: pageCount, boxes: o.pageBoxes(data, pageCount)}, nil
}

// pageBoxes reads the fractional visible size of every page with pdfcpu.
// go-fitz only reports bounds truncated to whole points. A nil result means
// the whole-point bounds are used instead.
func (o *Opener) pageBoxes(data []byte, pageCount int) []types.Dim {
	dims, err := api.PageDims(bytes.NewReader(data), assemble.Configuration())
	if err != nil {
		o.logger.Debug().Err(err).Msg("Fractional page sizes unavailable, using whole-point bounds")
		return nil
	}
	if len(dims) != pageCount {
		o.logger.Debug().
			Int("pdfcpu_pages", len(dims)).
			Int("mupdf_pages", pageCount).
			Msg("Page count mismatch, using whole-point bounds")
		return nil
	}
	return dims
}

// Document is a SourceDocument over a go-fitz handle.
type Document struct {
	mu        sync.Mutex
	doc       *fitz.Document
	pageCount int
	boxes     []types.Dim // fractional page sizes, nil when unavailable
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.pageCount
}

// Page returns the handle for page index (1-based).
func (d *Document) Page(index int) (domain.Page, error) {
	if index < 1 || index > d.pageCount {
		return nil, domain.PageIndexError(index, d.pageCount)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil, domain.LoadError("document is closed", nil)
	}

	bounds, err := d.doc.Bound(index - 1)
	if err != nil {
		return nil, domain.RenderError("failed to read page bounds", err)
	}

	var box *types.Dim
	if d.boxes != nil {
		box = &d.boxes[index-1]
	}
	width, height := pageSize(bounds, box)

	return &Page{
		owner:  d,
		number: index,
		width:  width,
		height: height,
	}, nil
}

// Close releases the MuPDF document. It is safe to call twice.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	if err != nil {
		return domain.IOError("failed to close PDF", err)
	}
	return nil
}

func (d *Document) renderDPI(index int, dpi float64) (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil, domain.LoadError("document is closed", nil)
	}
	return d.doc.ImageDPI(index-1, dpi)
}

// Page is a page handle of a Document.
type Page struct {
	owner  *Document
	number int
	width  float64
	height float64
}

// Number returns the 1-based page number.
func (p *Page) Number() int { return p.number }

// Size returns the page size in points.
func (p *Page) Size() (float64, float64) { return p.width, p.height }

// pageSize returns box when it agrees with MuPDF's bounds, swapping axes when
// only one side applied the page rotation. Otherwise the bounds win.
func pageSize(bounds image.Rectangle, box *types.Dim) (float64, float64) {
	bw, bh := float64(bounds.Dx()), float64(bounds.Dy())
	if box == nil {
		return bw, bh
	}

	near := func(a, b float64) bool { return math.Abs(a-b) < boundTolerance }
	switch {
	case near(box.Width, bw) && near(box.Height, bh):
		return box.Width, box.Height
	case near(box.Height, bw) && near(box.Width, bh):
		return box.Height, box.Width
	default:
		return bw, bh
	}
}
