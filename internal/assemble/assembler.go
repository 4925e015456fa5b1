// Package assemble builds the output PDF, one full-page JPEG per page.
package assemble

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/spherical/pdf-compressor/internal/domain"
)

const (
	catalogObject = 1
	pagesObject   = 2
	imageName     = "Im0"
)

// Assembler creates output documents. It holds no per-document state.
type Assembler struct {
	objectStreams bool
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithObjectStreams toggles the final object-stream rewrite. Enabled by default.
func WithObjectStreams(enabled bool) Option {
	return func(a *Assembler) { a.objectStreams = enabled }
}

// NewAssembler creates a new assembler
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{objectStreams: true}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreateOutput returns an empty document.
func (a *Assembler) CreateOutput() domain.OutputDocument {
	d := &Document{
		offsets:       make([]int, pagesObject+1),
		objectStreams: a.objectStreams,
	}
	d.body.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	return d
}

// Document serializes pages as they are appended; encoded images are written
// straight into the body and never held separately.
type Document struct {
	body          bytes.Buffer
	offsets       []int // byte offset per object number; index 0 is the free head
	pageObjects   []int
	objectStreams bool
	finalized     bool
}

// PageCount returns the number of pages appended so far.
func (d *Document) PageCount() int {
	return len(d.pageObjects)
}

// AppendPage adds a page of displayWidth x displayHeight points whose only
// content is img scaled to fill it from the origin.
func (d *Document) AppendPage(img *domain.EncodedImage, displayWidth, displayHeight float64) error {
	if d.finalized {
		return domain.SerializeError("document already finalized", nil)
	}
	if img == nil || len(img.Data) == 0 {
		return domain.SerializeError("encoded image is empty", nil)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return domain.SerializeError(fmt.Sprintf("encoded image has degenerate size %dx%d", img.Width, img.Height), nil)
	}
	if !validDimension(displayWidth) || !validDimension(displayHeight) {
		return domain.SerializeError(fmt.Sprintf("invalid page size %vx%v", displayWidth, displayHeight), nil)
	}

	content, err := deflate(fmt.Sprintf("q %s 0 0 %s 0 0 cm /%s Do Q",
		formatNumber(displayWidth), formatNumber(displayHeight), imageName))
	if err != nil {
		return domain.SerializeError("failed to compress page content", err)
	}

	imageObj := d.beginObject()
	fmt.Fprintf(&d.body,
		"<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n",
		img.Width, img.Height, len(img.Data))
	d.body.Write(img.Data)
	d.endStream()

	contentObj := d.beginObject()
	fmt.Fprintf(&d.body, "<< /Filter /FlateDecode /Length %d >>\nstream\n", len(content))
	d.body.Write(content)
	d.endStream()

	pageObj := d.beginObject()
	fmt.Fprintf(&d.body,
		"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %s %s] /Resources << /XObject << /%s %d 0 R >> >> /Contents %d 0 R >>\nendobj\n",
		pagesObject, formatNumber(displayWidth), formatNumber(displayHeight), imageName, imageObj, contentObj)

	d.pageObjects = append(d.pageObjects, pageObj)
	return nil
}

// Finalize writes the page tree and cross-reference section and returns the
// document bytes. It succeeds at most once.
func (d *Document) Finalize() ([]byte, error) {
	if d.finalized {
		return nil, domain.SerializeError("document already finalized", nil)
	}
	if len(d.pageObjects) == 0 {
		return nil, domain.SerializeError("document has no pages", nil)
	}
	d.finalized = true

	kids := make([]string, len(d.pageObjects))
	for i, obj := range d.pageObjects {
		kids[i] = fmt.Sprintf("%d 0 R", obj)
	}

	d.offsets[pagesObject] = d.body.Len()
	fmt.Fprintf(&d.body, "%d 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		pagesObject, strings.Join(kids, " "), len(d.pageObjects))

	d.offsets[catalogObject] = d.body.Len()
	fmt.Fprintf(&d.body, "%d 0 obj\n<< /Type /Catalog /Pages %d 0 R >>\nendobj\n", catalogObject, pagesObject)

	xrefOffset := d.body.Len()
	fmt.Fprintf(&d.body, "xref\n0 %d\n", len(d.offsets))
	d.body.WriteString("0000000000 65535 f\r\n")
	for _, off := range d.offsets[1:] {
		fmt.Fprintf(&d.body, "%010d 00000 n\r\n", off)
	}
	fmt.Fprintf(&d.body, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(d.offsets), catalogObject, xrefOffset)

	raw := bytes.Clone(d.body.Bytes())
	d.body = bytes.Buffer{}

	if !d.objectStreams {
		return raw, nil
	}
	return optimize(raw)
}

func (d *Document) beginObject() int {
	num := len(d.offsets)
	d.offsets = append(d.offsets, d.body.Len())
	fmt.Fprintf(&d.body, "%d 0 obj\n", num)
	return num
}

func (d *Document) endStream() {
	d.body.WriteString("\nendstream\nendobj\n")
}

func deflate(s string) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write([]byte(s)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func validDimension(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// formatNumber writes v with at most four decimals and no trailing zeros.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
