package domain

import "context"

// Page is a handle into a SourceDocument, used only to request a raster
type Page interface {
	// Number is the 1-based page index
	Number() int

	// Size returns the intrinsic width and height in points at scale 1.0
	Size() (width, height float64)
}

// SourceDocument is an opened, read-only, page-addressable input document
type SourceDocument interface {
	PageCount() int

	// Page returns page index (1..PageCount), or a page_index error
	Page(index int) (Page, error)

	// Close releases the decoded page index and backend resources
	Close() error
}

// Opener opens input bytes as a SourceDocument
type Opener interface {
	Open(data []byte) (SourceDocument, error)
}

// Rasterizer renders one page into a pixel buffer
type Rasterizer interface {
	// Render produces a ceil(w*scale) x ceil(h*scale) opaque raster
	Render(ctx context.Context, page Page, scale float64) (*PageRaster, error)
}

// Encoder compresses a raster into a lossy image
type Encoder interface {
	// Encode uses qualityFraction in (0,1]
	Encode(raster *PageRaster, qualityFraction float64) (*EncodedImage, error)
}

// OutputDocument is an append-only page sequence finalized exactly once
type OutputDocument interface {
	// AppendPage adds one page of displayWidth x displayHeight points filled by img
	AppendPage(img *EncodedImage, displayWidth, displayHeight float64) error

	PageCount() int

	// Finalize serializes the document
	Finalize() ([]byte, error)
}

// Assembler creates output documents
type Assembler interface {
	CreateOutput() OutputDocument
}
