// Package compressor is the library entry point: it shrinks PDFs by
// rasterizing every page and rebuilding the document from JPEG images.
package compressor

import (
	"context"
	"os"
	"time"

	"github.com/spherical/pdf-compressor/internal/assemble"
	"github.com/spherical/pdf-compressor/internal/compress"
	"github.com/spherical/pdf-compressor/internal/domain"
	"github.com/spherical/pdf-compressor/internal/encode"
	"github.com/spherical/pdf-compressor/internal/observability"
	"github.com/spherical/pdf-compressor/internal/pdf"
)

// Re-export types for public API
type (
	Settings      = domain.CompressionSettings
	Preset        = domain.Preset
	ProgressEvent = domain.ProgressEvent
	Result        = domain.ProcessingResult
	SizeEstimate  = domain.SizeEstimate
	PipelineError = domain.PipelineError
	Stage         = domain.Stage
)

// Default settings
const (
	DefaultQuality = domain.DefaultQuality
	DefaultScale   = domain.DefaultScale
)

// Client is the main entry point for the PDF compressor library
type Client struct {
	service *compress.Service
	logger  *observability.Logger
}

// Config holds configuration options for the client
type Config struct {
	Logger        *observability.Logger // nil discards logs
	YieldDelay    time.Duration
	ObjectStreams *bool // nil keeps the default (enabled)
}

// NewClient creates a client backed by MuPDF rendering and JPEG encoding
func NewClient() *Client {
	return NewClientWithConfig(&Config{})
}

// NewClientWithConfig creates a new client with custom configuration
func NewClientWithConfig(config *Config) *Client {
	logger := config.Logger
	if logger == nil {
		logger = observability.Nop()
	}

	var asmOpts []assemble.Option
	if config.ObjectStreams != nil {
		asmOpts = append(asmOpts, assemble.WithObjectStreams(*config.ObjectStreams))
	}

	service := compress.NewService(
		pdf.NewOpener(logger),
		pdf.NewRasterizer(),
		encode.NewJPEGEncoder(),
		assemble.NewAssembler(asmOpts...),
		compress.WithLogger(logger),
		compress.WithYieldDelay(config.YieldDelay),
	)

	return &Client{service: service, logger: logger}
}

// Compress runs the pipeline over data. onProgress may be nil.
func (c *Client) Compress(ctx context.Context, name string, data []byte, settings Settings, onProgress func(ProgressEvent)) (*Result, error) {
	return c.service.Run(ctx, compress.Input{Name: name, Data: data}, settings, onProgress)
}

// CompressFile reads a PDF from disk and compresses it.
func (c *Client) CompressFile(ctx context.Context, path string, settings Settings, onProgress func(ProgressEvent)) (*Result, error) {
	if err := pdf.NewValidator(c.logger).ValidatePDFPath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.IOError("failed to read input file", err)
	}
	return c.Compress(ctx, path, data, settings, onProgress)
}

// Outcome is the terminal value of a Stream call: exactly one field is set.
type Outcome struct {
	Result *Result
	Err    error
}

// streamBuffer is how many undelivered progress events Stream holds.
const streamBuffer = 100

// Stream runs the pipeline in a goroutine. Progress events arrive in order on
// the first channel, which is closed before the single Outcome is sent.
// Events that find the buffer full are dropped rather than stalling the run,
// so callers may read only the Outcome.
func (c *Client) Stream(ctx context.Context, name string, data []byte, settings Settings) (<-chan ProgressEvent, <-chan Outcome) {
	eventCh := make(chan ProgressEvent, streamBuffer)
	outcomeCh := make(chan Outcome, 1)

	go func() {
		result, err := c.service.Run(ctx, compress.Input{Name: name, Data: data}, settings, func(ev ProgressEvent) {
			select {
			case eventCh <- ev:
			default:
			}
		})
		close(eventCh)
		outcomeCh <- Outcome{Result: result, Err: err}
		close(outcomeCh)
	}()

	return eventCh, outcomeCh
}

// Estimate predicts the output size range without running the pipeline
func Estimate(originalSize int64, settings Settings) SizeEstimate {
	return compress.Estimate(originalSize, settings)
}

// Presets returns the recognized presets
func Presets() []Preset {
	out := make([]Preset, len(domain.Presets))
	copy(out, domain.Presets)
	return out
}

// LookupPreset finds a preset by name
func LookupPreset(name string) (Preset, bool) {
	return domain.LookupPreset(name)
}
