// Package compress drives the rasterize, re-encode and reassemble pipeline.
package compress

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/spherical/pdf-compressor/internal/domain"
	"github.com/spherical/pdf-compressor/internal/observability"
)

// Input is one document to compress.
type Input struct {
	Name string // used in progress messages only
	Data []byte
}

// Service orchestrates a compression run. Every collaborator is stateless
// across runs, so one Service may serve concurrent calls to Run.
type Service struct {
	opener     domain.Opener
	rasterizer domain.Rasterizer
	encoder    domain.Encoder
	assembler  domain.Assembler
	logger     *observability.Logger
	yieldDelay time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *observability.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithYieldDelay makes every per-page yield also sleep for d.
func WithYieldDelay(d time.Duration) Option {
	return func(s *Service) { s.yieldDelay = d }
}

// NewService creates a new compression service
func NewService(opener domain.Opener, rasterizer domain.Rasterizer, encoder domain.Encoder, assembler domain.Assembler, opts ...Option) *Service {
	s := &Service{
		opener:     opener,
		rasterizer: rasterizer,
		encoder:    encoder,
		assembler:  assembler,
		logger:     observability.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithOperation("compress")
	return s
}

// Run compresses in page by page. On any failure it returns a
// *domain.PipelineError and no bytes; progress stops at the failure.
func (s *Service) Run(ctx context.Context, in Input, settings domain.CompressionSettings, onProgress domain.ProgressFunc) (*domain.ProcessingResult, error) {
	startTime := time.Now()
	settings = settings.Normalize()
	r := &run{
		logger:     s.logger.WithRun(uuid.NewString()),
		onProgress: onProgress,
	}

	r.logger.Info().
		Str("input", in.Name).
		Int("size", len(in.Data)).
		Int("quality", settings.Quality).
		Float64("scale", settings.Scale).
		Msg("Starting compression")

	r.emit(0, domain.StageLoading, 0, fmt.Sprintf("Loading %s (%s)", displayName(in.Name), FormatMB(int64(len(in.Data)))))

	if err := ctx.Err(); err != nil {
		return nil, r.fail(domain.StageLoading, 0, domain.CancelledError(err))
	}

	src, err := s.opener.Open(in.Data)
	if err != nil {
		return nil, r.fail(domain.StageLoading, 0, ensureType(err, domain.ErrorTypeLoad, "failed to open input"))
	}
	defer func() {
		if err := src.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to close source document")
		}
	}()

	pageCount := src.PageCount()
	if pageCount <= 0 {
		return nil, r.fail(domain.StageLoading, 0, domain.LoadError("PDF has no pages", nil))
	}

	r.emit(5, domain.StageLoading, 0, fmt.Sprintf("PDF loaded, %d pages", pageCount))

	out := s.assembler.CreateOutput()

	for i := 1; i <= pageCount; i++ {
		if err := s.processPage(ctx, r, src, out, i, settings); err != nil {
			return nil, err
		}

		percent := 5 + domain.RoundHalfUp(float64(i)/float64(pageCount)*90)
		r.emit(percent, domain.StageAssembling, i, fmt.Sprintf("Processed page %d / %d", i, pageCount))

		if err := s.yield(ctx); err != nil {
			stage, page := domain.StageRendering, i+1
			if i == pageCount {
				stage, page = domain.StageFinalizing, 0
			}
			return nil, r.fail(stage, page, domain.CancelledError(err))
		}
	}

	r.emit(95, domain.StageFinalizing, 0, "Optimizing structure and exporting")

	data, err := out.Finalize()
	if err != nil {
		return nil, r.fail(domain.StageFinalizing, 0, ensureType(err, domain.ErrorTypeSerialize, "failed to finalize output"))
	}

	result := &domain.ProcessingResult{
		Bytes:            data,
		OriginalSize:     int64(len(in.Data)),
		CompressedSize:   int64(len(data)),
		ReductionPercent: domain.ReductionPercent(int64(len(in.Data)), int64(len(data))),
		PageCount:        pageCount,
		Settings:         settings,
		Duration:         time.Since(startTime),
	}

	r.emit(100, domain.StageDone, 0, fmt.Sprintf("Compression complete, new size about %s", FormatMB(result.CompressedSize)))

	r.logger.Info().
		Int("pages", pageCount).
		Int64("original_size", result.OriginalSize).
		Int64("compressed_size", result.CompressedSize).
		Int("reduction_percent", result.ReductionPercent).
		Dur("duration", result.Duration).
		Msg("Compression complete")

	return result, nil
}

// processPage renders, encodes and appends one page. The raster never
// outlives this call.
func (s *Service) processPage(ctx context.Context, r *run, src domain.SourceDocument, out domain.OutputDocument, index int, settings domain.CompressionSettings) error {
	page, err := src.Page(index)
	if err != nil {
		return r.fail(domain.StageRendering, index, ensureType(err, domain.ErrorTypeRender, "failed to open page"))
	}

	raster, err := s.rasterizer.Render(ctx, page, settings.Scale)
	if err != nil {
		return r.fail(domain.StageRendering, index, ensureType(err, domain.ErrorTypeRender, "failed to render page"))
	}
	defer raster.Release()

	encoded, err := s.encoder.Encode(raster, settings.QualityFraction())
	if err != nil {
		return r.fail(domain.StageEncoding, index, ensureType(err, domain.ErrorTypeEncode, "failed to encode page"))
	}

	displayWidth := float64(raster.Width) / settings.Scale
	displayHeight := float64(raster.Height) / settings.Scale
	raster.Release()

	if err := out.AppendPage(encoded, displayWidth, displayHeight); err != nil {
		return r.fail(domain.StageAssembling, index, ensureType(err, domain.ErrorTypeSerialize, "failed to append page"))
	}

	r.logger.Debug().
		Int("page", index).
		Int("bytes", len(encoded.Data)).
		Float64("width", displayWidth).
		Float64("height", displayHeight).
		Msg("Page compressed")

	return nil
}

// yield lets other goroutines run between pages and reports cancellation.
func (s *Service) yield(ctx context.Context) error {
	runtime.Gosched()
	if s.yieldDelay > 0 {
		t := time.NewTimer(s.yieldDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
	return ctx.Err()
}

// run carries the per-invocation progress state.
type run struct {
	logger      *observability.Logger
	onProgress  domain.ProgressFunc
	lastPercent int
}

// emit delivers an event, never letting percent move backwards.
func (r *run) emit(percent int, stage domain.Stage, page int, message string) {
	if percent < r.lastPercent {
		percent = r.lastPercent
	}
	if percent > 100 {
		percent = 100
	}
	r.lastPercent = percent

	if r.onProgress == nil {
		return
	}
	r.onProgress(domain.ProgressEvent{
		Percent:    percent,
		Message:    message,
		Stage:      stage,
		PageNumber: page,
		Timestamp:  time.Now(),
	})
}

func (r *run) fail(stage domain.Stage, page int, err error) error {
	r.logger.Error().
		Err(err).
		Str("stage", string(stage)).
		Int("page", page).
		Msg("Compression failed")
	return &domain.PipelineError{Stage: stage, Page: page, Err: err}
}

// ensureType keeps typed domain errors and wraps anything else as errType.
func ensureType(err error, errType domain.ErrorType, message string) error {
	if domain.TypeOf(err) != "" {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.CancelledError(err)
	}
	return domain.NewError(errType, message, err)
}

// FormatMB renders a byte count as megabytes with two decimals.
func FormatMB(size int64) string {
	return fmt.Sprintf("%.2f MB", float64(size)/1024/1024)
}

func displayName(name string) string {
	if name == "" {
		return "input"
	}
	return name
}
