// Package api provides the HTTP surface of the compressor.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spherical/pdf-compressor/internal/compress"
	"github.com/spherical/pdf-compressor/internal/domain"
	"github.com/spherical/pdf-compressor/internal/observability"
	"golang.org/x/sync/semaphore"
)

// multipartMemory is how much of a multipart upload is buffered in memory
// before spilling to temporary files.
const multipartMemory = 32 << 20

// Compressor runs one compression.
type Compressor interface {
	Compress(ctx context.Context, name string, data []byte, settings domain.CompressionSettings, onProgress func(domain.ProgressEvent)) (*domain.ProcessingResult, error)
}

// Handler serves compression requests.
type Handler struct {
	logger        *observability.Logger
	compressor    Compressor
	defaults      domain.CompressionSettings
	maxUploadSize int64
	jobs          *semaphore.Weighted
}

// HandlerConfig holds handler limits and defaults.
type HandlerConfig struct {
	Defaults          domain.CompressionSettings
	MaxUploadSize     int64
	MaxConcurrentJobs int
}

// NewHandler creates a new handler.
func NewHandler(logger *observability.Logger, compressor Compressor, cfg HandlerConfig) *Handler {
	if cfg.MaxConcurrentJobs < 1 {
		cfg.MaxConcurrentJobs = 1
	}
	return &Handler{
		logger:        logger.WithOperation("api"),
		compressor:    compressor,
		defaults:      cfg.Defaults.Normalize(),
		maxUploadSize: cfg.MaxUploadSize,
		jobs:          semaphore.NewWeighted(int64(cfg.MaxConcurrentJobs)),
	}
}

// ErrorDTO is the body of every error response.
type ErrorDTO struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
	Stage  string `json:"stage,omitempty"`
	Page   int    `json:"page,omitempty"`
}

// EstimateDTO is the response of GET /estimate.
type EstimateDTO struct {
	OriginalSize int64                      `json:"originalSize"`
	Settings     domain.CompressionSettings `json:"settings"`
	Min          int64                      `json:"min"`
	Max          int64                      `json:"max"`
	Percent      int                        `json:"percent"`
}

// Compress handles POST /api/v1/compress. The body is either the raw PDF or
// a multipart form with a "file" part.
func (h *Handler) Compress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := h.settingsFromQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid settings", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	name, data, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "upload too large", err)
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid upload", err)
		return
	}

	if err := h.jobs.Acquire(ctx, 1); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "request cancelled while queued", err)
		return
	}
	defer h.jobs.Release(1)

	logger := h.logger.With().Str("request_id", chimiddleware.GetReqID(ctx)).Logger()
	logger.Info().
		Str("file", name).
		Int("size", len(data)).
		Int("quality", settings.Quality).
		Float64("scale", settings.Scale).
		Msg("Compression requested")

	result, err := h.compressor.Compress(ctx, name, data, settings, func(ev domain.ProgressEvent) {
		logger.Debug().Int("percent", ev.Percent).Str("stage", string(ev.Stage)).Msg(ev.Message)
	})
	if err != nil {
		h.writeError(w, statusFor(err), "compression failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", OutputName(name)))
	w.Header().Set("Content-Length", strconv.FormatInt(result.CompressedSize, 10))
	w.Header().Set("X-Original-Size", strconv.FormatInt(result.OriginalSize, 10))
	w.Header().Set("X-Compressed-Size", strconv.FormatInt(result.CompressedSize, 10))
	w.Header().Set("X-Reduction-Percent", strconv.Itoa(result.ReductionPercent))
	w.Header().Set("X-Page-Count", strconv.Itoa(result.PageCount))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Bytes); err != nil {
		logger.Warn().Err(err).Msg("Failed to write response")
	}
}

// Estimate handles GET /api/v1/estimate?size=N.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	size, err := strconv.ParseInt(r.URL.Query().Get("size"), 10, 64)
	if err != nil || size < 0 {
		h.writeError(w, http.StatusBadRequest, "size must be a non-negative integer", err)
		return
	}

	settings, err := h.settingsFromQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid settings", err)
		return
	}

	est := compress.Estimate(size, settings)
	h.writeJSON(w, http.StatusOK, EstimateDTO{
		OriginalSize: size,
		Settings:     settings.Normalize(),
		Min:          int64(est.Min),
		Max:          int64(est.Max),
		Percent:      est.Percent,
	})
}

// Presets handles GET /api/v1/presets.
func (h *Handler) Presets(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, domain.Presets)
}

// settingsFromQuery applies preset, then quality and scale, over the defaults.
func (h *Handler) settingsFromQuery(r *http.Request) (domain.CompressionSettings, error) {
	q := r.URL.Query()
	settings := h.defaults

	if name := q.Get("preset"); name != "" {
		p, ok := domain.LookupPreset(name)
		if !ok {
			return settings, fmt.Errorf("unknown preset %q", name)
		}
		settings = p.Settings
	}

	if v := q.Get("quality"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return settings, fmt.Errorf("quality: %w", err)
		}
		settings.Quality = n
	}

	if v := q.Get("scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return settings, fmt.Errorf("scale: %w", err)
		}
		settings.Scale = f
	}

	return settings.Normalize(), nil
}

func readUpload(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return "", nil, err
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "document.pdf"
		}
		return name, data, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return "", nil, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

// OutputName derives the download name for a compressed input.
func OutputName(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return base + "-compressed.pdf"
}

func statusFor(err error) int {
	switch {
	case domain.IsType(err, domain.ErrorTypeLoad), domain.IsType(err, domain.ErrorTypeValidation):
		return http.StatusUnprocessableEntity
	case domain.IsType(err, domain.ErrorTypeCancelled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	dto := ErrorDTO{Error: message}
	if err != nil {
		dto.Detail = err.Error()
		var pe *domain.PipelineError
		if errors.As(err, &pe) {
			dto.Stage = string(pe.Stage)
			dto.Page = pe.Page
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Int("status", status).Msg(message)
	}
	h.writeJSON(w, status, dto)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to encode response")
	}
}
