package domain

import (
	"image"
	"math"
	"strings"
	"time"
)

// Settings bounds and defaults.
const (
	MinQuality     = 1
	MaxQuality     = 100
	DefaultQuality = 40

	MinScale     = 0.5
	MaxScale     = 3.0
	DefaultScale = 1.5
)

// CompressionSettings are the two knobs of a compression run.
type CompressionSettings struct {
	Quality int     `json:"quality" yaml:"quality"` // 1..100, lossy encode fidelity
	Scale   float64 `json:"scale" yaml:"scale"`     // 0.5..3.0, linear raster magnification
}

// DefaultSettings returns the "balanced" preset.
func DefaultSettings() CompressionSettings {
	return CompressionSettings{Quality: DefaultQuality, Scale: DefaultScale}
}

// Normalize clamps both values into range. Out-of-range values are never
// rejected; a NaN scale falls back to the default.
func (s CompressionSettings) Normalize() CompressionSettings {
	q := s.Quality
	if q < MinQuality {
		q = MinQuality
	}
	if q > MaxQuality {
		q = MaxQuality
	}

	sc := s.Scale
	switch {
	case math.IsNaN(sc):
		sc = DefaultScale
	case sc < MinScale:
		sc = MinScale
	case sc > MaxScale:
		sc = MaxScale
	}

	return CompressionSettings{Quality: q, Scale: sc}
}

// QualityFraction maps quality onto the encoder's (0,1] factor.
func (s CompressionSettings) QualityFraction() float64 {
	return float64(s.Normalize().Quality) / 100
}

// Preset is a named pair of settings offered to users.
type Preset struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Settings    CompressionSettings `json:"settings"`
}

// Presets lists the recognized presets, most aggressive first.
var Presets = []Preset{
	{Name: "max", Description: "maximum compression", Settings: CompressionSettings{Quality: 20, Scale: 0.8}},
	{Name: "balanced", Description: "balanced (default)", Settings: CompressionSettings{Quality: 40, Scale: 1.5}},
	{Name: "clarity", Description: "preserve clarity", Settings: CompressionSettings{Quality: 80, Scale: 2.0}},
}

// LookupPreset finds a preset by name, ignoring case.
func LookupPreset(name string) (Preset, bool) {
	name = strings.TrimSpace(name)
	for _, p := range Presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

// PageRaster is the pixel buffer of one rendered page. It is owned by the
// pipeline iteration that produced it and must be released before the next
// page is rendered.
type PageRaster struct {
	PageNumber int
	Width      int
	Height     int
	Pixels     *image.RGBA

	onRelease func()
	released  bool
}

// NewPageRaster wraps pixels for a page. onRelease, if set, runs once on Release.
func NewPageRaster(pageNumber int, pixels *image.RGBA, onRelease func()) *PageRaster {
	r := &PageRaster{PageNumber: pageNumber, Pixels: pixels, onRelease: onRelease}
	if pixels != nil {
		b := pixels.Bounds()
		r.Width, r.Height = b.Dx(), b.Dy()
	}
	return r
}

// Release drops the pixel buffer. Calling it more than once is a no-op.
func (r *PageRaster) Release() {
	if r == nil || r.released {
		return
	}
	r.released = true
	r.Pixels = nil
	if r.onRelease != nil {
		r.onRelease()
		r.onRelease = nil
	}
}

// Released reports whether Release has been called.
func (r *PageRaster) Released() bool {
	return r != nil && r.released
}

// EncodedImage is a lossy byte stream plus the pixel size it represents.
type EncodedImage struct {
	Data   []byte
	Width  int
	Height int
}

// ProcessingResult is produced only when every page was compressed.
type ProcessingResult struct {
	Bytes            []byte              `json:"-"`
	OriginalSize     int64               `json:"original_size"`
	CompressedSize   int64               `json:"compressed_size"`
	ReductionPercent int                 `json:"reduction_percent"`
	PageCount        int                 `json:"page_count"`
	Settings         CompressionSettings `json:"settings"`
	Duration         time.Duration       `json:"duration"`
}

// ReductionPercent returns round((1 - compressed/original) * 100), rounding
// halves up. A zero original size yields 0.
func ReductionPercent(originalSize, compressedSize int64) int {
	if originalSize <= 0 {
		return 0
	}
	return RoundHalfUp((1 - float64(compressedSize)/float64(originalSize)) * 100)
}

// RoundHalfUp rounds x to the nearest integer, with halves going toward +Inf.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Stage names a state of the compression state machine.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageLoading    Stage = "loading"
	StageRendering  Stage = "rendering"
	StageEncoding   Stage = "encoding"
	StageAssembling Stage = "assembling"
	StageFinalizing Stage = "finalizing"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// ProgressEvent is emitted in order during a run. Percent never decreases.
type ProgressEvent struct {
	Percent    int       `json:"percent"`
	Message    string    `json:"message,omitempty"`
	Stage      Stage     `json:"stage"`
	PageNumber int       `json:"page_number,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ProgressFunc receives progress events synchronously.
type ProgressFunc func(ProgressEvent)

// SizeEstimate is an advisory output size range in bytes.
type SizeEstimate struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Percent int     `json:"percent"`
}
