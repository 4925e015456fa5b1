package compressor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-compressor/internal/assemble"
	"github.com/spherical/pdf-compressor/internal/domain"
)

// fixturePDF builds a PDF whose pages each carry one high-quality photo-like
// image, so re-encoding at lower quality has room to shrink it.
func fixturePDF(t *testing.T, pages int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 600, 800))
	for y := 0; y < 800; y++ {
		for x := 0; x < 600; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x ^ y), G: uint8(x * y >> 4), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))
	encoded := &domain.EncodedImage{Data: buf.Bytes(), Width: 600, Height: 800}

	doc := assemble.NewAssembler(assemble.WithObjectStreams(false)).CreateOutput()
	for i := 0; i < pages; i++ {
		require.NoError(t, doc.AppendPage(encoded, 612, 792))
	}
	data, err := doc.Finalize()
	require.NoError(t, err)
	return data
}

func TestCompressEndToEnd(t *testing.T) {
	input := fixturePDF(t, 3)
	client := NewClient()

	var percents []int
	result, err := client.Compress(context.Background(), "fixture.pdf", input, Settings{Quality: 20, Scale: 0.8}, func(ev ProgressEvent) {
		percents = append(percents, ev.Percent)
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.PageCount)
	assert.Equal(t, int64(len(input)), result.OriginalSize)
	assert.Equal(t, int64(len(result.Bytes)), result.CompressedSize)
	assert.Less(t, result.CompressedSize, result.OriginalSize)
	assert.Greater(t, result.ReductionPercent, 0)
	assert.Equal(t, 100, percents[len(percents)-1])

	conf := assemble.Configuration()
	count, err := api.PageCount(bytes.NewReader(result.Bytes), conf)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	dims, err := api.PageDims(bytes.NewReader(result.Bytes), conf)
	require.NoError(t, err)
	for _, d := range dims {
		assert.InDelta(t, 612, d.Width, 1/0.8)
		assert.InDelta(t, 792, d.Height, 1/0.8)
	}
}

func TestCompressRejectsGarbage(t *testing.T) {
	_, err := NewClient().Compress(context.Background(), "x.pdf", []byte("definitely not a pdf"), Settings{Quality: 40, Scale: 1.5}, nil)
	require.Error(t, err)

	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.StageLoading, pe.Stage)
	assert.True(t, domain.IsType(err, domain.ErrorTypeLoad))
}

func TestCompressFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.pdf")
	require.NoError(t, os.WriteFile(path, fixturePDF(t, 1), 0o644))

	noStreams := false
	client := NewClientWithConfig(&Config{ObjectStreams: &noStreams})

	result, err := client.CompressFile(context.Background(), path, Settings{Quality: 40, Scale: 1.0}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PageCount)
	assert.True(t, bytes.HasPrefix(result.Bytes, []byte("%PDF-1.7")))

	_, err = client.CompressFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), Settings{}, nil)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

func TestStream(t *testing.T) {
	events, outcome := NewClient().Stream(context.Background(), "fixture.pdf", fixturePDF(t, 2), Settings{Quality: 30, Scale: 0.5})

	last := -1
	for ev := range events {
		assert.GreaterOrEqual(t, ev.Percent, last)
		last = ev.Percent
	}
	assert.Equal(t, 100, last)

	out := <-outcome
	require.NoError(t, out.Err)
	assert.Equal(t, 2, out.Result.PageCount)
}

func TestStreamDoesNotBlockOnUnreadEvents(t *testing.T) {
	tiny := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, tiny, nil))
	encoded := &domain.EncodedImage{Data: buf.Bytes(), Width: 8, Height: 8}

	doc := assemble.NewAssembler(assemble.WithObjectStreams(false)).CreateOutput()
	const pages = 150
	for i := 0; i < pages; i++ {
		require.NoError(t, doc.AppendPage(encoded, 40, 40))
	}
	data, err := doc.Finalize()
	require.NoError(t, err)

	events, outcome := NewClient().Stream(context.Background(), "many.pdf", data, Settings{Quality: 20, Scale: 0.5})

	select {
	case out := <-outcome:
		require.NoError(t, out.Err)
		assert.Equal(t, pages, out.Result.PageCount)
	case <-time.After(2 * time.Minute):
		t.Fatal("run stalled while the event channel was unread")
	}

	delivered := 0
	for range events {
		delivered++
	}
	assert.Equal(t, streamBuffer, delivered)
}

func TestPresetsReturnsCopy(t *testing.T) {
	presets := Presets()
	presets[0].Settings.Quality = 99

	p, ok := LookupPreset("max")
	require.True(t, ok)
	assert.Equal(t, 20, p.Settings.Quality)
}

func TestEstimate(t *testing.T) {
	est := Estimate(1_000_000, Settings{Quality: DefaultQuality, Scale: DefaultScale})
	assert.Equal(t, 82, est.Percent)
}
