package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-compressor/internal/domain"
	"github.com/spherical/pdf-compressor/internal/observability"
)

type fakeCompressor struct {
	gotName     string
	gotData     []byte
	gotSettings domain.CompressionSettings
	err         error
}

func (f *fakeCompressor) Compress(ctx context.Context, name string, data []byte, settings domain.CompressionSettings, onProgress func(domain.ProgressEvent)) (*domain.ProcessingResult, error) {
	f.gotName, f.gotData, f.gotSettings = name, data, settings
	if f.err != nil {
		return nil, f.err
	}
	onProgress(domain.ProgressEvent{Percent: 100, Stage: domain.StageDone})
	out := []byte("%PDF-1.7 compressed")
	return &domain.ProcessingResult{
		Bytes:            out,
		OriginalSize:     int64(len(data)),
		CompressedSize:   int64(len(out)),
		ReductionPercent: domain.ReductionPercent(int64(len(data)), int64(len(out))),
		PageCount:        3,
		Settings:         settings,
	}, nil
}

func newTestServer(c Compressor, maxUpload int64) http.Handler {
	h := NewHandler(observability.Nop(), c, HandlerConfig{
		Defaults:          domain.DefaultSettings(),
		MaxUploadSize:     maxUpload,
		MaxConcurrentJobs: 1,
	})
	return NewRouter(observability.Nop(), h)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&fakeCompressor{}, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestCompressRawBody(t *testing.T) {
	fc := &fakeCompressor{}
	body := bytes.Repeat([]byte("x"), 190)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compress?name=report.pdf&preset=max&quality=25", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/pdf")
	rec := httptest.NewRecorder()
	newTestServer(fc, 1024).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "report.pdf", fc.gotName)
	assert.Equal(t, body, fc.gotData)
	assert.Equal(t, domain.CompressionSettings{Quality: 25, Scale: 0.8}, fc.gotSettings)

	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report-compressed.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "190", rec.Header().Get("X-Original-Size"))
	assert.Equal(t, "19", rec.Header().Get("X-Compressed-Size"))
	assert.Equal(t, "90", rec.Header().Get("X-Reduction-Percent"))
	assert.Equal(t, "3", rec.Header().Get("X-Page-Count"))
	assert.Equal(t, "%PDF-1.7 compressed", rec.Body.String())
}

func TestCompressMultipart(t *testing.T) {
	fc := &fakeCompressor{}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "scan.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 data"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compress", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newTestServer(fc, 1<<20).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "scan.pdf", fc.gotName)
	assert.Equal(t, []byte("%PDF-1.4 data"), fc.gotData)
	assert.Equal(t, domain.DefaultSettings(), fc.gotSettings)
}

func TestCompressRejectsOversizedUpload(t *testing.T) {
	fc := &fakeCompressor{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compress", bytes.NewReader(make([]byte, 2048)))
	rec := httptest.NewRecorder()
	newTestServer(fc, 1024).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, fc.gotData)
}

func TestCompressRejectsBadSettings(t *testing.T) {
	for _, query := range []string{"preset=turbo", "quality=high", "scale=big"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/compress?"+query, bytes.NewReader([]byte("%PDF-")))
		rec := httptest.NewRecorder()
		newTestServer(&fakeCompressor{}, 1024).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestCompressErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		stage  string
		page   int
	}{
		{
			name:   "load",
			err:    &domain.PipelineError{Stage: domain.StageLoading, Err: domain.LoadError("PDF has no pages", nil)},
			status: http.StatusUnprocessableEntity,
			stage:  "loading",
		},
		{
			name:   "render",
			err:    &domain.PipelineError{Stage: domain.StageRendering, Page: 4, Err: domain.RenderError("bad page", nil)},
			status: http.StatusInternalServerError,
			stage:  "rendering",
			page:   4,
		},
		{
			name:   "cancelled",
			err:    &domain.PipelineError{Stage: domain.StageRendering, Page: 2, Err: domain.CancelledError(context.Canceled)},
			status: http.StatusRequestTimeout,
			stage:  "rendering",
			page:   2,
		},
		{
			name:   "untyped",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/compress", bytes.NewReader([]byte("%PDF-")))
			rec := httptest.NewRecorder()
			newTestServer(&fakeCompressor{err: tt.err}, 1024).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)

			var dto ErrorDTO
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
			assert.Equal(t, "compression failed", dto.Error)
			assert.Equal(t, tt.stage, dto.Stage)
			assert.Equal(t, tt.page, dto.Page)
			assert.NotEmpty(t, dto.Detail)
		})
	}
}

func TestEstimate(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&fakeCompressor{}, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/estimate?size=1000000", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var dto EstimateDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, int64(1_000_000), dto.OriginalSize)
	assert.Equal(t, domain.DefaultSettings(), dto.Settings)
	assert.Equal(t, 82, dto.Percent)
	assert.InDelta(t, 124_399, dto.Min, 1)
	assert.InDelta(t, 231_027, dto.Max, 1)
}

func TestEstimateRejectsBadSize(t *testing.T) {
	for _, q := range []string{"", "?size=-4", "?size=lots"} {
		rec := httptest.NewRecorder()
		newTestServer(&fakeCompressor{}, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/estimate"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestPresets(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&fakeCompressor{}, 1024).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/presets", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var presets []domain.Preset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &presets))
	assert.Equal(t, domain.Presets, presets)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "report-compressed.pdf", OutputName("report.pdf"))
	assert.Equal(t, "report-compressed.pdf", OutputName("/tmp/in/report.PDF"))
	assert.Equal(t, "archive.tar-compressed.pdf", OutputName("archive.tar.gz"))
	assert.Equal(t, "document-compressed.pdf", OutputName(""))
}
