//go:build !integration

package main

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dse-bonds/internal/export"
	"github.com/sells-group/dse-bonds/internal/monitoring"
	"github.com/sells-group/dse-bonds/internal/pipeline"
)

func TestResolvePort(t *testing.T) {
	assert.Equal(t, 8080, resolvePort(8080, 5001))
	assert.Equal(t, 5001, resolvePort(0, 5001))
}

func TestBuildHandler_RequiresSecret(t *testing.T) {
	useConfig(t)
	cfg.Server.SecretKey = ""

	_, err := buildHandler(pipeline.New(nil, nil, cfg.Export), nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build server")
}

func TestBuildHandler_UploadRoundTrip(t *testing.T) {
	useConfig(t)
	ctx := context.Background()

	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	reg := prometheus.NewRegistry()
	p := pipeline.New(st, monitoring.NewMetrics(reg), cfg.Export)
	h, err := buildHandler(p, st, monitoring.NewCollector(st), reg)
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "report.html")
	require.NoError(t, err)
	_, err = part.Write([]byte(testReport))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=DSE_bond_data.xlsx", rec.Header().Get("Content-Disposition"))

	rows, err := export.ReadXLSX(rec.Body.Bytes(), "Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "XYZ", rows[2][0])

	for _, path := range []string{"/health", "/health/ready", "/status", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
