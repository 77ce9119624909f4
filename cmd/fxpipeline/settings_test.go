package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/facebookincubator/go-belt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/fxpipeline"
	"github.com/xaionaro-go/fxpipeline/config"
	"github.com/xaionaro-go/fxpipeline/config/sqlitestore"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/fxpipeline/scheduler"
	"github.com/xaionaro-go/fxpipeline/watermark"
)

func testCtx(t *testing.T) context.Context {
	ctx := logger.CtxWithLogrus(context.Background(), logger.LevelTrace)
	t.Cleanup(func() { belt.Flush(ctx) })
	return ctx
}

var nopSink = scheduler.SinkFunc(func(ctx context.Context, f *frame.Frame) error { return nil })

func TestSettingsHandler(t *testing.T) {
	ctx := testCtx(t)

	store, err := sqlitestore.Open(ctx, filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	defer store.Close()

	p, err := fxpipeline.New(ctx, config.Default(), store, nil, nopSink)
	require.NoError(t, err)
	defer p.Close(ctx)

	h := settingsHandler(p)

	req := httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(
		"effects:\n  face_outline: false\n  face_mesh: true\nwatermark:\n  location: top_right\n",
	))
	rec := httptest.NewRecorder()
	h(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	snapshot := p.Orchestrator.Snapshot()
	assert.False(t, snapshot.Effects.FaceOutline)
	assert.True(t, snapshot.Effects.FaceMesh)
	assert.Equal(t, watermark.LocationTopRight, snapshot.Watermark.Location)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "face_mesh: true")
	assert.Contains(t, rec.Body.String(), "location: top_right")

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader("watermark:\n  location: nowhere\n")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Same(t, snapshot, p.Orchestrator.Snapshot())

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodDelete, "/settings", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSettingsHandlerReadOnlyStore(t *testing.T) {
	ctx := testCtx(t)
	store := config.NewStaticStore(config.DefaultEffects(), config.DefaultWatermarkSettings())
	p, err := fxpipeline.New(ctx, config.Default(), store, nil, nopSink)
	require.NoError(t, err)
	defer p.Close(ctx)

	rec := httptest.NewRecorder()
	settingsHandler(p)(rec, httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader("effects: {}\n")))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

type failingSink struct{}

func (failingSink) SendFrame(ctx context.Context, f *frame.Frame) error {
	return errors.New("boom")
}

func TestSinks(t *testing.T) {
	ctx := testCtx(t)
	var count int
	counting := scheduler.SinkFunc(func(ctx context.Context, f *frame.Frame) error {
		count++
		return nil
	})

	f := frame.New(4, 4, 0)
	defer f.Release()

	require.NoError(t, sinks{counting, counting}.SendFrame(ctx, f))
	assert.Equal(t, 2, count)

	require.Error(t, sinks{failingSink{}, counting}.SendFrame(ctx, f))
	assert.Equal(t, 3, count)
}
