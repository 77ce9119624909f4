package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/xaionaro-go/fxpipeline"
	"github.com/xaionaro-go/fxpipeline/config"
	"github.com/xaionaro-go/fxpipeline/logger"
	"gopkg.in/yaml.v3"
)

type settings struct {
	Effects   config.Effects           `yaml:"effects"`
	Watermark config.WatermarkSettings `yaml:"watermark"`
}

type settingsSaver interface {
	Save(ctx context.Context, effects config.Effects, wm config.WatermarkSettings) error
}

// settingsHandler shows the settings on GET; on PUT it stores the new ones
// (if the store supports it) and reloads the pipeline.
func settingsHandler(p *fxpipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/yaml")
			effects, wm, err := p.Store.Load(ctx)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if err := yaml.NewEncoder(w).Encode(settings{Effects: effects, Watermark: wm}); err != nil {
				logger.Errorf(ctx, "unable to write the settings: %v", err)
			}
		case http.MethodPut:
			saver, ok := p.Store.(settingsSaver)
			if !ok {
				http.Error(w, fmt.Sprintf("the settings store %s is read-only", p.Store), http.StatusConflict)
				return
			}
			effects, wm, err := p.Store.Load(ctx)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			s := settings{Effects: effects, Watermark: wm}
			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := yaml.Unmarshal(body, &s); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := s.Watermark.Validate(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := saver.Save(ctx, s.Effects, s.Watermark); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if err := p.Reload(ctx); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Allow", "GET, PUT")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
