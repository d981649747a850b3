package app

import (
	"context"
	"fmt"
	"time"
	"virtualmod/internal/shared/util"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}
	if err := ctx.Err(); err != nil {
		status.Status = "down"
		status.Components["context"] = err.Error()
		return status
	}

	if s.app.codeParser != nil {
		status.Components["parser"] = fmt.Sprintf("ok (%d extensions)", len(s.app.codeParser.SupportedExtensions()))
	} else {
		status.Status = "degraded"
		status.Components["parser"] = "missing"
	}

	if s.app.specResolver != nil {
		status.Components["resolver"] = "ok"
	} else {
		status.Status = "degraded"
		status.Components["resolver"] = "missing"
	}

	if s.app.history != nil {
		status.Components["history"] = "ok"
	} else if s.app.Config.History.Enabled {
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	}

	s.app.resultsMu.RLock()
	files, failed := len(s.app.results), 0
	for _, r := range s.app.results {
		if r.err != nil {
			failed++
		}
	}
	s.app.resultsMu.RUnlock()
	status.Components["analysis"] = fmt.Sprintf("ok (%d files, %d aborted)", files, failed)
	status.Components["heap"] = fmt.Sprintf("%d MB", util.HeapAllocMB())

	return status
}
