package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/pathwise/trendintel/internal/engine"
	"github.com/pathwise/trendintel/internal/scheduler"
	"github.com/pathwise/trendintel/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h := s.pipeline.CheckPipelineHealth(ctx)

	status := "healthy"
	code := http.StatusOK
	switch {
	case !h.StoreOK:
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	case !h.Healthy:
		status = "degraded"
	}

	writeJSON(w, code, struct {
		Status string `json:"status"`
		scheduler.Health
	}{status, h})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":   version.Version,
		"commit":    version.Commit,
		"buildTime": version.BuildTime,
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"hasAnyDataSource": s.pipeline.HasAnyDataSource(),
		"sources":          s.pipeline.GetDataSourceStatus(),
	})
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	pathID := r.PathValue("pathID")
	q := r.URL.Query()

	insight, err := s.pipeline.ComputeTrendInsight(r.Context(), pathID, q.Get("niche"), q.Get("subSector"))
	switch {
	case errors.Is(err, engine.ErrNoScores):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, engine.ErrMixedDataSources):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		s.logger.Warn("insight failed", "path_id", pathID, "err", err)
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, insight)
	}
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	pathID := r.PathValue("pathID")

	signals, err := s.signals.ListSignals(r.Context(), pathID)
	if err != nil {
		s.logger.Warn("list signals failed", "path_id", pathID, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pathId":  pathID,
		"count":   len(signals),
		"signals": signals,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	pathID := r.PathValue("pathID")

	run, ok := s.pipeline.Status(pathID)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no run recorded for path"))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleRun runs the pipeline synchronously. The run is detached from the
// request context so a disconnecting client does not cancel it mid-stage.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	pathID := r.PathValue("pathID")
	q := r.URL.Query()

	ifStale := false
	if v := q.Get("ifStale"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("ifStale must be a boolean"))
			return
		}
		ifStale = b
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.RunTimeout)
	defer cancel()

	if ifStale {
		res, ran := s.pipeline.RefreshIfStale(ctx, pathID, q.Get("niche"), q.Get("subSector"))
		if !ran {
			writeJSON(w, http.StatusOK, map[string]any{"pathId": pathID, "ran": false})
			return
		}
		writeJSON(w, runStatus(res), res)
		return
	}

	res := s.pipeline.RunFullPipeline(ctx, pathID, q.Get("niche"), q.Get("subSector"))
	writeJSON(w, runStatus(res), res)
}

func runStatus(res scheduler.RunResult) int {
	switch {
	case res.Outcome != scheduler.OutcomeFailure:
		return http.StatusOK
	case errors.Is(res.Err, scheduler.ErrConcurrentRun):
		return http.StatusConflict
	case errors.Is(res.Err, scheduler.ErrNoData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
