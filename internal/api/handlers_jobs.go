package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dgallion1/doconv/internal/convert"
	"github.com/dgallion1/doconv/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

type submitJobRequest struct {
	Target       string            `json:"target"`
	OutputBucket string            `json:"output_bucket"`
	Sources      []pipeline.Source `json:"sources"`
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	target, err := convert.ParseFormat(req.Target)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Sources) == 0 {
		jsonError(w, "at least one source is required", http.StatusBadRequest)
		return
	}
	for _, src := range req.Sources {
		if src.Bucket == "" || src.Key == "" {
			jsonError(w, "every source needs a bucket and a key", http.StatusBadRequest)
			return
		}
		from, err := convert.FormatOf(src.Key)
		if err != nil || !convert.Supported(from, target) {
			jsonError(w, fmt.Sprintf("cannot convert %q to %s", src.Key, target), http.StatusUnprocessableEntity)
			return
		}
	}
	if req.OutputBucket == "" {
		req.OutputBucket = s.defaultBucket(target)
	}

	job := pipeline.NewJob(target, req.OutputBucket, req.Sources)
	if err := s.orchestrator.Submit(job); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrQueueFull) {
			code = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"sources":  len(job.Sources),
		"poll_url": fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}
