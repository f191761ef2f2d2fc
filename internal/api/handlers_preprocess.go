package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dgallion1/doconv/internal/htmlprep"
	"github.com/go-chi/chi/v5/middleware"
)

type preprocessStorageRequest struct {
	SourceBucket   string `json:"source_bucket"`
	SourceFilename string `json:"source_filename"`
	ChunkSize      *int   `json:"chunk_size"`
	ChunkOverlap   *int   `json:"chunk_overlap"`
	Source         string `json:"source"`
}

// handlePreprocess chunks an uploaded document, or the "html" form field,
// and reports which tables each chunk overlaps.
func (s *Server) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	cfg := s.cfg.Preprocess()
	for field, dst := range map[string]*int{
		"chunk_size":    &cfg.Chunk.ChunkSize,
		"chunk_overlap": &cfg.Chunk.ChunkOverlap,
	} {
		v := r.FormValue(field)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, fmt.Sprintf("%s must be an integer, got %q", field, v), http.StatusBadRequest)
			return
		}
		*dst = n
	}
	if err := cfg.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	source := r.FormValue("source")
	content := r.FormValue("html")
	if content == "" {
		filename, data, ok := s.readFile(w, r)
		if !ok {
			return
		}
		if source == "" {
			source = filename
		}
		var err error
		content, err = s.conv.ToHTML(r.Context(), data, filename)
		if err != nil {
			jsonError(w, "conversion to html failed: "+err.Error(), errorStatus(err))
			return
		}
	}

	s.preprocess(r.Context(), w, content, source, cfg)
}

func (s *Server) handlePreprocessFromStorage(w http.ResponseWriter, r *http.Request) {
	var req preprocessStorageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SourceBucket == "" || req.SourceFilename == "" {
		jsonError(w, "source_bucket and source_filename are required", http.StatusBadRequest)
		return
	}

	cfg := s.cfg.Preprocess()
	if req.ChunkSize != nil {
		cfg.Chunk.ChunkSize = *req.ChunkSize
	}
	if req.ChunkOverlap != nil {
		cfg.Chunk.ChunkOverlap = *req.ChunkOverlap
	}
	if err := cfg.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		req.Source = req.SourceFilename
	}

	data, err := s.store.Download(r.Context(), req.SourceBucket, req.SourceFilename)
	if err != nil {
		jsonError(w, "download failed: "+err.Error(), errorStatus(err))
		return
	}
	content, err := s.conv.ToHTML(r.Context(), data, req.SourceFilename)
	if err != nil {
		jsonError(w, "conversion to html failed: "+err.Error(), errorStatus(err))
		return
	}

	s.preprocess(r.Context(), w, content, req.Source, cfg)
}

func (s *Server) preprocess(ctx context.Context, w http.ResponseWriter, content, source string, cfg htmlprep.Config) {
	log := s.log.With("request_id", middleware.GetReqID(ctx))
	res, err := htmlprep.Preprocess(log, content, source, cfg)
	if err != nil {
		jsonError(w, "preprocessing failed: "+err.Error(), errorStatus(err))
		return
	}
	s.metrics.ObservePreprocess(len(res.Documents), len(res.Tables))
	writeJSON(w, http.StatusOK, res)
}
