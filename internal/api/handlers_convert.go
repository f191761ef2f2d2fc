package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/doconv/internal/chunker"
	"github.com/dgallion1/doconv/internal/convert"
	"github.com/dgallion1/doconv/internal/parser"
	"github.com/dgallion1/doconv/internal/pipeline"
	"github.com/dgallion1/doconv/internal/storage"
)

// storageConvertRequest names an object to convert and where to put the result.
type storageConvertRequest struct {
	SourceBucket   string `json:"source_bucket"`
	SourceFilename string `json:"source_filename"`
	OutputBucket   string `json:"output_bucket"`
}

func (s *Server) handleUploadConvert(from, to convert.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.parseForm(w, r) {
			return
		}
		defer r.MultipartForm.RemoveAll()

		filename, data, ok := s.readFile(w, r)
		if !ok {
			return
		}
		if f, _ := convert.FormatOf(filename); f != from {
			jsonError(w, fmt.Sprintf("expected a .%s file, got %q", from, filename), http.StatusBadRequest)
			return
		}

		res, err := s.conv.Convert(r.Context(), data, filename, to)
		if err != nil {
			jsonError(w, "conversion failed: "+err.Error(), errorStatus(err))
			return
		}

		w.Header().Set("Content-Type", res.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
		w.WriteHeader(http.StatusOK)
		w.Write(res.Data)
	}
}

func (s *Server) handleStorageConvert(from, to convert.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req storageConvertRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.SourceBucket == "" || req.SourceFilename == "" {
			jsonError(w, "source_bucket and source_filename are required", http.StatusBadRequest)
			return
		}
		if f, _ := convert.FormatOf(req.SourceFilename); f != from {
			jsonError(w, fmt.Sprintf("expected a .%s file, got %q", from, req.SourceFilename), http.StatusBadRequest)
			return
		}
		if req.OutputBucket == "" {
			req.OutputBucket = s.defaultBucket(to)
		}

		src := pipeline.Source{Bucket: req.SourceBucket, Key: req.SourceFilename}
		out, err := s.orchestrator.Worker().ConvertObject(r.Context(), src, to, req.OutputBucket)
		if err != nil {
			jsonError(w, "storage conversion failed: "+err.Error(), errorStatus(err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":            "conversion succeeded",
			"download_url":       out.DownloadURL,
			"expires_in_minutes": int(s.cfg.SignedURLTTL.Minutes()),
			"output_bucket":      out.Bucket,
			"output_key":         out.Key,
		})
	}
}

func (s *Server) defaultBucket(to convert.Format) string {
	if to == convert.HTML {
		return s.cfg.DefaultHTMLBucket
	}
	return s.cfg.DefaultDOCXBucket
}

// parseForm parses a size-limited multipart body. On failure it writes the
// error response and returns false. Callers remove the temp files with
// r.MultipartForm.RemoveAll.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// readFile reads the "file" field of a parsed multipart form.
func (s *Server) readFile(w http.ResponseWriter, r *http.Request) (filename string, data []byte, ok bool) {
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return "", nil, false
	}
	defer file.Close()

	filename = sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return "", nil, false
	}

	data, err = io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return "", nil, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return "", nil, false
	}
	return filename, data, true
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, convert.ErrUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, chunker.ErrInvalidConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
