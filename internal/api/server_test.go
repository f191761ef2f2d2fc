package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/doconv/internal/config"
	"github.com/dgallion1/doconv/internal/convert"
	"github.com/dgallion1/doconv/internal/doctree"
	"github.com/dgallion1/doconv/internal/metrics"
	"github.com/dgallion1/doconv/internal/parser"
	"github.com/dgallion1/doconv/internal/pipeline"
	"github.com/dgallion1/doconv/internal/render"
	"github.com/dgallion1/doconv/internal/storage"
)

func testConfig() config.Config {
	return config.Config{
		MaxUploadBytes:      1 << 20,
		DefaultChunkSize:    400,
		DefaultChunkOverlap: 250,
		TablePadMargin:      100,
		AlignMode:           "window",
		DefaultDOCXBucket:   "converted-docx-output",
		DefaultHTMLBucket:   "converted-html-output",
		SignedURLTTL:        60 * time.Minute,
		WorkerCount:         1,
		MaxQueueSize:        4,
		JobTTL:              time.Hour,
		StatsWindow:         time.Hour,
	}
}

type testEnv struct {
	srv   *Server
	store *storage.Memory
	orch  *pipeline.Orchestrator
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	m := metrics.New(cfg.StatsWindow)
	store := storage.NewMemory()
	conv := convert.New(log, m, parser.Options{})
	orch := pipeline.NewOrchestrator(cfg, conv, store, log, m)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return &testEnv{
		srv:   NewServer(orch, conv, store, m, log, cfg),
		store: store,
		orch:  orch,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, path, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path string, v any) *http.Request {
	data, _ := json.Marshal(v)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func sampleDOCX(t *testing.T) []byte {
	t.Helper()
	tree := &doctree.DocTree{Title: "sample"}
	tree.Add(doctree.Block{Kind: doctree.Paragraph, Text: "hello from word"})
	var buf bytes.Buffer
	if err := render.DOCX(&buf, tree); err != nil {
		t.Fatalf("render docx: %v", err)
	}
	return buf.Bytes()
}

func TestHealthAndIndex(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	var body map[string]string
	decode(t, rec, &body)
	if !strings.Contains(body["message"], "/convert_pdf2word") {
		t.Errorf("unexpected index message %q", body["message"])
	}
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "secret"
	env := newTestEnv(t, cfg)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"public health", "/health", "", http.StatusOK},
		{"public metrics", "/metrics", "", http.StatusOK},
		{"missing key", "/api/stats/conversions", "", http.StatusUnauthorized},
		{"wrong key", "/api/stats/conversions", "Bearer nope", http.StatusUnauthorized},
		{"valid key", "/api/stats/conversions", "Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if rec := env.do(req); rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUploadHTMLToWord(t *testing.T) {
	env := newTestEnv(t, testConfig())

	req := multipartRequest(t, "/convert_html2word", "page.html", []byte("<h1>Title</h1><p>Body text</p>"), nil)
	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != convert.DOCX.ContentType() {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename=page.docx` {
		t.Errorf("unexpected content disposition %q", cd)
	}

	tree, err := (&parser.DOCXParser{}).Parse(bytes.NewReader(rec.Body.Bytes()), "page.docx")
	if err != nil {
		t.Fatalf("parse response docx: %v", err)
	}
	if !strings.Contains(tree.PlainText(), "Body text") {
		t.Errorf("converted docx lost text: %q", tree.PlainText())
	}
}

func TestUploadWordToHTML(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(multipartRequest(t, "/convert_word2html", "letter.docx", sampleDOCX(t), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "<p>hello from word</p>") {
		t.Errorf("unexpected html %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "letter.html") {
		t.Errorf("unexpected content disposition %q", cd)
	}
}

func TestUploadRejectsWrongType(t *testing.T) {
	env := newTestEnv(t, testConfig())

	tests := []struct {
		name     string
		filename string
		want     int
	}{
		{"wrong source format", "notes.txt", http.StatusBadRequest},
		{"unsupported extension", "image.png", http.StatusBadRequest},
		{"no file", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(multipartRequest(t, "/convert_pdf2word", tt.filename, []byte("data"), nil))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 16
	env := newTestEnv(t, cfg)

	rec := env.do(multipartRequest(t, "/convert_html2word", "big.html", bytes.Repeat([]byte("x"), 64), nil))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStorageConvert(t *testing.T) {
	env := newTestEnv(t, testConfig())
	if err := env.store.Upload(context.Background(), "uploads", "docs/letter.docx", sampleDOCX(t), convert.DOCX.ContentType()); err != nil {
		t.Fatal(err)
	}

	rec := env.do(jsonRequest(http.MethodPost, "/convert_word2html_from_gcs", map[string]string{
		"source_bucket":   "uploads",
		"source_filename": "docs/letter.docx",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Message      string `json:"message"`
		DownloadURL  string `json:"download_url"`
		ExpiresIn    int    `json:"expires_in_minutes"`
		OutputBucket string `json:"output_bucket"`
		OutputKey    string `json:"output_key"`
	}
	decode(t, rec, &body)
	if body.ExpiresIn != 60 {
		t.Errorf("expected 60 minutes, got %d", body.ExpiresIn)
	}
	if body.OutputBucket != "converted-html-output" || body.OutputKey != "docs/letter.html" {
		t.Errorf("unexpected output location %s/%s", body.OutputBucket, body.OutputKey)
	}
	if !strings.HasPrefix(body.DownloadURL, "mem://converted-html-output/docs/letter.html") {
		t.Errorf("unexpected download url %q", body.DownloadURL)
	}

	data, err := env.store.Download(context.Background(), "converted-html-output", "docs/letter.html")
	if err != nil {
		t.Fatalf("output not stored: %v", err)
	}
	if !strings.Contains(string(data), "hello from word") {
		t.Errorf("unexpected stored html %q", data)
	}
}

func TestStorageConvertErrors(t *testing.T) {
	env := newTestEnv(t, testConfig())

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing object", map[string]string{"source_bucket": "b", "source_filename": "gone.pdf"}, http.StatusNotFound},
		{"wrong extension", map[string]string{"source_bucket": "b", "source_filename": "a.docx"}, http.StatusBadRequest},
		{"missing fields", map[string]string{"source_bucket": "b"}, http.StatusBadRequest},
		{"bad json", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(jsonRequest(http.MethodPost, "/convert_pdf2word_from_gcs", tt.body))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

type preprocessBody struct {
	Documents []struct {
		PageContent string `json:"page_content"`
		Metadata    struct {
			Tables []int  `json:"tables"`
			Locs   [2]int `json:"locs"`
			Source string `json:"source"`
		} `json:"metadata"`
	} `json:"documents"`
	Tables []struct {
		Index int    `json:"index"`
		HTML  string `json:"html"`
	} `json:"tables"`
}

func TestPreprocessHTMLField(t *testing.T) {
	env := newTestEnv(t, testConfig())

	html := "<p>aaaaaaaaaa</p><table><tr><td>XYZ</td></tr></table>"
	rec := env.do(multipartRequest(t, "/api/preprocess", "", nil, map[string]string{
		"html":          html,
		"chunk_size":    "10",
		"chunk_overlap": "5",
		"source":        "inline",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body preprocessBody
	decode(t, rec, &body)
	if len(body.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(body.Documents))
	}
	if body.Documents[0].Metadata.Locs != [2]int{0, 10} || body.Documents[1].Metadata.Locs != [2]int{5, 13} {
		t.Errorf("unexpected locs %v %v", body.Documents[0].Metadata.Locs, body.Documents[1].Metadata.Locs)
	}
	for i, d := range body.Documents {
		if len(d.Metadata.Tables) != 1 || d.Metadata.Tables[0] != 0 {
			t.Errorf("document %d: expected tables [0], got %v", i, d.Metadata.Tables)
		}
		if d.Metadata.Source != "inline" {
			t.Errorf("document %d: expected source inline, got %q", i, d.Metadata.Source)
		}
	}
	if len(body.Tables) != 1 || !strings.Contains(body.Tables[0].HTML, "XYZ") {
		t.Errorf("unexpected tables %+v", body.Tables)
	}
}

func TestPreprocessUpload(t *testing.T) {
	env := newTestEnv(t, testConfig())

	md := "# Report\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"
	rec := env.do(multipartRequest(t, "/api/preprocess", "report.md", []byte(md), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body preprocessBody
	decode(t, rec, &body)
	if len(body.Documents) != 1 || body.Documents[0].Metadata.Source != "report.md" {
		t.Fatalf("unexpected documents %+v", body.Documents)
	}
	if len(body.Tables) != 1 {
		t.Errorf("expected 1 table, got %d", len(body.Tables))
	}
}

func TestPreprocessInvalidChunking(t *testing.T) {
	env := newTestEnv(t, testConfig())

	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"overlap not smaller", map[string]string{"html": "<p>x</p>", "chunk_size": "5", "chunk_overlap": "5"}},
		{"zero size", map[string]string{"html": "<p>x</p>", "chunk_size": "0"}},
		{"not a number", map[string]string{"html": "<p>x</p>", "chunk_size": "ten"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(multipartRequest(t, "/api/preprocess", "", nil, tt.fields))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPreprocessFromStorage(t *testing.T) {
	env := newTestEnv(t, testConfig())
	if err := env.store.Upload(context.Background(), "uploads", "notes.txt", []byte("first paragraph\n\nsecond paragraph"), "text/plain"); err != nil {
		t.Fatal(err)
	}

	rec := env.do(jsonRequest(http.MethodPost, "/api/preprocess/from_storage", map[string]any{
		"source_bucket":   "uploads",
		"source_filename": "notes.txt",
		"chunk_size":      20,
		"chunk_overlap":   0,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body preprocessBody
	decode(t, rec, &body)
	if len(body.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(body.Documents))
	}
	if body.Documents[0].Metadata.Source != "notes.txt" {
		t.Errorf("unexpected source %q", body.Documents[0].Metadata.Source)
	}

	rec = env.do(jsonRequest(http.MethodPost, "/api/preprocess/from_storage", map[string]any{
		"source_bucket":   "uploads",
		"source_filename": "missing.txt",
	}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestJobs(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	env.store.Upload(ctx, "in", "a.txt", []byte("alpha"), "text/plain")
	env.store.Upload(ctx, "in", "b.md", []byte("# Beta"), "text/markdown")

	rec := env.do(jsonRequest(http.MethodPost, "/api/jobs", map[string]any{
		"target":  "docx",
		"sources": []map[string]string{{"bucket": "in", "key": "a.txt"}, {"bucket": "in", "key": "b.md"}},
	}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	decode(t, rec, &accepted)

	var snap pipeline.JobSnapshot
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = env.do(httptest.NewRequest(http.MethodGet, accepted.PollURL, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("poll: %d %s", rec.Code, rec.Body.String())
		}
		decode(t, rec, &snap)
		if snap.Phase == "done" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, last status %q", snap.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %q: %v", snap.Status, snap.Progress.Errors)
	}
	if snap.OutputBucket != "converted-docx-output" || len(snap.Results) != 2 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if _, err := env.store.Download(ctx, "converted-docx-output", "b.docx"); err != nil {
		t.Errorf("b.docx not uploaded: %v", err)
	}
}

func TestJobsValidation(t *testing.T) {
	env := newTestEnv(t, testConfig())

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"bad target", map[string]any{"target": "xlsx", "sources": []map[string]string{{"bucket": "in", "key": "a.pdf"}}}, http.StatusBadRequest},
		{"no sources", map[string]any{"target": "html"}, http.StatusBadRequest},
		{"source without key", map[string]any{"target": "html", "sources": []map[string]string{{"bucket": "in"}}}, http.StatusBadRequest},
		{"unsupported pair", map[string]any{"target": "docx", "sources": []map[string]string{{"bucket": "in", "key": "a.docx"}}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(jsonRequest(http.MethodPost, "/api/jobs", tt.body))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown job, got %d", rec.Code)
	}
}

func TestStatsAndMetrics(t *testing.T) {
	env := newTestEnv(t, testConfig())

	env.do(multipartRequest(t, "/convert_html2word", "page.html", []byte("<p>x</p>"), nil))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/stats/conversions", nil))
	var stats struct {
		WindowSeconds int                        `json:"window_seconds"`
		Pairs         map[string]json.RawMessage `json:"pairs"`
	}
	decode(t, rec, &stats)
	if stats.WindowSeconds != 3600 {
		t.Errorf("expected 3600s window, got %d", stats.WindowSeconds)
	}
	if _, ok := stats.Pairs["html->docx"]; !ok {
		t.Errorf("missing html->docx pair in %v", stats.Pairs)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"doconv_conversions_total", "doconv_http_requests_total"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":          "report.pdf",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\cv.docx`: "C:_Users_me_cv.docx",
		"":                    "unnamed",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
