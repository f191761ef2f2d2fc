package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/dgallion1/doconv/internal/convert"
	"github.com/dgallion1/doconv/internal/storage"
)

// Output is a converted object and its signed download link.
type Output struct {
	Bucket      string
	Key         string
	DownloadURL string
}

// Worker converts objects from storage and uploads the results.
type Worker struct {
	conv    *convert.Service
	store   storage.Store
	log     *slog.Logger
	signTTL time.Duration
	backoff func(attempt int) time.Duration
}

func NewWorker(conv *convert.Service, store storage.Store, log *slog.Logger, signTTL time.Duration) *Worker {
	return &Worker{
		conv:    conv,
		store:   store,
		log:     log,
		signTTL: signTTL,
		backoff: Backoff,
	}
}

// Process converts every source of the job and sets its final status.
func (w *Worker) Process(ctx context.Context, job *Job) JobStatus {
	log := w.log.With("job_id", job.ID, "target", job.Target, "sources", len(job.Sources))
	log.Info("job started")

	for i, src := range job.Sources {
		if err := ctx.Err(); err != nil {
			job.AddResult(ItemResult{Source: src, Error: err.Error()})
			continue
		}
		out, err := w.convertObject(ctx, job, src, job.Target, job.OutputBucket)
		if err != nil {
			log.Error("source failed", "index", i, "bucket", src.Bucket, "key", src.Key, "error", err)
			job.AddResult(ItemResult{Source: src, Error: err.Error()})
			continue
		}
		job.AddResult(ItemResult{Source: src, OutputKey: out.Key, DownloadURL: out.DownloadURL})
	}

	status := job.Finish()
	snap := job.Snapshot()
	log.Info("job finished", "status", status, "completed", snap.Progress.Completed, "failed", snap.Progress.Failed)
	return status
}

// ConvertObject downloads src, converts it to target, uploads the result to
// outputBucket and returns a signed link to it.
func (w *Worker) ConvertObject(ctx context.Context, src Source, target convert.Format, outputBucket string) (*Output, error) {
	return w.convertObject(ctx, nil, src, target, outputBucket)
}

func (w *Worker) convertObject(ctx context.Context, job *Job, src Source, target convert.Format, outputBucket string) (*Output, error) {
	setStatus := func(s JobStatus) {
		if job != nil {
			job.SetStatus(s, string(s)+" "+src.Key)
		}
	}

	setStatus(StatusDownloading)
	var data []byte
	err := retry(ctx, w.log, "download", w.backoff, func() error {
		var err error
		data, err = w.store.Download(ctx, src.Bucket, src.Key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	setStatus(StatusConverting)
	res, err := w.conv.Convert(ctx, data, src.Key, target)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}

	setStatus(StatusUploading)
	key := OutputKey(src.Key, target)
	err = retry(ctx, w.log, "upload", w.backoff, func() error {
		return w.store.Upload(ctx, outputBucket, key, res.Data, res.ContentType)
	})
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	url, err := w.store.SignedURL(ctx, outputBucket, key, w.signTTL)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return &Output{Bucket: outputBucket, Key: key, DownloadURL: url}, nil
}

// OutputKey keeps the directory of key and swaps the extension for target.
func OutputKey(key string, target convert.Format) string {
	name := convert.OutputFilename(key, target)
	if dir := path.Dir(key); dir != "." && dir != "/" {
		return path.Join(dir, name)
	}
	return name
}
