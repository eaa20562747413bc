package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"newsdesk/internal/model"
	"newsdesk/internal/newsroom"
	"newsdesk/internal/store"

	"github.com/go-shiori/go-readability"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const scrapeTimeout = 30 * time.Second

// Scraper downloads and extracts an article.
// This allows us to mock the "Download" step in tests.
type Scraper interface {
	Scrape(url string, timeout time.Duration) (*readability.Article, error)
}

// DefaultScraper is the real implementation that uses the internet
type DefaultScraper struct{}

func (s *DefaultScraper) Scrape(url string, timeout time.Duration) (*readability.Article, error) {
	art, err := readability.FromURL(url, timeout)
	return &art, err
}

// ImageProber checks that an image URL can be loaded.
type ImageProber interface {
	Probe(ctx context.Context, url string) error
}

// HTTPProber issues a HEAD request for the image.
type HTTPProber struct {
	Client *http.Client
}

func (p *HTTPProber) Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("image returned %s", resp.Status)
	}
	return nil
}

// JobQueue is where import jobs come from and failures go to.
type JobQueue interface {
	Pop(ctx context.Context) (store.ImportJob, error)
	Fail(ctx context.Context, job store.ImportJob, msg string) error
}

// Worker turns queued URLs into draft posts.
type Worker struct {
	store     store.Store
	queue     JobQueue
	logger    *zap.Logger
	scraper   Scraper
	prober    ImageProber
	sanitizer *bluemonday.Policy
}

// NewWorker initializes the worker with the DefaultScraper
func NewWorker(st store.Store, queue JobQueue, logger *zap.Logger) *Worker {
	return &Worker{
		store:     st,
		queue:     queue,
		logger:    logger,
		scraper:   &DefaultScraper{},
		prober:    &HTTPProber{Client: &http.Client{Timeout: 10 * time.Second}},
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// Start runs the worker loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Worker started. Waiting for jobs...")

	for {
		// Wait for job (Blocking call to Redis)
		job, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Worker shutting down")
				return
			}
			w.logger.Error("Queue error", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		w.processJob(ctx, job)
	}
}

func (w *Worker) processJob(ctx context.Context, job store.ImportJob) {
	logger := w.logger.With(zap.String("job_id", job.ID.String()))
	logger.Info("Importing", zap.String("url", job.URL))

	// Imports write as an editor
	ctx = store.WithRole(ctx, store.RoleEditor)

	article, err := w.scraper.Scrape(job.URL, scrapeTimeout)
	if err != nil {
		logger.Error("Scraping failed", zap.Error(err))
		w.failJob(ctx, job, err.Error())
		return
	}
	if article.Title == "" {
		w.failJob(ctx, job, "no title found")
		return
	}

	slug, err := w.freeSlug(ctx, model.Slugify(article.Title))
	if err != nil {
		logger.Error("Slug lookup failed", zap.Error(err))
		w.failJob(ctx, job, err.Error())
		return
	}

	post := model.NewPost(article.Title, slug)
	// third-party markup; only the UGC subset is kept
	post.Content = w.sanitizer.Sanitize(article.Content)
	post.MetaDescription = article.Excerpt
	if article.Image != "" {
		post.ImageURL = newsroom.ImageSource(article.Image, w.prober.Probe(ctx, article.Image))
	}

	if err := w.store.Save(ctx, &post); err != nil {
		logger.Error("Failed to save draft", zap.Error(err))
		w.failJob(ctx, job, err.Error())
		return
	}

	logger.Info("Import complete", zap.String("post_id", post.ID), zap.String("slug", post.Slug))
}

// freeSlug returns base, or base with a short suffix if it is taken.
func (w *Worker) freeSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "medienmitteilung"
	}
	_, err := w.store.GetBySlug(ctx, base)
	if errors.Is(err, store.ErrNotFound) {
		return base, nil
	}
	if err != nil {
		return "", err
	}
	return base + "-" + uuid.NewString()[:8], nil
}

func (w *Worker) failJob(ctx context.Context, job store.ImportJob, msg string) {
	if err := w.queue.Fail(ctx, job, msg); err != nil {
		w.logger.Error("Failed to record failed job", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}
