package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/PropExtract/internal/domain"
	"github.com/Strob0t/PropExtract/internal/domain/pdfop"
	"github.com/Strob0t/PropExtract/internal/domain/property"
	"github.com/Strob0t/PropExtract/internal/domain/task"
	"github.com/Strob0t/PropExtract/internal/pdfgen"
	"github.com/Strob0t/PropExtract/internal/port/database"
	"github.com/Strob0t/PropExtract/internal/port/extractor"
	"github.com/Strob0t/PropExtract/internal/port/messagequeue"
)

// Handlers implements the five remote handlers on top of a Runner.
type Handlers struct {
	runner      *Runner
	store       database.Store
	extractor   extractor.Extractor
	reports     *ReportService
	maxParallel int
	now         func() time.Time
}

// NewHandlers creates the handler set. maxParallel bounds the multi-url
// fan-out.
func NewHandlers(runner *Runner, store database.Store, ext extractor.Extractor, reports *ReportService, maxParallel int) *Handlers {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Handlers{
		runner:      runner,
		store:       store,
		extractor:   ext,
		reports:     reports,
		maxParallel: maxParallel,
		now:         time.Now,
	}
}

// Handle decodes and validates a raw payload for kind and runs the matching
// handler. Malformed payloads return domain.ErrValidation.
func (h *Handlers) Handle(ctx context.Context, kind task.Kind, data []byte) error {
	switch kind {
	case task.KindSingleURL:
		var p task.URLPayload
		if err := decode(data, &p); err != nil {
			return err
		}
		return h.ProcessURL(ctx, p)
	case task.KindMultiURL:
		var p task.MultiURLPayload
		if err := decode(data, &p); err != nil {
			return err
		}
		return h.ProcessMultipleURLs(ctx, p)
	case task.KindFile:
		var p task.FilePayload
		if err := decode(data, &p); err != nil {
			return err
		}
		return h.ProcessFile(ctx, p)
	case task.KindPDFMerge:
		var p task.MergePayload
		if err := decode(data, &p); err != nil {
			return err
		}
		return h.MergePDFs(ctx, p)
	case task.KindPDFSplit:
		var p task.SplitPayload
		if err := decode(data, &p); err != nil {
			return err
		}
		return h.SplitPDF(ctx, p)
	default:
		return fmt.Errorf("%w: unknown task kind %q", domain.ErrValidation, kind)
	}
}

type validator interface{ Validate() error }

func decode(data []byte, p validator) error {
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("%w: decode payload: %v", domain.ErrValidation, err)
	}
	return p.Validate()
}

// Listen subscribes the handlers to every dispatch subject on queue.
func (h *Handlers) Listen(ctx context.Context, queue messagequeue.Queue) (func(), error) {
	kinds := []task.Kind{task.KindSingleURL, task.KindMultiURL, task.KindFile, task.KindPDFMerge, task.KindPDFSplit}
	cancels := make([]func(), 0, len(kinds))
	stop := func() {
		for _, c := range cancels {
			c()
		}
	}
	for _, kind := range kinds {
		cancel, err := queue.Subscribe(ctx, messagequeue.DispatchSubject(kind), func(ctx context.Context, _ string, data []byte) error {
			return h.Handle(ctx, kind, data)
		})
		if err != nil {
			stop()
			return nil, fmt.Errorf("subscribe %s: %w", kind, err)
		}
		cancels = append(cancels, cancel)
	}
	return stop, nil
}

// ProcessURL extracts one listing and renders its report.
func (h *Handlers) ProcessURL(ctx context.Context, p task.URLPayload) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return h.runner.Run(ctx, p.TaskID, task.KindSingleURL, func(ctx context.Context, cp Checkpoint) (*task.Result, error) {
		cp(ctx, 20)
		facts, err := h.extractor.FetchPropertyFacts(ctx, p.URL)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", p.URL, err)
		}
		facts.SourceURL = p.URL
		cp(ctx, 50)
		return h.propertyResult(ctx, p.TaskID, facts, cp, 80)
	})
}

// ProcessFile extracts facts from an uploaded document.
func (h *Handlers) ProcessFile(ctx context.Context, p task.FilePayload) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return h.runner.Run(ctx, p.TaskID, task.KindFile, func(ctx context.Context, cp Checkpoint) (*task.Result, error) {
		cp(ctx, 25)
		facts, err := h.extractor.ExtractFile(ctx, p.FileName)
		if err != nil {
			return nil, fmt.Errorf("extract file %s: %w", p.FileName, err)
		}
		return h.propertyResult(ctx, p.TaskID, facts, cp, 60)
	})
}

// propertyResult renders and uploads every artifact for one listing,
// checkpointing renderAt once the HTML report is built.
func (h *Handlers) propertyResult(ctx context.Context, taskID string, facts *property.Facts, cp Checkpoint, renderAt int) (*task.Result, error) {
	html, err := pdfgen.PropertyReport(facts, h.now())
	if err != nil {
		return nil, err
	}
	cp(ctx, renderAt)
	pdfURL, err := h.reports.RenderPDF(ctx, taskID, html, pdfgen.ReportLines(facts))
	if err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	d, err := h.reports.PublishFacts(ctx, taskID, []*property.Facts{facts})
	if err != nil {
		return nil, err
	}
	d.PDF = pdfURL

	r := facts.ToResult(taskID)
	r.SetDownloads(d)
	return r, nil
}

// ProcessMultipleURLs extracts every listing concurrently and renders one
// combined report. Failed URLs are listed in the report, not fatal.
func (h *Handlers) ProcessMultipleURLs(ctx context.Context, p task.MultiURLPayload) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return h.runner.Run(ctx, p.TaskID, task.KindMultiURL, func(ctx context.Context, cp Checkpoint) (*task.Result, error) {
		cp(ctx, 10)
		entries := h.extractAll(ctx, p.URLs, cp)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		facts := make([]property.Facts, 0, len(entries))
		ptrs := make([]*property.Facts, 0, len(entries))
		for _, e := range entries {
			if e.Facts != nil {
				facts = append(facts, *e.Facts)
				ptrs = append(ptrs, e.Facts)
			}
		}
		summary := property.Aggregate(facts)
		cp(ctx, 70)

		html, err := pdfgen.CombinedReport(entries, summary, h.now())
		if err != nil {
			return nil, err
		}
		pdfURL, err := h.reports.RenderPDF(ctx, p.TaskID, html, summaryLines(entries, summary))
		if err != nil {
			return nil, fmt.Errorf("store combined report: %w", err)
		}
		d, err := h.reports.PublishFacts(ctx, p.TaskID, ptrs)
		if err != nil {
			return nil, err
		}
		d.PDF = pdfURL

		count := len(p.URLs)
		desc := fmt.Sprintf("Combined report for %d properties", count)
		r := &task.Result{
			PropertyDescription: &desc,
			PropertiesCount:     &count,
			AveragePrice:        summary.AveragePrice,
			AverageSqft:         summary.AverageSqft,
			PriceRange:          summary.PriceRange,
			SqftRange:           summary.SqftRange,
		}
		r.SetDownloads(d)
		return r, nil
	})
}

// extractAll fetches urls with bounded parallelism, preserving input order.
// Progress moves from 10 to 70 as URLs finish.
func (h *Handlers) extractAll(ctx context.Context, urls []string, cp Checkpoint) []pdfgen.Entry {
	entries := make([]pdfgen.Entry, len(urls))
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.maxParallel)
	for i, u := range urls {
		g.Go(func() error {
			entries[i].URL = u
			f, err := h.extractor.FetchPropertyFacts(gctx, u)
			if err != nil {
				slog.WarnContext(gctx, "listing extraction failed", "url", u, "error", err)
				entries[i].Err = err.Error()
			} else {
				f.SourceURL = u
				entries[i].Facts = f
			}

			mu.Lock()
			done++
			progress := 10 + done*60/len(urls)
			mu.Unlock()
			cp(gctx, progress)
			return nil
		})
	}
	_ = g.Wait()
	return entries
}

func summaryLines(entries []pdfgen.Entry, s property.Summary) []pdfgen.Line {
	lines := []pdfgen.Line{
		{Text: "MULTI-PROPERTY COMPARISON REPORT", Heading: true},
		{Text: fmt.Sprintf("Properties: %d", len(entries))},
	}
	if s.PriceRange != nil {
		lines = append(lines, pdfgen.Line{Text: "Price range: " + *s.PriceRange})
	}
	if s.AveragePrice != nil {
		lines = append(lines, pdfgen.Line{Text: fmt.Sprintf("Average price: $%d", *s.AveragePrice)})
	}
	if s.SqftRange != nil {
		lines = append(lines, pdfgen.Line{Text: "Size range: " + *s.SqftRange})
	}
	lines = append(lines, pdfgen.Line{})
	for i, e := range entries {
		switch {
		case e.Facts != nil:
			lines = append(lines, pdfgen.Line{Text: fmt.Sprintf("%d. %s  %s", i+1, e.Facts.Address, e.Facts.Price)})
		default:
			lines = append(lines, pdfgen.Line{Text: fmt.Sprintf("%d. %s  (failed: %s)", i+1, e.URL, e.Err)})
		}
	}
	return lines
}

// MergePDFs combines the given documents into one.
func (h *Handlers) MergePDFs(ctx context.Context, p task.MergePayload) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return h.runner.Run(ctx, p.TaskID, task.KindPDFMerge, func(ctx context.Context, cp Checkpoint) (*task.Result, error) {
		cp(ctx, 10)
		cp(ctx, 30)
		url, fellBack, err := h.reports.Merge(ctx, p.TaskID, p.FileURLs, h.now())
		if err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		if fellBack {
			cp(ctx, 70)
		} else {
			cp(ctx, 60)
		}

		if err := h.store.CreatePDFOperation(ctx, &pdfop.Operation{
			TaskID:      p.TaskID,
			Type:        pdfop.TypeMerge,
			InputFiles:  p.FileURLs,
			OutputFiles: []string{url},
		}); err != nil {
			return nil, fmt.Errorf("record merge: %w", err)
		}

		desc := fmt.Sprintf("Merged PDF containing %d documents", len(p.FileURLs))
		return &task.Result{PropertyDescription: &desc, PDFURL: &url}, nil
	})
}

// SplitPDF cuts one document into parts.
func (h *Handlers) SplitPDF(ctx context.Context, p task.SplitPayload) error {
	if err := p.Validate(); err != nil {
		return err
	}
	opts := p.SplitOptions.WithDefaults()
	return h.runner.Run(ctx, p.TaskID, task.KindPDFSplit, func(ctx context.Context, cp Checkpoint) (*task.Result, error) {
		cp(ctx, 10)
		cp(ctx, 30)
		urls, _, err := h.reports.Split(ctx, p.TaskID, p.FileURL, opts, h.now())
		if err != nil {
			return nil, fmt.Errorf("split: %w", err)
		}
		cp(ctx, 70)

		if err := h.store.CreatePDFOperation(ctx, &pdfop.Operation{
			TaskID:      p.TaskID,
			Type:        pdfop.TypeSplit,
			InputFiles:  []string{p.FileURL},
			OutputFiles: urls,
		}); err != nil {
			return nil, fmt.Errorf("record split: %w", err)
		}

		desc := fmt.Sprintf("Split PDF operation - %d files created", len(urls))
		return &task.Result{PropertyDescription: &desc, PDFURL: &urls[0]}, nil
	})
}
