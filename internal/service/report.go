package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	peotel "github.com/Strob0t/PropExtract/internal/adapter/otel"
	"github.com/Strob0t/PropExtract/internal/config"
	"github.com/Strob0t/PropExtract/internal/domain/property"
	"github.com/Strob0t/PropExtract/internal/domain/task"
	"github.com/Strob0t/PropExtract/internal/pdfgen"
	"github.com/Strob0t/PropExtract/internal/port/docapi"
	"github.com/Strob0t/PropExtract/internal/port/objectstore"
)

// Content types of stored artifacts.
const (
	contentPDF  = "application/pdf"
	contentHTML = "text/html; charset=utf-8"
	contentJSON = "application/json"
	contentCSV  = "text/csv"
)

// ReportService renders reports through the document API, falling back to
// locally built documents, and uploads every artifact to object storage.
type ReportService struct {
	docs    docapi.Client
	objects objectstore.Store
	cfg     config.DocAPI
	metrics *peotel.Metrics
}

// NewReportService creates a ReportService. metrics may be nil.
func NewReportService(docs docapi.Client, objects objectstore.Store, cfg config.DocAPI, metrics *peotel.Metrics) *ReportService {
	return &ReportService{docs: docs, objects: objects, cfg: cfg, metrics: metrics}
}

// RenderPDF converts html to PDF and stores it as <taskID>/report.pdf. When
// the API fails the fallback lines are laid out locally instead. Only a
// storage failure is returned.
func (s *ReportService) RenderPDF(ctx context.Context, taskID, html string, fallback []pdfgen.Line) (string, error) {
	pdf, err := s.htmlToPDF(ctx, html)
	if err != nil {
		s.logFallback(ctx, "html_to_pdf", err)
		pdf = pdfgen.MinimalPDF(fallback)
	} else if s.cfg.PostProcess {
		pdf = s.postProcess(ctx, pdf)
	}
	return s.objects.Put(ctx, taskID+"/report.pdf", contentPDF, pdf)
}

func (s *ReportService) htmlToPDF(ctx context.Context, html string) (pdf []byte, err error) {
	ctx, span := peotel.StartDocAPISpan(ctx, "html_to_pdf")
	defer func() { peotel.EndSpan(span, err) }()
	return s.docs.HTMLToPDF(ctx, html, docapi.DefaultPageOptions)
}

// postProcess applies watermark, compression and protection in order. A
// failed step keeps the previous document.
func (s *ReportService) postProcess(ctx context.Context, pdf []byte) []byte {
	steps := []struct {
		name string
		fn   func(context.Context, []byte) ([]byte, error)
	}{
		{"watermark", func(ctx context.Context, b []byte) ([]byte, error) {
			return s.docs.Watermark(ctx, b, s.cfg.Watermark)
		}},
		{"compress", s.docs.Compress},
		{"secure", s.docs.Secure},
	}
	for _, step := range steps {
		stepCtx, span := peotel.StartDocAPISpan(ctx, step.name)
		out, err := step.fn(stepCtx, pdf)
		peotel.EndSpan(span, err)
		if err != nil {
			slog.WarnContext(ctx, "pdf post-processing step skipped", "step", step.name, "error", err)
			continue
		}
		pdf = out
	}
	return pdf
}

// PublishFacts uploads facts as JSON and CSV next to the report.
func (s *ReportService) PublishFacts(ctx context.Context, taskID string, facts []*property.Facts) (task.Downloads, error) {
	var d task.Downloads

	var body any = facts
	if len(facts) == 1 {
		body = facts[0]
	}
	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return d, fmt.Errorf("encode facts: %w", err)
	}
	if d.JSON, err = s.objects.Put(ctx, taskID+"/data.json", contentJSON, data); err != nil {
		return d, fmt.Errorf("store facts json: %w", err)
	}

	sheet, err := pdfgen.FactsCSV(facts)
	if err != nil {
		return d, err
	}
	if d.Excel, err = s.objects.Put(ctx, taskID+"/data.csv", contentCSV, sheet); err != nil {
		return d, fmt.Errorf("store facts csv: %w", err)
	}
	return d, nil
}

// Merge combines fileURLs through the API. On failure an HTML index of the
// inputs is stored in its place and fellBack is true.
func (s *ReportService) Merge(ctx context.Context, taskID string, fileURLs []string, now time.Time) (url string, fellBack bool, err error) {
	mctx, span := peotel.StartDocAPISpan(ctx, "merge")
	url, err = s.docs.Merge(mctx, fileURLs, fmt.Sprintf("merged_%s.pdf", taskID))
	peotel.EndSpan(span, err)
	if err == nil {
		return url, false, nil
	}
	s.logFallback(ctx, "merge", err)

	page, err := pdfgen.MergeIndex(fileURLs, now)
	if err != nil {
		return "", true, err
	}
	url, err = s.objects.Put(ctx, taskID+"/merged.html", contentHTML, []byte(page))
	return url, true, err
}

// Split cuts fileURL through the API. On failure a single guide document is
// stored and returned as the only output.
func (s *ReportService) Split(ctx context.Context, taskID, fileURL string, opts task.SplitOptions, now time.Time) (urls []string, fellBack bool, err error) {
	sctx, span := peotel.StartDocAPISpan(ctx, "split")
	urls, err = s.docs.Split(sctx, fileURL, docapi.SplitOptions{Type: opts.Type, PagesPerFile: opts.PagesPerFile}, "split_"+taskID)
	peotel.EndSpan(span, err)
	if err == nil && len(urls) > 0 {
		return urls, false, nil
	}
	if err == nil {
		err = errors.New("split produced no files")
	}
	s.logFallback(ctx, "split", err)

	page, err := pdfgen.SplitGuide(fileURL, opts.Type, opts.PagesPerFile, now)
	if err != nil {
		return nil, true, err
	}
	url, err := s.objects.Put(ctx, taskID+"/split_guide.html", contentHTML, []byte(page))
	if err != nil {
		return nil, true, err
	}
	return []string{url}, true, nil
}

func (s *ReportService) logFallback(ctx context.Context, op string, err error) {
	if errors.Is(err, docapi.ErrNotConfigured) {
		slog.DebugContext(ctx, "document api not configured, using local fallback", "operation", op)
	} else {
		slog.WarnContext(ctx, "document api failed, using local fallback", "operation", op, "error", err)
	}
	if s.metrics != nil {
		s.metrics.Fallback(ctx, op)
	}
}
