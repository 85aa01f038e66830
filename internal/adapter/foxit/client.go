// Package foxit implements the document API port against the Foxit PDF
// services REST API.
package foxit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/PropExtract/internal/config"
	"github.com/Strob0t/PropExtract/internal/port/docapi"
	"github.com/Strob0t/PropExtract/internal/resilience"
)

var _ docapi.Client = (*Client)(nil)

// ErrJobFailed is returned when a conversion job ends in the failed state.
var ErrJobFailed = errors.New("foxit job failed")

// ErrJobTimeout is returned when a job is still pending after the last poll.
var ErrJobTimeout = errors.New("foxit job did not complete")

// Client talks to the Foxit API.
type Client struct {
	baseURL       string
	apiKey        string
	watermark     string
	ownerPassword string
	pollInterval  time.Duration
	pollAttempts  int
	httpClient    *http.Client
	breaker       *resilience.Breaker
	keySource     func() string
}

// NewClient creates a client from cfg. With an empty API key every call
// returns docapi.ErrNotConfigured.
func NewClient(cfg config.DocAPI) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.URL, "/"),
		apiKey:        cfg.APIKey,
		watermark:     cfg.Watermark,
		ownerPassword: cfg.OwnerPassword,
		pollInterval:  cfg.PollInterval,
		pollAttempts:  cfg.PollAttempts,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
	}
}

// SetKeySource makes the client read its API key from fn on every call,
// so a rotated key takes effect without a restart. An empty key from fn
// falls back to the configured one.
func (c *Client) SetKeySource(fn func() string) {
	c.keySource = fn
}

func (c *Client) key() string {
	if c.keySource != nil {
		if k := c.keySource(); k != "" {
			return k
		}
	}
	return c.apiKey
}

// SetBreaker attaches a circuit breaker to all outgoing API calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type htmlToPDFRequest struct {
	HTML    string             `json:"html_content"`
	Options docapi.PageOptions `json:"options"`
}

type jobResponse struct {
	JobID string `json:"job_id"`
}

type jobStatus struct {
	Status      string `json:"status"`
	DownloadURL string `json:"download_url"`
	Error       string `json:"error"`
}

// HTMLToPDF renders html. The API answers either with the PDF itself or
// with a job id that is polled until the document is ready.
func (c *Client) HTMLToPDF(ctx context.Context, html string, opts docapi.PageOptions) ([]byte, error) {
	body, err := json.Marshal(htmlToPDFRequest{HTML: html, Options: opts})
	if err != nil {
		return nil, fmt.Errorf("marshal html-to-pdf: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/conversion/html-to-pdf", "application/json", body, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("html-to-pdf: %w", err)
	}
	if strings.Contains(resp.contentType, "application/pdf") {
		return resp.body, nil
	}

	var job jobResponse
	if err := json.Unmarshal(resp.body, &job); err != nil {
		return nil, fmt.Errorf("unmarshal html-to-pdf job: %w", err)
	}
	if job.JobID == "" {
		return nil, errors.New("html-to-pdf: response carried neither a pdf nor a job id")
	}
	return c.pollJob(ctx, job.JobID)
}

func (c *Client) pollJob(ctx context.Context, jobID string) ([]byte, error) {
	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		resp, err := c.do(ctx, http.MethodGet, "/jobs/"+jobID+"/status", "", nil, "application/json")
		if err != nil {
			return nil, fmt.Errorf("job %s status: %w", jobID, err)
		}

		var st jobStatus
		if err := json.Unmarshal(resp.body, &st); err != nil {
			return nil, fmt.Errorf("unmarshal job %s status: %w", jobID, err)
		}
		slog.DebugContext(ctx, "foxit job polled", "job_id", jobID, "attempt", attempt, "status", st.Status)

		switch {
		case st.Status == "completed" && st.DownloadURL != "":
			return c.download(ctx, st.DownloadURL)
		case st.Status == "failed":
			msg := st.Error
			if msg == "" {
				msg = "unknown error"
			}
			return nil, fmt.Errorf("%w: %s", ErrJobFailed, msg)
		}

		if attempt == c.pollAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %s", ErrJobTimeout, c.pollAttempts, jobID)
}

// download fetches a finished document. Download links are pre-signed and
// sent without credentials.
func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download: %w", err)
	}
	return data, nil
}

// Watermark stamps text onto every page.
func (c *Client) Watermark(ctx context.Context, pdf []byte, text string) ([]byte, error) {
	if text == "" {
		text = c.watermark
	}
	return c.pdfService(ctx, "watermark", pdf, "watermark_options", map[string]any{
		"text":      text,
		"position":  "bottom_right",
		"opacity":   0.3,
		"font_size": 12,
		"color":     "#667eea",
	})
}

// Compress optimizes the document for web delivery.
func (c *Client) Compress(ctx context.Context, pdf []byte) ([]byte, error) {
	return c.pdfService(ctx, "compress", pdf, "compression_options", map[string]any{
		"quality":          "high",
		"image_quality":    85,
		"optimize_for_web": true,
	})
}

// Secure allows printing and annotation and forbids copying and edits.
func (c *Client) Secure(ctx context.Context, pdf []byte) ([]byte, error) {
	owner := c.ownerPassword
	if owner == "" {
		owner = uuid.NewString()
	}
	return c.pdfService(ctx, "secure", pdf, "security_options", map[string]any{
		"owner_password": owner,
		"user_password":  "",
		"permissions": map[string]bool{
			"allow_printing":     true,
			"allow_copying":      false,
			"allow_modification": false,
			"allow_annotation":   true,
		},
	})
}

func (c *Client) pdfService(ctx context.Context, op string, pdf []byte, optionsField string, options any) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", "document.pdf")
	if err != nil {
		return nil, fmt.Errorf("%s form: %w", op, err)
	}
	if _, err := fw.Write(pdf); err != nil {
		return nil, fmt.Errorf("%s form: %w", op, err)
	}
	opts, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("marshal %s options: %w", op, err)
	}
	if err := mw.WriteField(optionsField, string(opts)); err != nil {
		return nil, fmt.Errorf("%s form: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%s form: %w", op, err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/pdf-services/"+op, mw.FormDataContentType(), buf.Bytes(), "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.body, nil
}

type mergeRequest struct {
	Files          []string `json:"files"`
	OutputFilename string   `json:"output_filename"`
}

type mergeResponse struct {
	DownloadURL string `json:"download_url"`
}

// Merge combines the documents at fileURLs.
func (c *Client) Merge(ctx context.Context, fileURLs []string, outputName string) (string, error) {
	body, err := json.Marshal(mergeRequest{Files: fileURLs, OutputFilename: outputName})
	if err != nil {
		return "", fmt.Errorf("marshal merge: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/merge", "application/json", body, "application/json")
	if err != nil {
		return "", fmt.Errorf("merge: %w", err)
	}

	var out mergeResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return "", fmt.Errorf("unmarshal merge: %w", err)
	}
	if out.DownloadURL == "" {
		return "", errors.New("merge: response has no download_url")
	}
	return out.DownloadURL, nil
}

type splitRequest struct {
	FileURL      string `json:"file_url"`
	SplitType    string `json:"split_type"`
	PagesPerFile int    `json:"pages_per_file"`
	OutputPrefix string `json:"output_prefix"`
}

type splitResponse struct {
	SplitFiles []string `json:"split_files"`
}

// Split cuts the document at fileURL into parts.
func (c *Client) Split(ctx context.Context, fileURL string, opts docapi.SplitOptions, outputPrefix string) ([]string, error) {
	body, err := json.Marshal(splitRequest{
		FileURL:      fileURL,
		SplitType:    opts.Type,
		PagesPerFile: opts.PagesPerFile,
		OutputPrefix: outputPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal split: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/split", "application/json", body, "application/json")
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	var out splitResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("unmarshal split: %w", err)
	}
	if len(out.SplitFiles) == 0 {
		return nil, errors.New("split: response has no split_files")
	}
	return out.SplitFiles, nil
}

type response struct {
	contentType string
	body        []byte
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, accept string) (*response, error) {
	apiKey := c.key()
	if apiKey == "" {
		return nil, docapi.ErrNotConfigured
	}

	var result *response
	call := func() error {
		var bodyReader io.Reader = http.NoBody
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)
		req.Header.Set("Accept", accept)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			apiErr := fmt.Errorf("foxit API error %d: %s", resp.StatusCode, truncate(data, 256))
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return resilience.Permanent(apiErr)
			}
			return apiErr
		}

		result = &response{contentType: resp.Header.Get("Content-Type"), body: data}
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, resilience.StripPermanent(err)
	}
	return result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
