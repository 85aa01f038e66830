// Package docapi defines the port for the third-party document API used to
// render and post-process reports.
package docapi

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by every operation when no API key is set.
var ErrNotConfigured = errors.New("document api not configured")

// PageOptions controls HTML to PDF rendering.
type PageOptions struct {
	Format      string `json:"page_format"`
	Orientation string `json:"page_orientation"`
	Margin      string `json:"margin"`
	Background  bool   `json:"print_background"`
}

// DefaultPageOptions is A4 portrait with 15mm margins.
var DefaultPageOptions = PageOptions{Format: "A4", Orientation: "portrait", Margin: "15mm", Background: true}

// SplitOptions controls a split operation.
type SplitOptions struct {
	Type         string `json:"split_type"`
	PagesPerFile int    `json:"pages_per_file"`
}

// Client is the document API.
type Client interface {
	HTMLToPDF(ctx context.Context, html string, opts PageOptions) ([]byte, error)
	Watermark(ctx context.Context, pdf []byte, text string) ([]byte, error)
	Compress(ctx context.Context, pdf []byte) ([]byte, error)
	Secure(ctx context.Context, pdf []byte) ([]byte, error)
	// Merge combines the documents at fileURLs and returns the download
	// URL of the result.
	Merge(ctx context.Context, fileURLs []string, outputName string) (string, error)
	// Split cuts the document at fileURL and returns one download URL per
	// produced part.
	Split(ctx context.Context, fileURL string, opts SplitOptions, outputPrefix string) ([]string, error)
}
