package task

import (
	"fmt"
	"strings"

	"github.com/Strob0t/PropExtract/internal/domain"
)

// URLPayload is the single-url handler request body.
type URLPayload struct {
	TaskID string `json:"taskId"`
	URL    string `json:"url"`
}

// Validate trims and checks required fields.
func (p *URLPayload) Validate() error {
	p.URL = strings.TrimSpace(p.URL)
	if p.TaskID == "" || p.URL == "" {
		return fmt.Errorf("%w: taskId and url are required", domain.ErrValidation)
	}
	return nil
}

// MultiURLPayload is the multi-url handler request body.
type MultiURLPayload struct {
	TaskID string   `json:"taskId"`
	URLs   []string `json:"urls"`
}

// Validate trims the URLs, drops blank ones and checks required fields.
func (p *MultiURLPayload) Validate() error {
	p.URLs = compact(p.URLs)
	if p.TaskID == "" || len(p.URLs) == 0 {
		return fmt.Errorf("%w: taskId and urls are required", domain.ErrValidation)
	}
	return nil
}

// FilePayload is the file handler request body.
type FilePayload struct {
	TaskID           string `json:"taskId"`
	FileName         string `json:"fileName"`
	CompressionLevel string `json:"compressionLevel,omitempty"`
	OutputFormat     string `json:"outputFormat,omitempty"`
}

// Validate trims and checks required fields.
func (p *FilePayload) Validate() error {
	p.FileName = strings.TrimSpace(p.FileName)
	if p.TaskID == "" || p.FileName == "" {
		return fmt.Errorf("%w: taskId and fileName are required", domain.ErrValidation)
	}
	return nil
}

// MergePayload is the pdf-merge handler request body.
type MergePayload struct {
	TaskID   string   `json:"taskId"`
	FileURLs []string `json:"fileUrls"`
}

// Validate trims the URLs, drops blank ones and checks required fields.
func (p *MergePayload) Validate() error {
	p.FileURLs = compact(p.FileURLs)
	if p.TaskID == "" || len(p.FileURLs) == 0 {
		return fmt.Errorf("%w: taskId and fileUrls are required", domain.ErrValidation)
	}
	return nil
}

// SplitPayload is the pdf-split handler request body.
type SplitPayload struct {
	TaskID       string       `json:"taskId"`
	FileURL      string       `json:"fileUrl"`
	SplitOptions SplitOptions `json:"splitOptions"`
}

// Validate trims and checks required fields.
func (p *SplitPayload) Validate() error {
	p.FileURL = strings.TrimSpace(p.FileURL)
	if p.TaskID == "" || p.FileURL == "" {
		return fmt.Errorf("%w: taskId and fileUrl are required", domain.ErrValidation)
	}
	return nil
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
