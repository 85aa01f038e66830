package task

import (
	"fmt"
	"strings"

	"github.com/Strob0t/PropExtract/internal/domain"
)

// Method is the active input method of a submission form.
type Method string

const (
	MethodURL      Method = "url"
	MethodFile     Method = "file"
	MethodMultiURL Method = "multi-url"
	MethodPDFTools Method = "pdf-tools"
)

// PDFOperation selects what the PDF tools tab does with its files.
type PDFOperation string

const (
	PDFMerge PDFOperation = "merge"
	PDFSplit PDFOperation = "split"
)

// Compression levels and output formats are accepted and validated but not
// honored by the handlers.
var (
	CompressionLevels = []string{"none", "low", "medium", "high"}
	OutputFormats     = []string{"pdf", "json", "excel", "csv"}
)

// PDFFile is an uploaded PDF referenced by name and location.
type PDFFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SplitOptions controls how a split is performed.
type SplitOptions struct {
	Type         string `json:"type,omitempty"`
	PagesPerFile int    `json:"pagesPerFile,omitempty"`
}

// WithDefaults fills in the split type "pages" and one page per file.
func (o SplitOptions) WithDefaults() SplitOptions {
	if o.Type == "" {
		o.Type = "pages"
	}
	if o.PagesPerFile < 1 {
		o.PagesPerFile = 1
	}
	return o
}

// Selection is the current state of the submission form.
type Selection struct {
	Method           Method        `json:"method"`
	URL              string        `json:"url,omitempty"`
	FileName         string        `json:"fileName,omitempty"`
	URLs             []string      `json:"urls,omitempty"`
	PDFFiles         []PDFFile     `json:"pdfFiles,omitempty"`
	PDFOperation     PDFOperation  `json:"pdfOperation,omitempty"`
	SplitOptions     *SplitOptions `json:"splitOptions,omitempty"`
	CompressionLevel string        `json:"compressionLevel,omitempty"`
	OutputFormat     string        `json:"outputFormat,omitempty"`
}

// Validate checks that the active method's required input is present.
func (s *Selection) Validate() error {
	switch s.Method {
	case MethodURL:
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("%w: url is required", domain.ErrValidation)
		}
	case MethodFile:
		if strings.TrimSpace(s.FileName) == "" {
			return fmt.Errorf("%w: file is required", domain.ErrValidation)
		}
	case MethodMultiURL:
		if len(s.cleanURLs()) == 0 {
			return fmt.Errorf("%w: at least one url is required", domain.ErrValidation)
		}
	case MethodPDFTools:
		if len(s.PDFFiles) == 0 {
			return fmt.Errorf("%w: at least one pdf file is required", domain.ErrValidation)
		}
		for _, f := range s.PDFFiles {
			if strings.TrimSpace(f.URL) == "" {
				return fmt.Errorf("%w: pdf file %q has no url", domain.ErrValidation, f.Name)
			}
		}
		switch s.PDFOperation {
		case "", PDFMerge, PDFSplit:
		default:
			return fmt.Errorf("%w: unknown pdf operation %q", domain.ErrValidation, s.PDFOperation)
		}
	case "":
		return fmt.Errorf("%w: input method is required", domain.ErrValidation)
	default:
		return fmt.Errorf("%w: unknown input method %q", domain.ErrValidation, s.Method)
	}

	if s.CompressionLevel != "" && !contains(CompressionLevels, s.CompressionLevel) {
		return fmt.Errorf("%w: unknown compression level %q", domain.ErrValidation, s.CompressionLevel)
	}
	if s.OutputFormat != "" && !contains(OutputFormats, s.OutputFormat) {
		return fmt.Errorf("%w: unknown output format %q", domain.ErrValidation, s.OutputFormat)
	}
	return nil
}

// Kind maps the selection to the task kind that will handle it.
// A PDF tools selection without an explicit operation merges two or more
// files and splits a single one.
func (s *Selection) Kind() Kind {
	switch s.Method {
	case MethodFile:
		return KindFile
	case MethodMultiURL:
		return KindMultiURL
	case MethodPDFTools:
		if s.PDFOperation == PDFSplit || (s.PDFOperation == "" && len(s.PDFFiles) == 1) {
			return KindPDFSplit
		}
		return KindPDFMerge
	default:
		return KindSingleURL
	}
}

// NewTask builds the initial task for a validated selection.
func (s *Selection) NewTask(id string) *Task {
	kind := s.Kind()
	var source string
	switch kind {
	case KindSingleURL:
		source = strings.TrimSpace(s.URL)
	case KindFile:
		source = strings.TrimSpace(s.FileName)
	case KindMultiURL:
		source = fmt.Sprintf("%d properties", len(s.cleanURLs()))
	case KindPDFMerge:
		source = fmt.Sprintf("%d PDF files", len(s.PDFFiles))
	case KindPDFSplit:
		source = s.PDFFiles[0].Name
	}

	t := New(id, kind, source)
	if kind == KindMultiURL {
		urls := s.cleanURLs()
		n := len(urls)
		t.PropertiesCount = &n
		t.SourceURLs = urls
	}
	return t
}

// Payload builds the handler request body for the task created from s.
func (s *Selection) Payload(taskID string) any {
	switch s.Kind() {
	case KindFile:
		return FilePayload{
			TaskID:           taskID,
			FileName:         strings.TrimSpace(s.FileName),
			CompressionLevel: s.CompressionLevel,
			OutputFormat:     s.OutputFormat,
		}
	case KindMultiURL:
		return MultiURLPayload{TaskID: taskID, URLs: s.cleanURLs()}
	case KindPDFMerge:
		urls := make([]string, len(s.PDFFiles))
		for i, f := range s.PDFFiles {
			urls[i] = f.URL
		}
		return MergePayload{TaskID: taskID, FileURLs: urls}
	case KindPDFSplit:
		opts := SplitOptions{}
		if s.SplitOptions != nil {
			opts = *s.SplitOptions
		}
		return SplitPayload{TaskID: taskID, FileURL: s.PDFFiles[0].URL, SplitOptions: opts.WithDefaults()}
	default:
		return URLPayload{TaskID: taskID, URL: strings.TrimSpace(s.URL)}
	}
}

// Clear resets the input fields consumed by the active method. The method
// and the shared selectors are kept.
func (s *Selection) Clear() {
	switch s.Method {
	case MethodURL:
		s.URL = ""
	case MethodFile:
		s.FileName = ""
	case MethodMultiURL:
		s.URLs = nil
	case MethodPDFTools:
		s.PDFFiles = nil
		s.SplitOptions = nil
	}
}

func (s *Selection) cleanURLs() []string {
	out := make([]string, 0, len(s.URLs))
	for _, u := range s.URLs {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
