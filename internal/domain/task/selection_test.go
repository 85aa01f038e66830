package task

import (
	"errors"
	"strings"
	"testing"

	"github.com/Strob0t/PropExtract/internal/domain"
)

func TestSelectionValidate(t *testing.T) {
	tests := []struct {
		name    string
		sel     Selection
		wantErr bool
		errMsg  string
	}{
		{
			name: "url present",
			sel:  Selection{Method: MethodURL, URL: "https://x.com/redfin/listing"},
		},
		{
			name:    "url blank",
			sel:     Selection{Method: MethodURL, URL: "   "},
			wantErr: true,
			errMsg:  "url is required",
		},
		{
			name:    "url tab ignores other fields",
			sel:     Selection{Method: MethodURL, FileName: "listing.pdf"},
			wantErr: true,
			errMsg:  "url is required",
		},
		{
			name: "file present",
			sel:  Selection{Method: MethodFile, FileName: "listing.pdf"},
		},
		{
			name:    "file missing",
			sel:     Selection{Method: MethodFile},
			wantErr: true,
			errMsg:  "file is required",
		},
		{
			name:    "multi-url only blanks",
			sel:     Selection{Method: MethodMultiURL, URLs: []string{"", "  "}},
			wantErr: true,
			errMsg:  "at least one url is required",
		},
		{
			name: "multi-url with one real entry",
			sel:  Selection{Method: MethodMultiURL, URLs: []string{"", "https://a.example/1"}},
		},
		{
			name:    "pdf tools without files",
			sel:     Selection{Method: MethodPDFTools},
			wantErr: true,
			errMsg:  "at least one pdf file is required",
		},
		{
			name:    "pdf file without url",
			sel:     Selection{Method: MethodPDFTools, PDFFiles: []PDFFile{{Name: "a.pdf"}}},
			wantErr: true,
			errMsg:  `pdf file "a.pdf" has no url`,
		},
		{
			name:    "unknown method",
			sel:     Selection{Method: "fax"},
			wantErr: true,
			errMsg:  "unknown input method",
		},
		{
			name:    "missing method",
			sel:     Selection{},
			wantErr: true,
			errMsg:  "input method is required",
		},
		{
			name:    "bad compression selector",
			sel:     Selection{Method: MethodURL, URL: "https://a", CompressionLevel: "extreme"},
			wantErr: true,
			errMsg:  "unknown compression level",
		},
		{
			name:    "bad output format",
			sel:     Selection{Method: MethodURL, URL: "https://a", OutputFormat: "docx"},
			wantErr: true,
			errMsg:  "unknown output format",
		},
		{
			name: "known selectors",
			sel:  Selection{Method: MethodURL, URL: "https://a", CompressionLevel: "high", OutputFormat: "csv"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sel.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, domain.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSelectionKind(t *testing.T) {
	one := []PDFFile{{Name: "a.pdf", URL: "https://f/a.pdf"}}
	two := []PDFFile{{Name: "a.pdf", URL: "https://f/a.pdf"}, {Name: "b.pdf", URL: "https://f/b.pdf"}}

	tests := []struct {
		name string
		sel  Selection
		want Kind
	}{
		{"url", Selection{Method: MethodURL}, KindSingleURL},
		{"file", Selection{Method: MethodFile}, KindFile},
		{"multi", Selection{Method: MethodMultiURL}, KindMultiURL},
		{"single pdf defaults to split", Selection{Method: MethodPDFTools, PDFFiles: one}, KindPDFSplit},
		{"many pdfs default to merge", Selection{Method: MethodPDFTools, PDFFiles: two}, KindPDFMerge},
		{"explicit split", Selection{Method: MethodPDFTools, PDFFiles: two, PDFOperation: PDFSplit}, KindPDFSplit},
		{"explicit merge", Selection{Method: MethodPDFTools, PDFFiles: one, PDFOperation: PDFMerge}, KindPDFMerge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sel.Kind(); got != tt.want {
				t.Errorf("Kind() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSelectionNewTaskMultiURL(t *testing.T) {
	sel := Selection{Method: MethodMultiURL, URLs: []string{"https://a/1", " ", "https://a/2"}}

	tk := sel.NewTask("t-1")
	if tk.Kind != KindMultiURL {
		t.Fatalf("expected multi-url, got %s", tk.Kind)
	}
	if tk.Source != "2 properties" {
		t.Errorf("expected source %q, got %q", "2 properties", tk.Source)
	}
	if tk.PropertiesCount == nil || *tk.PropertiesCount != 2 {
		t.Errorf("expected properties_count 2, got %v", tk.PropertiesCount)
	}
	if len(tk.SourceURLs) != 2 {
		t.Errorf("expected 2 source urls, got %v", tk.SourceURLs)
	}
	if tk.Status != StatusProcessing || tk.Progress != 0 {
		t.Errorf("expected processing/0, got %s/%d", tk.Status, tk.Progress)
	}
}

func TestSelectionNewTaskSources(t *testing.T) {
	files := []PDFFile{{Name: "a.pdf", URL: "u1"}, {Name: "b.pdf", URL: "u2"}, {Name: "c.pdf", URL: "u3"}}

	merge := Selection{Method: MethodPDFTools, PDFFiles: files}
	if got := merge.NewTask("m").Source; got != "3 PDF files" {
		t.Errorf("merge source = %q", got)
	}

	split := Selection{Method: MethodPDFTools, PDFFiles: files[:1]}
	if got := split.NewTask("s").Source; got != "a.pdf" {
		t.Errorf("split source = %q", got)
	}

	file := Selection{Method: MethodFile, FileName: " listing.docx "}
	if got := file.NewTask("f").Source; got != "listing.docx" {
		t.Errorf("file source = %q", got)
	}
}

func TestSelectionPayload(t *testing.T) {
	split := Selection{
		Method:   MethodPDFTools,
		PDFFiles: []PDFFile{{Name: "a.pdf", URL: "https://f/a.pdf"}},
	}
	p, ok := split.Payload("t-9").(SplitPayload)
	if !ok {
		t.Fatalf("expected SplitPayload, got %T", split.Payload("t-9"))
	}
	if p.FileURL != "https://f/a.pdf" {
		t.Errorf("unexpected file url %q", p.FileURL)
	}
	if p.SplitOptions.Type != "pages" || p.SplitOptions.PagesPerFile != 1 {
		t.Errorf("expected default split options, got %+v", p.SplitOptions)
	}

	merge := Selection{
		Method:   MethodPDFTools,
		PDFFiles: []PDFFile{{Name: "a.pdf", URL: "u1"}, {Name: "b.pdf", URL: "u2"}},
	}
	mp, ok := merge.Payload("t-8").(MergePayload)
	if !ok {
		t.Fatalf("expected MergePayload, got %T", merge.Payload("t-8"))
	}
	if len(mp.FileURLs) != 2 || mp.FileURLs[1] != "u2" {
		t.Errorf("unexpected file urls %v", mp.FileURLs)
	}
}

func TestSelectionClear(t *testing.T) {
	sel := Selection{
		Method:           MethodMultiURL,
		URL:              "https://kept",
		URLs:             []string{"https://a"},
		CompressionLevel: "low",
	}
	sel.Clear()

	if sel.URLs != nil {
		t.Errorf("expected urls cleared, got %v", sel.URLs)
	}
	if sel.URL != "https://kept" {
		t.Errorf("inactive fields must be kept, got %q", sel.URL)
	}
	if sel.CompressionLevel != "low" || sel.Method != MethodMultiURL {
		t.Error("method and shared selectors must be kept")
	}
}

func TestPayloadValidateTrims(t *testing.T) {
	u := &URLPayload{TaskID: "t", URL: "  https://a  "}
	if err := u.Validate(); err != nil || u.URL != "https://a" {
		t.Fatalf("got %q, %v", u.URL, err)
	}
	m := &MultiURLPayload{TaskID: "t", URLs: []string{" https://a", "", "https://b "}}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	if len(m.URLs) != 2 || m.URLs[0] != "https://a" || m.URLs[1] != "https://b" {
		t.Errorf("unexpected urls %q", m.URLs)
	}
}

func TestPayloadValidate(t *testing.T) {
	tests := []struct {
		name string
		v    interface{ Validate() error }
		ok   bool
	}{
		{"url ok", &URLPayload{TaskID: "t", URL: "u"}, true},
		{"url missing", &URLPayload{TaskID: "t"}, false},
		{"url blank", &URLPayload{TaskID: "t", URL: "   "}, false},
		{"multi ok", &MultiURLPayload{TaskID: "t", URLs: []string{"u"}}, true},
		{"multi empty", &MultiURLPayload{TaskID: "t"}, false},
		{"multi all blank", &MultiURLPayload{TaskID: "t", URLs: []string{" ", "\t"}}, false},
		{"file ok", &FilePayload{TaskID: "t", FileName: "f"}, true},
		{"file no task", &FilePayload{FileName: "f"}, false},
		{"file blank name", &FilePayload{TaskID: "t", FileName: " "}, false},
		{"merge ok", &MergePayload{TaskID: "t", FileURLs: []string{"a"}}, true},
		{"merge empty", &MergePayload{TaskID: "t"}, false},
		{"merge blank", &MergePayload{TaskID: "t", FileURLs: []string{""}}, false},
		{"split ok", &SplitPayload{TaskID: "t", FileURL: "a"}, true},
		{"split missing", &SplitPayload{TaskID: "t"}, false},
		{"split blank", &SplitPayload{TaskID: "t", FileURL: " \n"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}
