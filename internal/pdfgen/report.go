package pdfgen

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/Strob0t/PropExtract/internal/domain/property"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"orNA":     orNA,
	"inc":      func(i int) int { return i + 1 },
	"basename": basename,
	"date":     func(t time.Time) string { return t.Format("January 2, 2006") },
}).ParseFS(templateFS, "templates/*.html.tmpl"))

// Entry is one listing in a combined report. Err is set when extraction
// for URL failed.
type Entry struct {
	URL   string
	Facts *property.Facts
	Err   string
}

// PropertyReport renders the single-listing HTML report.
func PropertyReport(f *property.Facts, generated time.Time) (string, error) {
	return render("property.html.tmpl", map[string]any{"F": f, "Generated": generated})
}

// CombinedReport renders every entry of a multi-url task with its summary.
func CombinedReport(entries []Entry, summary property.Summary, generated time.Time) (string, error) {
	return render("combined.html.tmpl", map[string]any{
		"Entries":   entries,
		"Summary":   summary,
		"Generated": generated,
	})
}

// MergeIndex renders the index page standing in for a merged document.
func MergeIndex(fileURLs []string, generated time.Time) (string, error) {
	return render("merge_index.html.tmpl", map[string]any{"Files": fileURLs, "Generated": generated})
}

// SplitGuide renders manual split instructions for fileURL.
func SplitGuide(fileURL, splitType string, pagesPerFile int, generated time.Time) (string, error) {
	return render("split_guide.html.tmpl", map[string]any{
		"File":         fileURL,
		"SplitType":    splitType,
		"PagesPerFile": pagesPerFile,
		"Generated":    generated,
	})
}

// ReportLines lays out f as text for MinimalPDF.
func ReportLines(f *property.Facts) []Line {
	lines := []Line{
		{Text: "PROPERTY ANALYSIS REPORT", Heading: true},
		{Text: orNA(f.Address)},
		{},
		{Text: "PROPERTY DETAILS", Heading: true},
		{Text: "Price: " + orNA(f.Price)},
		{Text: "Bedrooms: " + orNA(f.Bedrooms)},
		{Text: "Bathrooms: " + orNA(f.Bathrooms)},
		{Text: "Square Footage: " + orNA(f.SquareFootage)},
		{Text: "Year Built: " + orNA(f.YearBuilt)},
		{Text: "Property Type: " + orNA(f.PropertyType)},
		{Text: "MLS Number: " + orNA(f.MLSNumber)},
		{},
		{Text: "AGENT", Heading: true},
		{Text: "Name: " + orNA(f.Agent.Name)},
		{Text: "Phone: " + orNA(f.Agent.Phone)},
		{Text: "Brokerage: " + orNA(f.Agent.Brokerage)},
		{},
		{Text: "FINANCIALS", Heading: true},
		{Text: "Property Tax: " + orNA(f.Financials.PropertyTax)},
		{Text: "HOA Fees: " + orNA(f.Financials.HOAFees)},
		{Text: "Price per Sq Ft: " + orNA(f.MarketStats.PricePerSqft)},
		{Text: "Days on Market: " + orNA(f.MarketStats.DaysOnMarket)},
	}
	if len(f.Features) > 0 {
		lines = append(lines, Line{}, Line{Text: "FEATURES", Heading: true})
		for _, feat := range f.Features {
			lines = append(lines, Line{Text: "- " + feat})
		}
	}
	return lines
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// orNA formats v, using "N/A" for zero values.
func orNA(v any) string {
	switch x := v.(type) {
	case string:
		if x == "" {
			return "N/A"
		}
		return x
	case int:
		if x == 0 {
			return "N/A"
		}
		return strconv.Itoa(x)
	case int64:
		if x == 0 {
			return "N/A"
		}
		return strconv.FormatInt(x, 10)
	case float64:
		if x == 0 {
			return "N/A"
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case *string:
		if x == nil {
			return "N/A"
		}
		return orNA(*x)
	case *int:
		if x == nil {
			return "N/A"
		}
		return orNA(*x)
	case *int64:
		if x == nil {
			return "N/A"
		}
		return orNA(*x)
	}
	return fmt.Sprint(v)
}

func basename(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	b := path.Base(u)
	if b == "." || b == "/" {
		return "document.pdf"
	}
	return b
}
