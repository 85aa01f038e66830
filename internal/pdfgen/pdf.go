// Package pdfgen builds the local documents used when the document API is
// unavailable: a minimal text PDF, HTML reports and a CSV export.
package pdfgen

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	pageTop    = 750
	pageBottom = 50
	lineHeight = 14
	maxColumns = 80
)

// Line is one line of text on the fallback PDF page.
type Line struct {
	Text    string
	Heading bool
}

// MinimalPDF renders lines onto a single US Letter page using the base
// Helvetica fonts. Lines that do not fit are dropped.
func MinimalPDF(lines []Line) []byte {
	var content bytes.Buffer
	y := pageTop
	for _, l := range lines {
		if y < pageBottom {
			break
		}
		font, size := "F1", 10
		if l.Heading {
			font, size = "F2", 14
		}
		fmt.Fprintf(&content, "BT /%s %d Tf 50 %d Td (%s) Tj ET\n", font, size, y, escape(l.Text))
		y -= lineHeight
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R " +
			"/Resources << /Font << /F1 5 0 R /F2 6 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold >>",
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return out.Bytes()
}

// escape makes s safe inside a PDF literal string. Characters outside
// printable ASCII are replaced since the base fonts use WinAnsi.
func escape(s string) string {
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == maxColumns {
			break
		}
		switch {
		case r == '(' || r == ')' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r > 0x7e:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
		n++
	}
	return b.String()
}
