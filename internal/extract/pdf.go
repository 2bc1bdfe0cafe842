// Package extract pulls plain text out of PDF bank statements so the
// normalizer can treat them like any other text blob.
package extract

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// PDFText extracts the text of every page, joined by newlines. It prefers
// row-ordered extraction, which keeps tabular statements aligned, and falls
// back to the plain-text walker. Scanned or custom-font PDFs that decode to
// garbage are rejected rather than fed to the parser.
func PDFText(filePath string) (text string, err error) {
	// The pdf library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDFText: pdf library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("PDFText: open %s: %w", filePath, err)
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return "", fmt.Errorf("PDFText: %s has no pages", filePath)
	}

	pages := extractByRow(r, numPages)
	if !readable(pages) {
		pages = extractPlainText(r, numPages)
	}
	if !readable(pages) {
		return "", fmt.Errorf("PDFText: no readable text in %s; the file may be scanned or use custom font encodings", filePath)
	}
	return strings.Join(pages, "\n"), nil
}

// extractByRow reconstructs each page line by line in layout order.
func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			pages = append(pages, strings.Join(lines, "\n"))
		}
	}
	return pages
}

// extractPlainText uses the font-aware plain text walker.
func extractPlainText(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

// readable reports whether at least 70% of the extracted characters are
// plain ASCII text. Identity-encoded fonts produce output that decodes but
// reads as noise; unicode.IsLetter is too permissive to catch it.
func readable(pages []string) bool {
	total, ok := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
				strings.ContainsRune(".,-/:;()'\"₹£$€%&@#+=*", r) {
				ok++
			}
		}
	}
	if total == 0 {
		return false
	}
	return float64(ok)/float64(total) >= 0.7
}
