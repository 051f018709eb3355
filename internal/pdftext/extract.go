// Package pdftext extracts and sanitizes document text for speech
// and model consumption.
package pdftext

import (
	"bytes"

	"github.com/ledongthuc/pdf"
)

// Extract returns the plain text of the PDF at path. Extraction is
// best-effort: any failure, including a malformed document, yields
// an empty string rather than an error.
func Extract(path string) (text string) {
	defer func() {
		// The parser can panic on hostile or corrupt files.
		if r := recover(); r != nil {
			text = ""
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return ""
	}
	return buf.String()
}
