// Package assemble lays finished storybooks out as PDF documents.
package assemble

import (
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"

	_ "image/jpeg"
	_ "image/png"
)

// Scene is one page of the book: text plus an optional illustration.
// An empty or unreadable ImagePath renders a placeholder instead of
// failing the whole document.
type Scene struct {
	Text      string
	ImagePath string
}

// Book carries everything needed to lay out a storybook.
type Book struct {
	Title    string
	Author   string
	FontName string
	FontSize int
	Scenes   []Scene
}

const (
	pageWidthPt   = 612 // US Letter, points
	marginPt      = 54  // 0.75 inch
	topMarginPt   = 72  // 1 inch
	imageWidthPt  = 396 // 5.5 inch
	coverTitlePts = 28
)

// WritePDF renders the book to outputPath. Per-scene image problems
// degrade to placeholder text; only document-level failures return
// an error.
func WritePDF(book Book, outputPath string) error {
	font := normalizeFont(book.FontName)
	size := float64(book.FontSize)
	if size <= 0 {
		size = 14
	}
	title := book.Title
	if strings.TrimSpace(title) == "" {
		title = "My Storybook"
	}
	author := book.Author
	if strings.TrimSpace(author) == "" {
		author = "Anonymous"
	}

	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetMargins(marginPt, topMarginPt, marginPt)
	doc.SetAutoPageBreak(true, marginPt)
	doc.SetFooterFunc(func() {
		doc.SetY(-36)
		doc.SetFont(font, "", 9)
		doc.SetTextColor(128, 128, 128)
		doc.CellFormat(0, 10, fmt.Sprintf("Page %d", doc.PageNo()), "", 0, "R", false, 0, "")
	})

	// Cover page.
	doc.AddPage()
	doc.Ln(144)
	doc.SetFont(font, "B", coverTitlePts)
	doc.SetTextColor(31, 78, 121)
	doc.MultiCell(0, coverTitlePts*1.2, title, "", "C", false)
	doc.Ln(20)
	doc.SetFont(font, "", 16)
	doc.SetTextColor(128, 128, 128)
	doc.MultiCell(0, 20, "by "+author, "", "C", false)

	for i, scene := range book.Scenes {
		doc.AddPage()

		doc.SetFont(font, "B", size+4)
		doc.SetTextColor(0, 0, 139)
		doc.CellFormat(0, (size+4)*1.2, fmt.Sprintf("Scene %d", i+1), "", 1, "L", false, 0, "")
		doc.Ln(8)

		doc.SetFont(font, "", size)
		doc.SetTextColor(0, 0, 0)
		text := scene.Text
		if strings.TrimSpace(text) == "" {
			text = "[No text for this scene]"
		}
		doc.MultiCell(0, size*1.5, text, "", "L", false)
		doc.Ln(12)

		if imageUsable(scene.ImagePath) {
			x := (pageWidthPt - imageWidthPt) / 2.0
			doc.ImageOptions(scene.ImagePath, x, doc.GetY(), imageWidthPt, 0, true,
				fpdf.ImageOptions{ReadDpi: true}, 0, "")
		} else {
			doc.SetFont(font, "I", size-2)
			doc.SetTextColor(128, 128, 128)
			doc.MultiCell(0, size*1.2, "[Image missing]", "", "L", false)
		}
	}

	if err := doc.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("build storybook pdf: %w", err)
	}
	return nil
}

// imageUsable reports whether path names an image the layout engine
// can embed. A corrupt file would poison the whole document, so it
// is decoded (header only) up front.
func imageUsable(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	_, _, err = image.DecodeConfig(f)
	return err == nil
}

// normalizeFont maps requested font names onto the PDF core fonts;
// anything unrecognized falls back to Helvetica.
func normalizeFont(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "times", "times-roman", "times new roman":
		return "Times"
	case "courier", "courier new":
		return "Courier"
	case "helvetica", "arial", "":
		return "Helvetica"
	default:
		return "Helvetica"
	}
}
