package assemble

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestWritePDFWithImagesAndPlaceholders(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "scene_001.png")
	writeTestPNG(t, imgPath)

	out := filepath.Join(dir, "storybook.pdf")
	book := Book{
		Title:    "The Fox and the Hill",
		Author:   "Iris Vale",
		FontName: "Helvetica",
		FontSize: 14,
		Scenes: []Scene{
			{Text: "A fox set out at dawn.", ImagePath: imgPath},
			{Text: "The hill was quiet."}, // no image: placeholder
		},
	}
	if err := WritePDF(book, out); err != nil {
		t.Fatalf("WritePDF() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		t.Fatalf("output is not a PDF")
	}
}

func TestWritePDFToleratesCorruptImage(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not a png"), 0o644); err != nil {
		t.Fatalf("write bad png: %v", err)
	}

	out := filepath.Join(dir, "storybook.pdf")
	book := Book{Scenes: []Scene{{Text: "text", ImagePath: bad}}}
	if err := WritePDF(book, out); err != nil {
		t.Fatalf("WritePDF() should degrade to placeholder, got %v", err)
	}
}

func TestWritePDFDefaultsEmptyFields(t *testing.T) {
	out := filepath.Join(t.TempDir(), "book.pdf")
	book := Book{FontName: "Comic Sans", FontSize: 0, Scenes: []Scene{{Text: ""}}}
	if err := WritePDF(book, out); err != nil {
		t.Fatalf("WritePDF() error = %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestNormalizeFont(t *testing.T) {
	if normalizeFont("times new roman") != "Times" {
		t.Fatalf("times mapping broken")
	}
	if normalizeFont("Wingdings") != "Helvetica" {
		t.Fatalf("unknown font should fall back to Helvetica")
	}
}
