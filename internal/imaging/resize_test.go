package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestResizeJPEGFromPNG(t *testing.T) {
	t.Parallel()

	out, err := ResizeJPEG(encodePNG(t, 1024, 1024), 720, 1200)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not valid JPEG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 720 || bounds.Dy() != 1200 {
		t.Fatalf("unexpected dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestResizeJPEGFromJPEG(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 100, 50)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}

	out, err := ResizeJPEG(buf.Bytes(), 640, 853)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not valid JPEG: %v", err)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 853 {
		t.Fatalf("unexpected dimensions: %v", img.Bounds())
	}
}

func TestResizeJPEGRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := ResizeJPEG([]byte("not an image"), 720, 1200); err == nil {
		t.Fatalf("expected error for undecodable input")
	}
}
