package load

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func writeTestJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 2), G: 64, B: uint8(y * 2), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encoding jpeg: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestSupported(t *testing.T) {
	loader := NewLoader()

	tests := []struct {
		path string
		want bool
	}{
		{"photo.jpg", true},
		{"photo.JPG", true},
		{"photo.jpeg", true},
		{"image.png", true},
		{"scan.tiff", true},
		{"anim.webp", true},
		{"modern.heic", true},
		{"document.pdf", false},
		{"notes.txt", false},
		{"archive.zip", false},
		{"noext", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := loader.Supported(tt.path); got != tt.want {
				t.Errorf("Supported(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestNewLoader_CustomExtensions(t *testing.T) {
	loader := NewLoader("png", ".JPG", " gif ")

	for path, want := range map[string]bool{
		"a.png": true, "b.jpg": true, "c.gif": true, "d.tiff": false,
	} {
		if got := loader.Supported(path); got != want {
			t.Errorf("Supported(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestLoad_PNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.png")
	writeTestPNG(t, path, 120, 80)

	dec, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if dec.Width != 120 || dec.Height != 80 {
		t.Errorf("dimensions = %dx%d, want 120x80", dec.Width, dec.Height)
	}
	if dec.Format != "png" {
		t.Errorf("format = %q, want png", dec.Format)
	}
	if dec.FileSize <= 0 {
		t.Errorf("file size = %d, want > 0", dec.FileSize)
	}
	if dec.ModTime.IsZero() {
		t.Error("mod time is zero")
	}
	if dec.HasExif {
		t.Error("plain png reported EXIF metadata")
	}
	if dec.Image == nil {
		t.Fatal("decoded image is nil")
	}
}

func TestLoad_JPEG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.jpg")
	writeTestJPEG(t, path, 64, 48)

	dec, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if dec.Width != 64 || dec.Height != 48 {
		t.Errorf("dimensions = %dx%d, want 64x48", dec.Width, dec.Height)
	}
	if dec.Format != "jpeg" {
		t.Errorf("format = %q, want jpeg", dec.Format)
	}
}

func TestLoad_Failures(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.jpg")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}

	garbage := filepath.Join(dir, "garbage.jpg")
	if err := os.WriteFile(garbage, []byte("this is not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	truncated := filepath.Join(dir, "truncated.png")
	writeTestPNG(t, truncated, 50, 50)
	raw, err := os.ReadFile(truncated)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(truncated, raw[:len(raw)/2], 0644); err != nil {
		t.Fatal(err)
	}

	heic := filepath.Join(dir, "photo.heic")
	if err := os.WriteFile(heic, []byte("ftypheic-placeholder"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want Reason
	}{
		{"zero byte file", empty, Corrupt},
		{"non-image bytes", garbage, UnsupportedFormat},
		{"truncated png", truncated, Corrupt},
		{"undecodable heic", heic, UnsupportedFormat},
		{"missing file", filepath.Join(dir, "nope.jpg"), Unreadable},
		{"wrong extension", filepath.Join(dir, "notes.txt"), UnsupportedFormat},
	}

	loader := NewLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.Load(tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			var fe *FileError
			if !errors.As(err, &fe) {
				t.Fatalf("err %T is not *FileError", err)
			}
			if fe.Reason != tt.want {
				t.Errorf("reason = %q, want %q", fe.Reason, tt.want)
			}
			if fe.Path != tt.path {
				t.Errorf("path = %q, want %q", fe.Path, tt.path)
			}
		})
	}
}

func TestLoad_UnreadablePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("chmod-based access denial not reliable on windows")
	}
	if os.Getuid() == 0 {
		t.Skip("root ignores file permissions")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "locked.png")
	writeTestPNG(t, path, 10, 10)
	if err := os.Chmod(path, 0000); err != nil {
		t.Fatal(err)
	}

	_, err := NewLoader().Load(path)
	var fe *FileError
	if !errors.As(err, &fe) {
		t.Fatalf("err %T is not *FileError", err)
	}
	if fe.Reason != Unreadable {
		t.Errorf("reason = %q, want %q", fe.Reason, Unreadable)
	}
}

func TestLoad_FirstFrameOfGIF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anim.gif")

	// A single-frame GIF is enough to check the registry path.
	img := image.NewPaletted(image.Rect(0, 0, 20, 20), color.Palette{
		color.Black, color.White,
	})
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 2)
	}
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding gif: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	dec, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if dec.Format != "gif" {
		t.Errorf("format = %q, want gif", dec.Format)
	}
	if dec.Width != 20 || dec.Height != 20 {
		t.Errorf("dimensions = %dx%d, want 20x20", dec.Width, dec.Height)
	}
}
