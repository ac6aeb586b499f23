// Package load decodes image files into normalized in-memory rasters and
// classifies the files it cannot decode.
package load

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultExtensions are the file extensions eligible for scanning when the
// caller does not configure a set. HEIF/AVIF extensions are listed so such
// files surface as unsupported-format diagnostics instead of being silently
// ignored; decoding them needs a codec the standard registry lacks.
var DefaultExtensions = []string{
	".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tif", ".tiff",
	".webp", ".jfif", ".pjpeg", ".pjp", ".avif", ".heic", ".heif",
}

// FileError is a classified per-file failure. The reason tells the caller
// whether the file was unreadable, corrupt, or in a format the decoder
// registry cannot handle.
type FileError struct {
	Path   string
	Reason Reason
	Err    error
}

// Reason mirrors the failure taxonomy reported to scan callers.
type Reason string

const (
	Unreadable        Reason = "unreadable"
	Corrupt           Reason = "corrupt"
	UnsupportedFormat Reason = "unsupported_format"
)

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Reason, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Decoded is a normalized raster plus the geometric metadata of its source
// file. Width and height are measured after orientation correction.
type Decoded struct {
	Image    image.Image
	Width    int
	Height   int
	FileSize int64
	ModTime  time.Time
	Format   string
	HasExif  bool
}

// Loader decodes image files. It never mutates or moves a source file.
type Loader struct {
	extensions map[string]bool
}

// NewLoader creates a Loader accepting the given extensions, or
// DefaultExtensions when none are given. Extensions are matched
// case-insensitively and may be passed with or without the leading dot.
func NewLoader(extensions ...string) *Loader {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return &Loader{extensions: set}
}

// Supported reports whether the path's extension is eligible for loading.
func (l *Loader) Supported(path string) bool {
	return l.extensions[strings.ToLower(filepath.Ext(path))]
}

// Load decodes the file at path. Embedded orientation metadata is applied
// before the raster is returned, so hashes match the image as displayed.
// For multi-frame formats only the first frame is decoded. Failures are
// returned as *FileError with a classified reason.
func (l *Loader) Load(path string) (*Decoded, error) {
	if !l.Supported(path) {
		return nil, &FileError{Path: path, Reason: UnsupportedFormat,
			Err: fmt.Errorf("extension %q not in supported set", filepath.Ext(path))}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Reason: Unreadable, Err: err}
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, &FileError{Path: path, Reason: Unreadable, Err: err}
	}
	if stat.Size() == 0 {
		return nil, &FileError{Path: path, Reason: Corrupt, Err: errors.New("empty file")}
	}

	// The config read identifies the container cheaply and catches files
	// whose bytes do not match any registered decoder.
	_, format, err := image.DecodeConfig(file)
	if err != nil {
		return nil, &FileError{Path: path, Reason: classifyDecodeError(err), Err: err}
	}
	if _, err := file.Seek(0, 0); err != nil {
		return nil, &FileError{Path: path, Reason: Unreadable, Err: err}
	}

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &FileError{Path: path, Reason: classifyDecodeError(err), Err: err}
	}

	bounds := img.Bounds()
	return &Decoded{
		Image:    img,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		FileSize: stat.Size(),
		ModTime:  stat.ModTime(),
		Format:   strings.ToLower(format),
		HasExif:  hasExif(path),
	}, nil
}

// hasExif reports whether the file carries EXIF metadata. It reopens the
// file because decoding consumed the original reader.
func hasExif(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	_, err = exif.Decode(file)
	return err == nil
}

func classifyDecodeError(err error) Reason {
	if errors.Is(err, image.ErrFormat) {
		return UnsupportedFormat
	}
	return Corrupt
}
