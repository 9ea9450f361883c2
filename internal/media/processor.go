// Package media validates and sanitizes uploaded event images. The declared
// content type and filename of an upload are never trusted: the MIME type is
// sniffed from the actual bytes, the image is decoded and re-encoded to drop
// embedded metadata (EXIF and friends), and the stored name is a random UUID
// with an extension derived from what was actually written.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	_ "golang.org/x/image/webp" // register webp decoding for image.Decode
)

// MaxUploadBytes caps uploads at 5 MiB. The cap is enforced against the
// multipart part size before any byte is read or persisted.
const MaxUploadBytes = 5 << 20

var (
	// ErrTooLarge indicates the upload exceeds MaxUploadBytes.
	ErrTooLarge = errors.New("file size too large")
	// ErrNotImage indicates the sniffed content is not an image at all.
	ErrNotImage = errors.New("invalid file type")
	// ErrUnsupportedFormat indicates an image format outside the allow-list.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// allowedTypes is the sniffed-MIME allow-list. Formats that sniff as images
// but are not listed here (gif, bmp, tiff, ...) are rejected.
var allowedTypes = map[string]bool{
	"image/jpg":  true,
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Store writes sanitized images into a single upload directory and hands
// back relative filenames. Serving them is left to a static file layer.
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed and returns a Store
// rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// SaveUpload runs the full sanitizing pipeline on one multipart file part:
// size cap, byte sniffing, allow-list, metadata-stripping re-encode, random
// naming. It returns the relative filename of the stored image. Validation
// failures come back as the sentinel errors above; anything else is a
// storage failure.
//
// WebP is accepted on input but Go has no pure-Go webp encoder, so webp
// uploads are stored re-encoded as PNG. The extension always matches the
// bytes written, never anything the client declared.
func (s *Store) SaveUpload(fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxUploadBytes {
		return "", ErrTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	// Size+1 guards against parts that lie about their size.
	buf, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(buf) > MaxUploadBytes {
		return "", ErrTooLarge
	}

	mtype := mimetype.Detect(buf)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", ErrNotImage
	}
	if !allowedTypes[mtype.String()] {
		return "", ErrUnsupportedFormat
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		// Sniffed as an allowed image but the pixel data doesn't decode:
		// treat like any other non-image payload.
		return "", ErrNotImage
	}

	ext, format := encodingFor(mtype.String())
	var out bytes.Buffer
	if err := imaging.Encode(&out, img, format, imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("re-encode image: %w", err)
	}

	name := uuid.New().String() + "." + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), out.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return name, nil
}

// encodingFor maps a sniffed MIME type to the stored extension and encoder
// format. WebP falls back to PNG (lossless, metadata-free).
func encodingFor(mime string) (string, imaging.Format) {
	switch mime {
	case "image/jpg", "image/jpeg":
		return "jpeg", imaging.JPEG
	case "image/webp":
		return "png", imaging.PNG
	default: // image/png
		return "png", imaging.PNG
	}
}

// Remove deletes a previously stored image by its relative name. Used to
// clean up when the surrounding event insert fails after the file was
// written. The name is reduced to its base to keep callers from escaping
// the upload directory.
func (s *Store) Remove(name string) error {
	if name == "" {
		return nil
	}
	return os.Remove(filepath.Join(s.dir, filepath.Base(name)))
}
