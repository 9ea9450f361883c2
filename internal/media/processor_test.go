package media

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeTestImage renders a small solid image in the given format.
func encodeTestImage(t *testing.T, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	switch format {
	case "png":
		require.NoError(t, png.Encode(&buf, img))
	case "jpeg":
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	case "gif":
		require.NoError(t, gif.Encode(&buf, img, nil))
	default:
		t.Fatalf("unknown format %s", format)
	}
	return buf.Bytes()
}

// uploadHeader builds a multipart.FileHeader the way a handler would
// receive it, with an arbitrary client-declared filename.
func uploadHeader(t *testing.T, filename string, payload []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("picture", filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	files := req.MultipartForm.File["picture"]
	require.Len(t, files, 1)
	return files[0]
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestSaveUploadStoresPNG(t *testing.T) {
	s := newTestStore(t)
	name, err := s.SaveUpload(uploadHeader(t, "poster.png", encodeTestImage(t, "png")))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.False(t, filepath.IsAbs(name), "stored reference must be relative")
	assert.NotContains(t, name, "/")

	stored, err := os.ReadFile(filepath.Join(s.dir, name))
	require.NoError(t, err)
	_, format, err := image.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestSaveUploadExtensionFromSniffedBytes(t *testing.T) {
	s := newTestStore(t)
	// JPEG bytes uploaded under a .png name: the stored extension follows
	// the sniffed content, not the client filename.
	name, err := s.SaveUpload(uploadHeader(t, "sneaky.png", encodeTestImage(t, "jpeg")))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".jpeg"))
}

func TestSaveUploadRejectsNonImage(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveUpload(uploadHeader(t, "evil.png", []byte("#!/bin/sh\necho pwned\n")))
	assert.ErrorIs(t, err, ErrNotImage)
	assertDirEmpty(t, s.dir)
}

func TestSaveUploadRejectsDisallowedImageFormat(t *testing.T) {
	s := newTestStore(t)
	// GIF sniffs as an image but sits outside the allow-list.
	_, err := s.SaveUpload(uploadHeader(t, "anim.gif", encodeTestImage(t, "gif")))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assertDirEmpty(t, s.dir)
}

func TestSaveUploadRejectsOversized(t *testing.T) {
	s := newTestStore(t)
	big := make([]byte, MaxUploadBytes+1)
	_, err := s.SaveUpload(uploadHeader(t, "big.png", big))
	assert.ErrorIs(t, err, ErrTooLarge)
	assertDirEmpty(t, s.dir)
}

func TestSaveUploadUniqueNames(t *testing.T) {
	s := newTestStore(t)
	payload := encodeTestImage(t, "png")
	a, err := s.SaveUpload(uploadHeader(t, "one.png", payload))
	require.NoError(t, err)
	b, err := s.SaveUpload(uploadHeader(t, "one.png", payload))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSaveUploadStripsTrailingPayload(t *testing.T) {
	s := newTestStore(t)
	// Valid PNG with junk appended after IEND, standing in for smuggled
	// metadata. The re-encode drops everything the decoder did not read.
	marker := []byte("SMUGGLED-PAYLOAD-MARKER")
	payload := append(encodeTestImage(t, "png"), marker...)

	name, err := s.SaveUpload(uploadHeader(t, "stego.png", payload))
	require.NoError(t, err)

	stored, err := os.ReadFile(filepath.Join(s.dir, name))
	require.NoError(t, err)
	assert.NotContains(t, string(stored), string(marker))
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	name, err := s.SaveUpload(uploadHeader(t, "poster.png", encodeTestImage(t, "png")))
	require.NoError(t, err)
	require.NoError(t, s.Remove(name))
	assertDirEmpty(t, s.dir)

	assert.NoError(t, s.Remove("")) // no-op
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
