package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pranganb/vtube/internal/apperr"
)

const maxMultipartMemory = 8 << 20

// UploadOptions controls where multipart files are staged.
type UploadOptions struct {
	TempDir  string
	MaxBytes int64
}

// stagedFiles maps form field names to local temp paths.
type stagedFiles map[string]string

// cleanup removes whatever the uploader did not consume.
func (s stagedFiles) cleanup() {
	for _, p := range s {
		_ = os.Remove(p)
	}
}

// stageMultipart parses a multipart request and copies the first file of
// each listed field into the temp dir. Absent fields are skipped.
func (o UploadOptions) stageMultipart(w http.ResponseWriter, r *http.Request, fields ...string) (stagedFiles, error) {
	if o.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, o.MaxBytes)
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Validation("upload is too large").WithCode("PAYLOAD_TOO_LARGE")
		}
		return nil, apperr.Validation("invalid multipart form")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	if err := os.MkdirAll(o.TempDir, 0o755); err != nil {
		return nil, apperr.Internal("failed to prepare upload directory", err)
	}

	staged := stagedFiles{}
	for _, field := range fields {
		headers := r.MultipartForm.File[field]
		if len(headers) == 0 {
			continue
		}
		path, err := o.stage(headers[0])
		if err != nil {
			staged.cleanup()
			return nil, apperr.Internal("failed to stage upload", err)
		}
		staged[field] = path
	}
	return staged, nil
}

func (o UploadOptions) stage(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", header.Filename, err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	dst, err := os.CreateTemp(o.TempDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("copy %s: %w", header.Filename, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return dst.Name(), nil
}
