// Package media pushes locally staged upload files to the media host.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrNoFile is returned when no local file was supplied.
var ErrNoFile = errors.New("no file supplied")

// UploadError reports that a supplied file could not be pushed to the host.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Upload describes an object stored on the media host.
type Upload struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// ObjectStore is the subset of storage the uploader needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Uploader moves temp files into object storage.
type Uploader struct {
	store  ObjectStore
	prefix string
	logger *slog.Logger
}

func NewUploader(store ObjectStore, prefix string, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// Upload pushes the file at localPath and returns its durable URL.
// The local file is removed whether or not the upload succeeds.
func (u *Uploader) Upload(ctx context.Context, localPath string) (Upload, error) {
	if strings.TrimSpace(localPath) == "" {
		return Upload{}, ErrNoFile
	}
	defer u.removeLocal(localPath)

	file, err := os.Open(localPath)
	if err != nil {
		return Upload{}, &UploadError{Path: localPath, Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Upload{}, &UploadError{Path: localPath, Err: err}
	}
	if info.Size() == 0 {
		return Upload{}, &UploadError{Path: localPath, Err: errors.New("file is empty")}
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return Upload{}, &UploadError{Path: localPath, Err: err}
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return Upload{}, &UploadError{Path: localPath, Err: err}
	}

	ext := strings.ToLower(filepath.Ext(localPath))
	if ext == "" {
		ext = mtype.Extension()
	}
	key := path.Join(u.prefix, uuid.NewString()+ext)

	if err := u.store.Put(ctx, key, file, info.Size(), mtype.String()); err != nil {
		return Upload{}, &UploadError{Path: localPath, Err: err}
	}

	u.logger.DebugContext(ctx, "media uploaded", "key", key, "size", info.Size(), "content_type", mtype.String())
	return Upload{
		URL:         u.store.URL(key),
		Key:         key,
		ContentType: mtype.String(),
		Size:        info.Size(),
	}, nil
}

// Delete removes a previously uploaded object.
func (u *Uploader) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return u.store.Delete(ctx, key)
}

func (u *Uploader) removeLocal(localPath string) {
	if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		u.logger.Warn("failed to remove temp upload", "path", localPath, "error", err)
	}
}
