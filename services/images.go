package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/gonzalo-olmedo/comicstore/common/errors"
)

// MaxImageSize is the largest accepted upload, in bytes.
const MaxImageSize int64 = 5 * 1024 * 1024

var timeNow = time.Now

// ImageUploader stores an image and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (string, error)
}

// ValidateImage rejects non-image content types and files over MaxImageSize.
func ValidateImage(fh *multipart.FileHeader) error {
	if fh == nil {
		return nil
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return apperrors.Validation("Validation error", map[string]string{"image": "only image files are allowed"})
	}
	if fh.Size > MaxImageSize {
		return apperrors.Validation("Validation error", map[string]string{
			"image": fmt.Sprintf("image is too large (max %d MB)", MaxImageSize/(1024*1024)),
		})
	}
	return nil
}

func uploadImage(ctx context.Context, uploader ImageUploader, fh *multipart.FileHeader, logger *zap.Logger) (string, error) {
	if uploader == nil {
		return "", apperrors.WithMessage(apperrors.ErrServiceUnavailable, "image storage is not configured")
	}
	file, err := fh.Open()
	if err != nil {
		return "", apperrors.Validation("Validation error", map[string]string{"image": "could not read uploaded file"})
	}
	defer file.Close()

	url, err := uploader.Upload(ctx, fh.Filename, fh.Header.Get("Content-Type"), fh.Size, file)
	if err != nil {
		logger.Error("Image upload failed", zap.String("filename", fh.Filename), zap.Error(err))
		return "", apperrors.Wrap(apperrors.ErrImageUpload, err)
	}
	return url, nil
}
