package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ArchaicDeity/badge-to-cert/pkg/validator"
)

// UploadService stores course material files (PDF and HTML documents) under
// the configured upload directory.
type UploadService struct {
	uploadDir string
	maxSize   int64
}

var (
	ErrUploadNotFound    = errors.New("upload not found")
	ErrInvalidUploadName = errors.New("invalid upload name")
)

func NewUploadService(uploadDir string, maxSize int64) *UploadService {
	if _, err := os.Stat(uploadDir); os.IsNotExist(err) {
		os.MkdirAll(uploadDir, 0755)
	}

	if maxSize <= 0 {
		maxSize = 25 * 1024 * 1024
	}

	return &UploadService{
		uploadDir: uploadDir,
		maxSize:   maxSize,
	}
}

// UploadDocument stores one course material file and returns its path
// relative to the upload root plus the stored filename.
func (s *UploadService) UploadDocument(file *multipart.FileHeader) (string, string, error) {
	if s == nil {
		return "", "", errors.New("upload service is not configured")
	}

	if !validator.ValidateFileSize(file.Size, s.maxSize) {
		return "", "", newValidationError("file size exceeds maximum allowed size")
	}

	if !validator.ValidateDocumentExtension(file.Filename) {
		return "", "", newValidationError("file type not allowed")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	base := validator.SanitizeFilename(strings.TrimSuffix(filepath.Base(file.Filename), ext))
	if base == "" {
		base = "document"
	}
	filename := fmt.Sprintf("%s-%s%s", base, uuid.NewString()[:8], ext)
	filePath := filepath.Join(s.uploadDir, filename)

	src, err := file.Open()
	if err != nil {
		return "", "", err
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return "", "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(filePath)
		return "", "", err
	}

	return filePath, filename, nil
}

// Delete removes a stored file by name. The name must not escape the upload
// directory.
func (s *UploadService) Delete(filename string) error {
	if s == nil {
		return errors.New("upload service is not configured")
	}

	cleaned := filepath.Base(strings.TrimSpace(filename))
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return ErrInvalidUploadName
	}

	path := filepath.Join(s.uploadDir, cleaned)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrUploadNotFound
		}
		return err
	}
	return nil
}

// SweepOlderThan removes stored files not modified within the retention
// window and not referenced by any content unit. referenced holds the
// currently referenced file paths.
func (s *UploadService) SweepOlderThan(retention time.Duration, referenced map[string]bool) (int, error) {
	if s == nil {
		return 0, errors.New("upload service is not configured")
	}

	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.uploadDir, entry.Name())
		if referenced[path] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed, nil
}
