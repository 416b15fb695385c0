// Package upload receives answer-sheet photos from multipart requests.
package upload

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/korektor-app/korektor/internal/model"
)

const (
	// MaxFiles caps how many photos one grading request may carry.
	MaxFiles = 5
	// maxFormMemory is the in-memory budget for multipart parsing;
	// larger bodies spill to temp files.
	maxFormMemory = 32 << 20
)

// FileField is the multipart field name carrying the photos.
const FileField = "foto_tugas"

// Receiver stores uploaded photos under a directory and hands their
// bytes to the grading flow.
type Receiver struct {
	dir string
}

// NewReceiver creates a Receiver writing into dir, creating it if needed.
func NewReceiver(dir string) (*Receiver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Receiver{dir: dir}, nil
}

// Receive parses the request's multipart form and returns the uploaded
// photos. Each file is read fully into memory and a copy is stored on
// disk under a random name. More than MaxFiles photos is an error.
func (rc *Receiver) Receive(r *http.Request) ([]model.SheetImage, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	if r.MultipartForm == nil {
		return nil, fmt.Errorf("no multipart form")
	}

	headers := r.MultipartForm.File[FileField]
	if len(headers) > MaxFiles {
		return nil, fmt.Errorf("too many files: %d (max %d)", len(headers), MaxFiles)
	}

	var images []model.SheetImage
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}

		stored := filepath.Join(rc.dir, uuid.NewString()+filepath.Ext(fh.Filename))
		if err := os.WriteFile(stored, data, 0o644); err != nil {
			return nil, fmt.Errorf("store upload %s: %w", fh.Filename, err)
		}

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "image/jpeg"
		}
		images = append(images, model.SheetImage{
			Name:        fh.Filename,
			ContentType: contentType,
			Data:        data,
			StoredPath:  stored,
		})
	}
	return images, nil
}
