package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/harborview/taskboard/internal/board"
	"github.com/harborview/taskboard/internal/config"
	"github.com/harborview/taskboard/internal/middleware"
	"github.com/harborview/taskboard/internal/models"
)

// AttachmentsHandler serves stored attachment files.
type AttachmentsHandler struct {
	Uploads config.UploadsConfig
}

// Serve handles GET /api/attachments/{org}/{key}. The key is the storage
// name generated at upload time, never the client-supplied filename.
func (h *AttachmentsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.WorkspaceFromContext(r.Context())
	pathOrg := strings.TrimSpace(chi.URLParam(r, "org"))
	if pathOrg == "" || pathOrg != orgID {
		sendJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
		return
	}

	key := strings.TrimSpace(chi.URLParam(r, "key"))
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid attachment key"})
		return
	}

	path := filepath.Join(h.Uploads.Dir, orgID, key)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			sendJSON(w, http.StatusNotFound, errorResponse{Error: "attachment not found"})
			return
		}
		sendJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read attachment"})
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		sendJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read attachment"})
		return
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", stat.Size()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", key))
	_, _ = io.Copy(w, file)
}

// uploadedFiles collects the "attachments" parts of a parsed multipart form.
func uploadedFiles(r *http.Request) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	return r.MultipartForm.File["attachments"]
}

// saveAttachments writes uploaded files under the org's upload directory and
// returns their metadata. Storage keys are random so client filenames never
// touch the filesystem.
func saveAttachments(cfg config.UploadsConfig, orgID string, files []*multipart.FileHeader) ([]models.AttachmentMetadata, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if orgID == "" {
		return nil, fmt.Errorf("missing workspace for upload")
	}

	dir := filepath.Join(cfg.Dir, orgID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	attachments := make([]models.AttachmentMetadata, 0, len(files))
	for _, header := range files {
		if header.Size > cfg.MaxSizeBytes {
			return nil, fmt.Errorf("attachment %s exceeds size limit", header.Filename)
		}

		key := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
		written, err := copyUpload(header, filepath.Join(dir, key))
		if err != nil {
			return nil, err
		}

		attachments = append(attachments, models.AttachmentMetadata{
			ID:        uuid.NewString(),
			Name:      header.Filename,
			SizeBytes: written,
			Kind:      board.ClassifyAttachment(header.Filename, header.Header.Get("Content-Type")),
			URL:       fmt.Sprintf("/api/attachments/%s/%s", orgID, key),
		})
	}
	return attachments, nil
}

func copyUpload(header *multipart.FileHeader, destPath string) (int64, error) {
	src, err := header.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dest.Close()

	written, err := io.Copy(dest, src)
	if err != nil {
		os.Remove(destPath)
		return 0, fmt.Errorf("failed to write upload: %w", err)
	}
	return written, nil
}
