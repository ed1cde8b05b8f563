package board

import (
	"path/filepath"
	"strings"

	"github.com/harborview/taskboard/internal/models"
)

// ClassifyAttachment maps a filename and mime type to the coarse kind used
// for icon selection. The kind is never used for validation.
func ClassifyAttachment(filename, mimeType string) models.AttachmentKind {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.AttachmentImage
	case strings.HasPrefix(mimeType, "video/"):
		return models.AttachmentVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return models.AttachmentAudio
	case strings.Contains(mimeType, "zip"), strings.Contains(mimeType, "compressed"):
		return models.AttachmentZip
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg":
		return models.AttachmentImage
	case ".zip", ".gz", ".tar", ".rar", ".7z":
		return models.AttachmentZip
	case ".mp4", ".mov", ".webm":
		return models.AttachmentVideo
	case ".mp3", ".wav", ".ogg":
		return models.AttachmentAudio
	case ".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".txt", ".md", ".csv":
		return models.AttachmentDocument
	}

	if mimeType != "" {
		return models.AttachmentDocument
	}
	return models.AttachmentOther
}
