package domain

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:generate mockgen -destination mocks/mock_attachment_repository.go -package mocks github.com/mailworker/mailworker/internal/domain AttachmentRepository

// Attachment is one file carried by a queue item, either inline (CID
// referenced from the HTML body) or as a regular MIME part.
type Attachment struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	// Content is the base64-encoded payload. Mutually exclusive with FilePath.
	Content   string `json:"content,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
	IsInline  bool   `json:"is_inline,omitempty"`
	ContentID string `json:"content_id,omitempty"`
}

// ParseAttachments decodes the JSON attachment list stored on a queue row.
func ParseAttachments(raw string) ([]Attachment, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var atts []Attachment
	if err := json.Unmarshal([]byte(raw), &atts); err != nil {
		return nil, fmt.Errorf("failed to parse attachments: %w", err)
	}
	return atts, nil
}

// Bytes returns the decoded payload, reading from disk when the
// attachment references a file path.
func (a *Attachment) Bytes() ([]byte, error) {
	if a.Content != "" {
		data, err := base64.StdEncoding.DecodeString(a.Content)
		if err != nil {
			return nil, fmt.Errorf("attachment %q: invalid base64 content: %w", a.FileName, err)
		}
		return data, nil
	}
	if a.FilePath != "" {
		data, err := os.ReadFile(a.FilePath)
		if err != nil {
			return nil, fmt.Errorf("attachment %q: unreadable file path: %w", a.FileName, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("attachment %q: no content or file path", a.FileName)
}

const maxFileNameLength = 255

// Characters rejected in filenames across supported filesystems.
const invalidFileNameChars = `<>:"/\|?*`

// blockedExtensions are never accepted regardless of declared content type.
var blockedExtensions = map[string]bool{
	".exe": true,
	".bat": true,
	".cmd": true,
	".com": true,
	".scr": true,
	".pif": true,
	".vbs": true,
	".js":  true,
}

// allowedContentTypes is the content-type allow-list: documents, text,
// images, archives and structured data.
var allowedContentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain":                   true,
	"text/csv":                     true,
	"text/html":                    true,
	"image/jpeg":                   true,
	"image/png":                    true,
	"image/gif":                    true,
	"image/bmp":                    true,
	"image/webp":                   true,
	"image/svg+xml":                true,
	"application/zip":              true,
	"application/x-7z-compressed":  true,
	"application/gzip":             true,
	"application/x-tar":            true,
	"application/json":             true,
	"application/xml":              true,
	"text/xml":                     true,
	"application/rtf":              true,
	"application/octet-stream":     true,
	"message/rfc822":               true,
	"application/vnd.oasis.opendocument.text":        true,
	"application/vnd.oasis.opendocument.spreadsheet": true,
}

var extensionContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".html": "text/html",
	".htm":  "text/html",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".zip":  "application/zip",
	".7z":   "application/x-7z-compressed",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".json": "application/json",
	".xml":  "application/xml",
	".rtf":  "application/rtf",
	".eml":  "message/rfc822",
	".odt":  "application/vnd.oasis.opendocument.text",
	".ods":  "application/vnd.oasis.opendocument.spreadsheet",
}

// Executable magic numbers rejected regardless of extension.
var (
	magicPE  = []byte{0x4D, 0x5A}             // MZ
	magicELF = []byte{0x7F, 0x45, 0x4C, 0x46} // 0x7F ELF
)

// InferContentType maps a filename extension to a content type, falling
// back to application/octet-stream.
func InferContentType(fileName string) string {
	if ct, ok := extensionContentTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// AttachmentPolicy bounds attachment sizes during validation.
type AttachmentPolicy struct {
	MaxAttachmentSize int64 // per attachment, bytes
	MaxTotalSize      int64 // cumulative, bytes
}

// DefaultAttachmentPolicy matches the documented 25 MB defaults.
func DefaultAttachmentPolicy() AttachmentPolicy {
	return AttachmentPolicy{
		MaxAttachmentSize: 25 << 20,
		MaxTotalSize:      25 << 20,
	}
}

// ValidateAttachment checks a single attachment against the policy and
// returns the decoded payload on success. The content type is inferred
// from the extension when missing.
func (p AttachmentPolicy) ValidateAttachment(a *Attachment) ([]byte, error) {
	name := strings.TrimSpace(a.FileName)
	if name == "" {
		return nil, NewValidationError("attachments", "attachment filename is required")
	}
	if len(name) > maxFileNameLength {
		return nil, NewValidationError("attachments", fmt.Sprintf("attachment filename exceeds %d characters", maxFileNameLength))
	}
	if strings.ContainsAny(name, invalidFileNameChars) || strings.ContainsFunc(name, func(r rune) bool { return r < 0x20 }) {
		return nil, NewValidationError("attachments", fmt.Sprintf("attachment filename %q contains invalid characters", name))
	}

	ext := strings.ToLower(filepath.Ext(name))
	if blockedExtensions[ext] {
		return nil, NewValidationError("attachments", fmt.Sprintf("attachment extension %s is not allowed", ext))
	}

	if a.ContentType == "" {
		a.ContentType = InferContentType(name)
	}
	if !allowedContentTypes[strings.ToLower(a.ContentType)] {
		return nil, NewValidationError("attachments", fmt.Sprintf("content type %q is not allowed", a.ContentType))
	}

	data, err := a.Bytes()
	if err != nil {
		return nil, NewValidationError("attachments", err.Error())
	}

	if p.MaxAttachmentSize > 0 && int64(len(data)) > p.MaxAttachmentSize {
		return nil, NewValidationError("attachments", fmt.Sprintf("attachment %q is %d bytes, exceeds limit of %d", name, len(data), p.MaxAttachmentSize))
	}

	if bytes.HasPrefix(data, magicPE) || bytes.HasPrefix(data, magicELF) {
		return nil, NewValidationError("attachments", fmt.Sprintf("attachment %q has an executable signature", name))
	}

	return data, nil
}

// ValidateAll validates every attachment and enforces the cumulative size
// cap. Returns the decoded payloads in input order.
func (p AttachmentPolicy) ValidateAll(atts []Attachment) ([][]byte, error) {
	var total int64
	payloads := make([][]byte, 0, len(atts))
	for i := range atts {
		data, err := p.ValidateAttachment(&atts[i])
		if err != nil {
			return nil, err
		}
		total += int64(len(data))
		if p.MaxTotalSize > 0 && total > p.MaxTotalSize {
			return nil, NewValidationError("attachments", fmt.Sprintf("cumulative attachment size %d exceeds limit of %d", total, p.MaxTotalSize))
		}
		payloads = append(payloads, data)
	}
	return payloads, nil
}

// AttachmentRepository accesses the side table where the ingress may
// store attachment payloads referenced by queue rows.
type AttachmentRepository interface {
	// ListByQueueID returns the stored attachments for a queue row.
	ListByQueueID(ctx context.Context, queueID string) ([]Attachment, error)

	// DeleteOrphaned removes up to limit attachment rows whose queue row
	// no longer exists.
	DeleteOrphaned(ctx context.Context, limit int) (int64, error)
}
