// Package cidimage lifts base64 data URIs out of HTML email bodies and
// replaces them with cid: references backed by inline MIME parts.
package cidimage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// ContentIDDomain is the fixed domain of generated content ids. The full
// id is "image{n}@emailworker.local" and is referenced from HTML as
// "cid:image{n}@emailworker.local".
const ContentIDDomain = "emailworker.local"

// DefaultMaxImageSize bounds a single decoded inline image.
const DefaultMaxImageSize = 5 << 20

var (
	imgSrcRegex = regexp.MustCompile(`(?i)<img[^>]*\ssrc\s*=\s*["']data:image/([a-zA-Z0-9.+-]+);base64,([A-Za-z0-9+/=\s]+)["']`)
	cssURLRegex = regexp.MustCompile(`(?i)background(?:-image)?\s*:\s*url\(\s*["']?data:image/([a-zA-Z0-9.+-]+);base64,([A-Za-z0-9+/=]+)["']?\s*\)`)
)

// allowedSubtypes lists the image subtypes accepted for inline lifting.
var allowedSubtypes = map[string]bool{
	"jpeg":    true,
	"png":     true,
	"gif":     true,
	"bmp":     true,
	"webp":    true,
	"svg+xml": true,
}

var subtypeExtensions = map[string]string{
	"jpeg":    "jpg",
	"png":     "png",
	"gif":     "gif",
	"bmp":     "bmp",
	"webp":    "webp",
	"svg+xml": "svg",
}

// InlineImage is one lifted image, emitted as an inline attachment.
type InlineImage struct {
	ContentID   string
	FileName    string
	ContentType string
	Data        []byte
}

// Processor scans HTML bodies for embedded data-URI images.
type Processor struct {
	maxImageSize int64
}

// NewProcessor creates a processor with the default 5 MB per-image cap.
func NewProcessor() *Processor {
	return &Processor{maxImageSize: DefaultMaxImageSize}
}

// NewProcessorWithLimit creates a processor with a custom per-image cap.
func NewProcessorWithLimit(maxImageSize int64) *Processor {
	return &Processor{maxImageSize: maxImageSize}
}

// HasEmbeddedImages reports whether the body contains a data:image URI.
func HasEmbeddedImages(body string) bool {
	return strings.Contains(body, "data:image")
}

// Process extracts every embedded image from the body, validates it, and
// replaces its data URI with a cid: reference. Replacement is keyed on
// the exact matched payload value, never by re-applying a pattern, so
// two images with different payloads receive distinct content ids while
// repeated occurrences of one payload share a single inline part.
func (p *Processor) Process(body string) (string, []InlineImage, error) {
	type occurrence struct {
		subtype string
		payload string
	}

	var found []occurrence
	seen := make(map[string]bool)
	for _, re := range []*regexp.Regexp{imgSrcRegex, cssURLRegex} {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			subtype, payload := strings.ToLower(m[1]), m[2]
			if seen[payload] {
				continue
			}
			seen[payload] = true
			found = append(found, occurrence{subtype: subtype, payload: payload})
		}
	}

	if len(found) == 0 {
		return body, nil, nil
	}

	images := make([]InlineImage, 0, len(found))
	for n, occ := range found {
		if !allowedSubtypes[occ.subtype] {
			return "", nil, fmt.Errorf("embedded image %d: subtype %q is not allowed", n+1, occ.subtype)
		}

		data, err := base64.StdEncoding.DecodeString(compactBase64(occ.payload))
		if err != nil {
			return "", nil, fmt.Errorf("embedded image %d: invalid base64 payload: %w", n+1, err)
		}
		if int64(len(data)) > p.maxImageSize {
			return "", nil, fmt.Errorf("embedded image %d: decoded size %d exceeds limit of %d", n+1, len(data), p.maxImageSize)
		}
		if err := checkMagic(occ.subtype, data); err != nil {
			return "", nil, fmt.Errorf("embedded image %d: %w", n+1, err)
		}

		contentID := fmt.Sprintf("image%d@%s", n+1, ContentIDDomain)
		images = append(images, InlineImage{
			ContentID:   contentID,
			FileName:    fmt.Sprintf("image%d.%s", n+1, subtypeExtensions[occ.subtype]),
			ContentType: "image/" + occ.subtype,
			Data:        data,
		})

		// Substitute by payload value so only this image's occurrences
		// are rewritten.
		dataURI := fmt.Sprintf("data:image/%s;base64,%s", occ.subtype, occ.payload)
		body = strings.ReplaceAll(body, dataURI, "cid:"+contentID)
	}

	return body, images, nil
}

// Magic signatures checked against the declared subtype. SVG is text and
// has no signature.
func checkMagic(subtype string, data []byte) error {
	var ok bool
	switch subtype {
	case "jpeg":
		ok = bytes.HasPrefix(data, []byte{0xFF, 0xD8})
	case "png":
		ok = bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47})
	case "gif":
		ok = bytes.HasPrefix(data, []byte("GIF"))
	case "bmp":
		ok = bytes.HasPrefix(data, []byte("BM"))
	case "webp":
		ok = len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP"))
	case "svg+xml":
		return nil
	default:
		return fmt.Errorf("no magic signature for subtype %q", subtype)
	}
	if !ok {
		return fmt.Errorf("payload does not match declared type image/%s", subtype)
	}
	return nil
}

// compactBase64 strips the whitespace that HTML attribute wrapping may
// introduce inside long payloads.
func compactBase64(s string) string {
	if !strings.ContainsAny(s, " \t\r\n") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\r', '\n':
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
