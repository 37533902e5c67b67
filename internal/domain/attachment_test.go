package domain

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestParseAttachments(t *testing.T) {
	t.Run("empty blob", func(t *testing.T) {
		atts, err := ParseAttachments("")
		require.NoError(t, err)
		assert.Nil(t, atts)
	})

	t.Run("valid list", func(t *testing.T) {
		raw := `[{"file_name":"report.pdf","content_type":"application/pdf","content":"` + b64("%PDF") + `"},
			{"file_name":"logo.png","is_inline":true,"content_id":"logo@x"}]`
		atts, err := ParseAttachments(raw)
		require.NoError(t, err)
		require.Len(t, atts, 2)
		assert.Equal(t, "report.pdf", atts[0].FileName)
		assert.True(t, atts[1].IsInline)
		assert.Equal(t, "logo@x", atts[1].ContentID)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseAttachments("{not a list")
		assert.Error(t, err)
	})
}

func TestAttachmentBytes(t *testing.T) {
	t.Run("base64 content", func(t *testing.T) {
		a := Attachment{FileName: "a.txt", Content: b64("hello")}
		data, err := a.Bytes()
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("invalid base64", func(t *testing.T) {
		a := Attachment{FileName: "a.txt", Content: "!!!"}
		_, err := a.Bytes()
		assert.Error(t, err)
	})

	t.Run("file path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "note.txt")
		require.NoError(t, os.WriteFile(path, []byte("from disk"), 0o644))

		a := Attachment{FileName: "note.txt", FilePath: path}
		data, err := a.Bytes()
		require.NoError(t, err)
		assert.Equal(t, []byte("from disk"), data)
	})

	t.Run("missing file", func(t *testing.T) {
		a := Attachment{FileName: "gone.txt", FilePath: "/does/not/exist"}
		_, err := a.Bytes()
		assert.Error(t, err)
	})

	t.Run("no source", func(t *testing.T) {
		a := Attachment{FileName: "empty.txt"}
		_, err := a.Bytes()
		assert.Error(t, err)
	})
}

func TestInferContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", InferContentType("report.PDF"))
	assert.Equal(t, "image/jpeg", InferContentType("photo.jpg"))
	assert.Equal(t, "text/csv", InferContentType("data.csv"))
	assert.Equal(t, "application/octet-stream", InferContentType("mystery.bin"))
}

func TestValidateAttachment(t *testing.T) {
	policy := DefaultAttachmentPolicy()

	t.Run("valid pdf", func(t *testing.T) {
		a := Attachment{FileName: "report.pdf", Content: b64("%PDF-1.4 data")}
		data, err := policy.ValidateAttachment(&a)
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", a.ContentType)
		assert.NotEmpty(t, data)
	})

	t.Run("missing filename", func(t *testing.T) {
		a := Attachment{Content: b64("x")}
		_, err := policy.ValidateAttachment(&a)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("filename too long", func(t *testing.T) {
		a := Attachment{FileName: strings.Repeat("a", 256) + ".txt", Content: b64("x")}
		_, err := policy.ValidateAttachment(&a)
		assert.True(t, IsValidationError(err))
	})

	t.Run("invalid filename characters", func(t *testing.T) {
		for _, name := range []string{`bad|name.txt`, `bad<name.txt`, "bad\x00name.txt"} {
			a := Attachment{FileName: name, Content: b64("x")}
			_, err := policy.ValidateAttachment(&a)
			assert.Error(t, err, name)
		}
	})

	t.Run("blocked extensions", func(t *testing.T) {
		for _, name := range []string{"run.exe", "run.bat", "run.cmd", "run.com", "run.scr", "run.pif", "run.vbs", "run.js"} {
			a := Attachment{FileName: name, Content: b64("x")}
			_, err := policy.ValidateAttachment(&a)
			assert.True(t, IsValidationError(err), name)
		}
	})

	t.Run("disallowed content type", func(t *testing.T) {
		a := Attachment{FileName: "x.txt", ContentType: "application/x-sharedlib", Content: b64("x")}
		_, err := policy.ValidateAttachment(&a)
		assert.True(t, IsValidationError(err))
	})

	t.Run("executable magic bytes rejected", func(t *testing.T) {
		pe := Attachment{FileName: "doc.pdf", ContentType: "application/pdf",
			Content: base64.StdEncoding.EncodeToString([]byte{0x4D, 0x5A, 0x90, 0x00})}
		_, err := policy.ValidateAttachment(&pe)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "executable signature")

		elf := Attachment{FileName: "doc.pdf", ContentType: "application/pdf",
			Content: base64.StdEncoding.EncodeToString([]byte{0x7F, 0x45, 0x4C, 0x46, 0x02})}
		_, err = policy.ValidateAttachment(&elf)
		assert.Error(t, err)
	})

	t.Run("oversized attachment", func(t *testing.T) {
		small := AttachmentPolicy{MaxAttachmentSize: 8, MaxTotalSize: 8}
		a := Attachment{FileName: "big.txt", Content: b64("0123456789abcdef")}
		_, err := small.ValidateAttachment(&a)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "exceeds limit")
	})
}

func TestValidateAll(t *testing.T) {
	t.Run("cumulative size cap", func(t *testing.T) {
		policy := AttachmentPolicy{MaxAttachmentSize: 10, MaxTotalSize: 15}
		atts := []Attachment{
			{FileName: "a.txt", Content: b64("0123456789")},
			{FileName: "b.txt", Content: b64("0123456789")},
		}
		_, err := policy.ValidateAll(atts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cumulative")
	})

	t.Run("all valid", func(t *testing.T) {
		policy := DefaultAttachmentPolicy()
		atts := []Attachment{
			{FileName: "a.txt", Content: b64("hello")},
			{FileName: "b.csv", Content: b64("c1,c2")},
		}
		payloads, err := policy.ValidateAll(atts)
		require.NoError(t, err)
		require.Len(t, payloads, 2)
		assert.Equal(t, []byte("hello"), payloads[0])
	})

	t.Run("rerun yields identical payloads", func(t *testing.T) {
		policy := DefaultAttachmentPolicy()
		atts := []Attachment{{FileName: "a.txt", Content: b64("stable")}}
		first, err := policy.ValidateAll(atts)
		require.NoError(t, err)
		second, err := policy.ValidateAll(atts)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
