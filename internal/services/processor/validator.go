package processor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phambaophuc/resizo/internal/apperrors"
	"github.com/phambaophuc/resizo/internal/models"
)

const (
	MaxFileSize = 20 << 20 // 20MB

	// Only this many leading bytes are inspected; the container is not parsed.
	SignatureLength = 12
)

type signature struct {
	format models.Format
	match  func(head []byte) bool
}

var signatures = []signature{
	{models.FormatJPEG, func(h []byte) bool { return bytes.HasPrefix(h, []byte{0xFF, 0xD8}) }},
	{models.FormatPNG, func(h []byte) bool { return bytes.HasPrefix(h, []byte{0x89, 0x50}) }},
	{models.FormatWebP, func(h []byte) bool {
		return len(h) >= 12 && bytes.Equal(h[0:4], []byte("RIFF")) && bytes.Equal(h[8:12], []byte("WEBP"))
	}},
	{models.FormatGIF, func(h []byte) bool { return bytes.HasPrefix(h, []byte{0x47, 0x49}) }},
}

// MatchSignature identifies the image format from the leading bytes of a file.
func MatchSignature(head []byte) (models.Format, bool) {
	if len(head) > SignatureLength {
		head = head[:SignatureLength]
	}
	for _, sig := range signatures {
		if sig.match(head) {
			return sig.format, true
		}
	}
	return "", false
}

// Validator rejects uploads before any decoding happens.
type Validator struct {
	MaxFileSize int64
	Strict      bool
}

func NewValidator(maxFileSize int64, strict bool) *Validator {
	if maxFileSize <= 0 {
		maxFileSize = MaxFileSize
	}
	return &Validator{MaxFileSize: maxFileSize, Strict: strict}
}

// Validate checks the declared MIME type, the size ceiling and, in strict
// mode, the magic bytes.
func (v *Validator) Validate(file models.UploadedFile) error {
	if !strings.HasPrefix(strings.ToLower(file.ContentType), "image/") {
		return apperrors.ClientInput("Invalid file type. Only images are allowed.")
	}

	if file.Size > v.MaxFileSize {
		return apperrors.ClientInput(fmt.Sprintf("File exceeds the maximum allowed size of %dMB.", v.MaxFileSize>>20))
	}

	if v.Strict {
		if _, ok := MatchSignature(file.Data); !ok {
			return apperrors.ClientInput("File content does not match a supported image signature.")
		}
	}

	return nil
}
