package processor

import (
	"testing"

	"github.com/phambaophuc/resizo/internal/apperrors"
	"github.com/phambaophuc/resizo/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestMatchSignature(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want models.Format
		ok   bool
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, models.FormatJPEG, true},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47}, models.FormatPNG, true},
		{"gif", []byte("GIF89a"), models.FormatGIF, true},
		{"webp", []byte("RIFF\x10\x00\x00\x00WEBPVP8L"), models.FormatWebP, true},
		{"riff but not webp", []byte("RIFF\x10\x00\x00\x00WAVEfmt "), "", false},
		{"text", []byte("hello world!"), "", false},
		{"empty", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchSignature(tt.head)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatorAcceptsImage(t *testing.T) {
	v := NewValidator(MaxFileSize, true)

	err := v.Validate(models.UploadedFile{
		Data:        []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0},
		ContentType: "image/jpeg",
		Size:        6,
	})
	assert.NoError(t, err)
}

func TestValidatorRejectsNonImageMIME(t *testing.T) {
	v := NewValidator(MaxFileSize, true)

	err := v.Validate(models.UploadedFile{Data: []byte{0xFF, 0xD8}, ContentType: "application/pdf", Size: 2})
	assert.ErrorIs(t, err, apperrors.ErrClientInput)
	assert.Equal(t, "Invalid file type. Only images are allowed.", err.Error())
}

func TestValidatorRejectsOversizedFile(t *testing.T) {
	v := NewValidator(MaxFileSize, true)

	err := v.Validate(models.UploadedFile{
		Data:        []byte{0xFF, 0xD8},
		ContentType: "image/jpeg",
		Size:        MaxFileSize + 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrClientInput)
	assert.Equal(t, "File exceeds the maximum allowed size of 20MB.", err.Error())
}

func TestValidatorRejectsSpoofedMIME(t *testing.T) {
	v := NewValidator(MaxFileSize, true)

	err := v.Validate(models.UploadedFile{
		Data:        []byte("<html>not an image</html>"),
		ContentType: "image/jpeg",
		Size:        25,
	})
	assert.ErrorIs(t, err, apperrors.ErrClientInput)
}

func TestValidatorLenientSkipsSignature(t *testing.T) {
	v := NewValidator(MaxFileSize, false)

	err := v.Validate(models.UploadedFile{
		Data:        []byte("<html>not an image</html>"),
		ContentType: "image/jpeg",
		Size:        25,
	})
	assert.NoError(t, err)
}

func TestNewValidatorDefaultsCeiling(t *testing.T) {
	assert.Equal(t, int64(MaxFileSize), NewValidator(0, true).MaxFileSize)
}
