package processor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/phambaophuc/resizo/internal/apperrors"
	"github.com/phambaophuc/resizo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func jpegFixture(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(width, height), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func pngFixture(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient(width, height)))
	return buf.Bytes()
}

// withExif splices an APP1 Exif segment right after the SOI marker.
func withExif(data []byte) []byte {
	payload := append([]byte("Exif\x00\x00"), []byte("MM\x00\x2a\x00\x00\x00\x08\x00\x00")...)
	payload = append(payload, []byte("secret-camera-serial")...)
	length := len(payload) + 2

	segment := []byte{0xFF, 0xE1, byte(length >> 8), byte(length)}
	segment = append(segment, payload...)

	out := append([]byte{}, data[:2]...)
	out = append(out, segment...)
	return append(out, data[2:]...)
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func decodeSize(t *testing.T, data []byte) (int, int, string) {
	t.Helper()
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height, name
}

func TestTransformScalePercentage(t *testing.T) {
	p := NewImageProcessor(85)

	res, err := p.Transform(context.Background(), jpegFixture(t, 400, 300), models.TransformConfig{
		Scale:  floatPtr(50),
		Format: models.FormatJPEG,
	})
	require.NoError(t, err)

	assert.Equal(t, 200, res.Width)
	assert.Equal(t, 150, res.Height)
	assert.Equal(t, models.FormatJPEG, res.Format)
	assert.Equal(t, 400, res.SourceWidth)
	assert.Equal(t, 300, res.SourceHeight)

	w, h, name := decodeSize(t, res.Data)
	assert.Equal(t, 200, w)
	assert.Equal(t, 150, h)
	assert.Equal(t, "jpeg", name)
}

func TestTransformWidthOnlyKeepsAspectRatio(t *testing.T) {
	p := NewImageProcessor(85)

	res, err := p.Transform(context.Background(), jpegFixture(t, 400, 300), models.TransformConfig{
		Width:  intPtr(100),
		Format: models.FormatPNG,
	})
	require.NoError(t, err)

	assert.Equal(t, 100, res.Width)
	assert.InDelta(t, 75, res.Height, 1)
	assert.Equal(t, models.FormatPNG, res.Format)
}

func TestTransformHeightOnlyKeepsAspectRatio(t *testing.T) {
	p := NewImageProcessor(85)

	res, err := p.Transform(context.Background(), pngFixture(t, 300, 600), models.TransformConfig{
		Height: intPtr(200),
	})
	require.NoError(t, err)

	assert.Equal(t, 200, res.Height)
	assert.InDelta(t, 100, res.Width, 1)
}

func TestTransformBothDimensionsExact(t *testing.T) {
	p := NewImageProcessor(85)

	res, err := p.Transform(context.Background(), jpegFixture(t, 400, 300), models.TransformConfig{
		Width:  intPtr(120),
		Height: intPtr(120),
		Scale:  floatPtr(10), // ignored when dimensions are present
	})
	require.NoError(t, err)

	assert.Equal(t, 120, res.Width)
	assert.Equal(t, 120, res.Height)
}

func TestTransformDiscardsNonPositiveDimensions(t *testing.T) {
	p := NewImageProcessor(85)

	res, err := p.Transform(context.Background(), jpegFixture(t, 64, 48), models.TransformConfig{
		Width: intPtr(-5),
	})
	require.NoError(t, err)

	assert.Equal(t, 64, res.Width)
	assert.Equal(t, 48, res.Height)
}

func TestTransformKeepsSourceFormat(t *testing.T) {
	p := NewImageProcessor(85)

	res, err := p.Transform(context.Background(), pngFixture(t, 50, 40), models.TransformConfig{
		Format: models.FormatOriginal,
	})
	require.NoError(t, err)

	assert.Equal(t, models.FormatPNG, res.Format)
	assert.Equal(t, models.FormatPNG, res.SourceFormat)
}

func TestTransformToWebP(t *testing.T) {
	p := NewImageProcessor(85)

	res, err := p.Transform(context.Background(), jpegFixture(t, 80, 60), models.TransformConfig{
		Width:  intPtr(40),
		Format: models.FormatWebP,
	})
	require.NoError(t, err)

	assert.Equal(t, models.FormatWebP, res.Format)
	assert.Equal(t, 40, res.Width)
	assert.Equal(t, 30, res.Height)

	format, ok := MatchSignature(res.Data)
	assert.True(t, ok)
	assert.Equal(t, models.FormatWebP, format)
}

func TestTransformStripsMetadata(t *testing.T) {
	p := NewImageProcessor(85)
	input := withExif(jpegFixture(t, 64, 64))
	require.True(t, bytes.Contains(input, []byte("secret-camera-serial")))

	res, err := p.Transform(context.Background(), input, models.TransformConfig{Format: models.FormatJPEG})
	require.NoError(t, err)

	assert.False(t, bytes.Contains(res.Data, []byte("Exif")))
	assert.False(t, bytes.Contains(res.Data, []byte("secret-camera-serial")))
}

func TestTransformIsDeterministicForSameSize(t *testing.T) {
	p := NewImageProcessor(85)
	input := jpegFixture(t, 64, 48)
	cfg := models.TransformConfig{Width: intPtr(64), Height: intPtr(48), Format: models.FormatJPEG}

	first, err := p.Transform(context.Background(), input, cfg)
	require.NoError(t, err)
	second, err := p.Transform(context.Background(), input, cfg)
	require.NoError(t, err)

	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, 64, first.Width)
	assert.Equal(t, 48, first.Height)
}

func TestTransformInvalidScale(t *testing.T) {
	p := NewImageProcessor(85)

	_, err := p.Transform(context.Background(), jpegFixture(t, 10, 10), models.TransformConfig{Scale: floatPtr(0)})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrClientInput)
	assert.Equal(t, "Invalid scale parameter provided.", err.Error())
}

func TestTransformRejectsHugeScale(t *testing.T) {
	p := NewImageProcessor(85)

	result, err := p.Transform(context.Background(), pngFixture(t, 40, 30), models.TransformConfig{Scale: floatPtr(1e20)})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrClientInput)
}

func TestTransformCorruptBodyIsProcessingError(t *testing.T) {
	p := NewImageProcessor(85)
	corrupt := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x00}, 64)...)

	res, err := p.Transform(context.Background(), corrupt, models.TransformConfig{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperrors.ErrProcessing)
}

func TestTransformHonoursCancelledContext(t *testing.T) {
	p := NewImageProcessor(85)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Transform(ctx, jpegFixture(t, 10, 10), models.TransformConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name          string
		cfg           models.TransformConfig
		wantW, wantH  int
		wantClientErr bool
	}{
		{"nothing", models.TransformConfig{}, 0, 0, false},
		{"width", models.TransformConfig{Width: intPtr(10)}, 10, 0, false},
		{"zero height discarded", models.TransformConfig{Width: intPtr(10), Height: intPtr(0)}, 10, 0, false},
		{"scale", models.TransformConfig{Scale: floatPtr(25)}, 1000, 750, false},
		{"scale rounds", models.TransformConfig{Scale: floatPtr(33.3)}, 1332, 999, false},
		{"negative scale", models.TransformConfig{Scale: floatPtr(-1)}, 0, 0, true},
		{"too large", models.TransformConfig{Width: intPtr(MaxDimension + 1)}, 0, 0, true},
		{"scale past limit", models.TransformConfig{Scale: floatPtr(410)}, 0, 0, true},
		{"huge scale", models.TransformConfig{Scale: floatPtr(1e20)}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := resolveTarget(tt.cfg, 4000, 3000)
			if tt.wantClientErr {
				assert.ErrorIs(t, err, apperrors.ErrClientInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestOutputFormat(t *testing.T) {
	assert.Equal(t, models.FormatWebP, outputFormat(models.FormatWebP, models.FormatPNG))
	assert.Equal(t, models.FormatPNG, outputFormat(models.FormatOriginal, models.FormatPNG))
	assert.Equal(t, models.FormatGIF, outputFormat("", models.FormatGIF))
	assert.Equal(t, models.FormatJPEG, outputFormat(models.FormatOriginal, models.Format("bmp")))
}
