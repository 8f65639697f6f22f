package processor

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/resizo/internal/apperrors"
	"github.com/phambaophuc/resizo/internal/models"
	_ "golang.org/x/image/webp"
)

const DefaultQuality = 85

type ImageProcessor struct {
	quality int
}

func NewImageProcessor(quality int) *ImageProcessor {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &ImageProcessor{quality: quality}
}

// Transform decodes data, applies cfg and re-encodes the result. The output
// never carries the source metadata.
func (p *ImageProcessor) Transform(ctx context.Context, data []byte, cfg models.TransformConfig) (*models.TransformResult, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	// Only the header is needed to learn the source format.
	_, sourceName, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Processing("failed to decode image", err)
	}
	sourceFormat := formatFromName(sourceName)

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperrors.Processing("failed to decode image", err)
	}
	bounds := img.Bounds()

	width, height, err := resolveTarget(cfg, bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	processed := p.resizeImage(img, width, height)
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	format := outputFormat(cfg.Format, sourceFormat)
	buffer := &bytes.Buffer{}
	if err := p.encodeImage(buffer, processed, format); err != nil {
		return nil, apperrors.Processing("failed to encode image", err)
	}
	if buffer.Len() == 0 {
		return nil, apperrors.Processing("encoder produced an empty image", nil)
	}

	outWidth, outHeight, outFormat, err := inspect(buffer.Bytes())
	if err != nil {
		return nil, apperrors.Processing("failed to inspect encoded image", err)
	}

	return &models.TransformResult{
		Data:         buffer.Bytes(),
		Width:        outWidth,
		Height:       outHeight,
		Format:       outFormat,
		SourceWidth:  bounds.Dx(),
		SourceHeight: bounds.Dy(),
		SourceFormat: sourceFormat,
	}, nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.Processing("image processing timed out", err)
		}
		return apperrors.Processing("image processing cancelled", err)
	}
	return nil
}
