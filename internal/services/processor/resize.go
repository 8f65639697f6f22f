package processor

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/resizo/internal/apperrors"
	"github.com/phambaophuc/resizo/internal/models"
)

// MaxDimension caps either side of the output.
const MaxDimension = models.MaxDimension

// resolveTarget turns the request into target dimensions. A zero side means
// "derive from the aspect ratio"; both zero means no resize.
func resolveTarget(cfg models.TransformConfig, srcWidth, srcHeight int) (int, int, error) {
	var width, height int

	switch {
	case cfg.HasDimensions():
		if cfg.Width != nil && *cfg.Width > 0 {
			width = *cfg.Width
		}
		if cfg.Height != nil && *cfg.Height > 0 {
			height = *cfg.Height
		}
	case cfg.Scale != nil:
		scale := *cfg.Scale
		if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
			return 0, 0, apperrors.ClientInput("Invalid scale parameter provided.")
		}
		scaledWidth := math.Round(float64(srcWidth) * scale / 100)
		scaledHeight := math.Round(float64(srcHeight) * scale / 100)
		if scaledWidth > MaxDimension || scaledHeight > MaxDimension {
			return 0, 0, errTooLarge()
		}
		width = max(1, int(scaledWidth))
		height = max(1, int(scaledHeight))
	}

	if width > MaxDimension || height > MaxDimension {
		return 0, 0, errTooLarge()
	}

	return width, height, nil
}

func errTooLarge() error {
	return apperrors.ClientInput(fmt.Sprintf("Requested dimensions exceed the maximum of %dpx per side.", MaxDimension))
}

// resizeImage applies the target using Lanczos resampling. When both sides
// are given the image is scaled to cover the box and centre-cropped, so the
// output is exactly width x height without distortion.
func (p *ImageProcessor) resizeImage(img image.Image, width, height int) image.Image {
	bounds := img.Bounds()

	switch {
	case width == 0 && height == 0:
		return img
	case width > 0 && height > 0:
		if width == bounds.Dx() && height == bounds.Dy() {
			return img
		}
		return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	default:
		return imaging.Resize(img, width, height, imaging.Lanczos)
	}
}
