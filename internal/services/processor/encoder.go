package processor

import (
	"bytes"
	"image"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	"github.com/phambaophuc/resizo/internal/models"
)

// None of these encoders write EXIF, ICC or XMP data, so re-encoding from the
// decoded pixels is what strips metadata.
func (p *ImageProcessor) encodeImage(w io.Writer, img image.Image, format models.Format) error {
	switch format {
	case models.FormatPNG:
		return imaging.Encode(w, img, imaging.PNG)
	case models.FormatWebP:
		return nativewebp.Encode(w, img, nil)
	case models.FormatGIF:
		return imaging.Encode(w, img, imaging.GIF)
	default:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(p.quality))
	}
}

// outputFormat picks the encoding: the requested one, else the source
// format, else JPEG.
func outputFormat(requested, source models.Format) models.Format {
	switch requested {
	case models.FormatJPEG, models.FormatPNG, models.FormatWebP:
		return requested
	}
	switch source {
	case models.FormatJPEG, models.FormatPNG, models.FormatWebP, models.FormatGIF:
		return source
	}
	return models.FormatJPEG
}

// inspect reads back what the encoder actually produced.
func inspect(data []byte) (int, int, models.Format, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", err
	}
	return cfg.Width, cfg.Height, formatFromName(name), nil
}

func formatFromName(name string) models.Format {
	switch name {
	case "jpeg", "jpg":
		return models.FormatJPEG
	case "png":
		return models.FormatPNG
	case "webp":
		return models.FormatWebP
	case "gif":
		return models.FormatGIF
	default:
		return models.Format(name)
	}
}
