package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxDimension caps either side of a requested output, in pixels.
const MaxDimension = 16384

type Format string

const (
	FormatJPEG     Format = "jpeg"
	FormatPNG      Format = "png"
	FormatWebP     Format = "webp"
	FormatGIF      Format = "gif"
	FormatOriginal Format = "original"
)

// ParseFormat normalizes a user supplied format name. Empty, "original" and
// "keep" all select the source format.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "original", "keep":
		return FormatOriginal, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported output format %q: must be one of jpeg, png, webp", value)
	}
}

// Extension is the file extension used in download and archive names.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

func (f Format) ContentType() string {
	return "image/" + string(f)
}

// UploadedFile is one file taken from a multipart request.
type UploadedFile struct {
	Data        []byte
	ContentType string
	Filename    string
	Size        int64
}

// TransformConfig selects the output geometry and encoding. Width/Height win
// over Scale when either is present.
type TransformConfig struct {
	Width  *int
	Height *int
	Scale  *float64
	Format Format
}

// HasDimensions reports whether an explicit width or height was requested.
func (c TransformConfig) HasDimensions() bool {
	return c.Width != nil || c.Height != nil
}

type TransformResult struct {
	Data         []byte
	Width        int
	Height       int
	Format       Format
	SourceWidth  int
	SourceHeight int
	SourceFormat Format
}

// BulkItem is one indexed (file, config) pair of a bulk request. A nil Config
// means no resize and keep the source format.
type BulkItem struct {
	Index  int
	File   UploadedFile
	Config *TransformConfig
}

// BulkConfig is the JSON document sent as config_<i>.
type BulkConfig struct {
	Width  OptionalNumber `json:"width"`
	Height OptionalNumber `json:"height"`
	Scale  OptionalNumber `json:"scale"`
	Format string         `json:"format" validate:"omitempty,oneof=jpeg jpg png webp original keep"`
}

// ToTransformConfig converts the wire document into a TransformConfig.
func (b BulkConfig) ToTransformConfig() (TransformConfig, error) {
	format, err := ParseFormat(b.Format)
	if err != nil {
		return TransformConfig{}, err
	}

	cfg := TransformConfig{Format: format}
	if b.Width.Set {
		if cfg.Width, err = dimension(b.Width.Value, "width"); err != nil {
			return TransformConfig{}, err
		}
	}
	if b.Height.Set {
		if cfg.Height, err = dimension(b.Height.Value, "height"); err != nil {
			return TransformConfig{}, err
		}
	}
	if b.Scale.Set {
		s := b.Scale.Value
		cfg.Scale = &s
	}
	return cfg, nil
}

// dimension truncates v to whole pixels. Non-positive values become 0 and
// are discarded later.
func dimension(v float64, name string) (*int, error) {
	switch {
	case math.IsNaN(v):
		return nil, fmt.Errorf("%s is not a number", name)
	case v > MaxDimension:
		return nil, fmt.Errorf("%s exceeds the maximum of %dpx", name, MaxDimension)
	case v < 0:
		v = 0
	}
	d := int(math.Trunc(v))
	return &d, nil
}

// OptionalNumber accepts a JSON number or a numeric string. Null and the
// empty string leave it unset.
type OptionalNumber struct {
	Value float64
	Set   bool
}

func (n *OptionalNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = OptionalNumber{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = OptionalNumber{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*n = OptionalNumber{Value: v, Set: true}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = OptionalNumber{Value: v, Set: true}
	return nil
}
