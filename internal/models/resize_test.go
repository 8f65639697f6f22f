package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatOriginal, false},
		{"original", FormatOriginal, false},
		{"JPG", FormatJPEG, false},
		{"jpeg", FormatJPEG, false},
		{"png", FormatPNG, false},
		{" webp ", FormatWebP, false},
		{"tiff", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatExtension(t *testing.T) {
	assert.Equal(t, "jpg", FormatJPEG.Extension())
	assert.Equal(t, "png", FormatPNG.Extension())
	assert.Equal(t, "webp", FormatWebP.Extension())
	assert.Equal(t, "image/jpeg", FormatJPEG.ContentType())
}

func TestBulkConfigAcceptsNumbersAndStrings(t *testing.T) {
	var cfg BulkConfig
	require.NoError(t, json.Unmarshal([]byte(`{"width":"800","height":600.9,"format":"png"}`), &cfg))

	tc, err := cfg.ToTransformConfig()
	require.NoError(t, err)

	require.NotNil(t, tc.Width)
	require.NotNil(t, tc.Height)
	assert.Equal(t, 800, *tc.Width)
	assert.Equal(t, 600, *tc.Height)
	assert.Nil(t, tc.Scale)
	assert.Equal(t, FormatPNG, tc.Format)
}

func TestBulkConfigEmptyValuesStayUnset(t *testing.T) {
	var cfg BulkConfig
	require.NoError(t, json.Unmarshal([]byte(`{"width":"","height":null}`), &cfg))

	tc, err := cfg.ToTransformConfig()
	require.NoError(t, err)

	assert.False(t, tc.HasDimensions())
	assert.Equal(t, FormatOriginal, tc.Format)
}

func TestBulkConfigRejectsGarbageNumber(t *testing.T) {
	var cfg BulkConfig
	assert.Error(t, json.Unmarshal([]byte(`{"width":"wide"}`), &cfg))
}

func TestBulkConfigRejectsOversizedDimensions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"huge width", `{"width":1e300}`},
		{"huge height string", `{"height":"1e300"}`},
		{"just over", `{"width":16385}`},
		{"not a number", `{"width":"NaN"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg BulkConfig
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &cfg))

			_, err := cfg.ToTransformConfig()
			assert.Error(t, err)
		})
	}
}

func TestBulkConfigClampsNegativeDimensions(t *testing.T) {
	var cfg BulkConfig
	require.NoError(t, json.Unmarshal([]byte(`{"width":-1e300,"height":16384}`), &cfg))

	tc, err := cfg.ToTransformConfig()
	require.NoError(t, err)
	require.NotNil(t, tc.Width)
	assert.Equal(t, 0, *tc.Width)
	assert.Equal(t, MaxDimension, *tc.Height)
}
