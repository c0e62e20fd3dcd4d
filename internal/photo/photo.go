// Package photo prepares citizen-submitted photos for classification and
// storage: EXIF location/date extraction and JPEG downscaling so images stay
// within the model's inline payload budget.
package photo

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// Metadata holds the EXIF fields useful for pre-filling an issue report.
type Metadata struct {
	// GPS coordinates (converted from EXIF Rational format to float64)
	Latitude  float64
	Longitude float64
	HasGPS    bool

	DateTaken time.Time
	HasDate   bool

	CameraMake  string
	CameraModel string
}

// ExtractMetadata extracts EXIF metadata from an in-memory image. The
// imagemeta library auto-detects the container format (JPEG, HEIC, TIFF)
// from the file headers.
func ExtractMetadata(data []byte) (*Metadata, error) {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	meta := &Metadata{}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		meta.Latitude = gps.Latitude()
		meta.Longitude = gps.Longitude()
		meta.HasGPS = true
	}

	// Date fallback chain: DateTimeOriginal, then CreateDate, then ModifyDate.
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		meta.DateTaken = exifData.DateTimeOriginal()
		meta.HasDate = true
	case !exifData.CreateDate().IsZero():
		meta.DateTaken = exifData.CreateDate()
		meta.HasDate = true
	case !exifData.ModifyDate().IsZero():
		meta.DateTaken = exifData.ModifyDate()
		meta.HasDate = true
	}

	meta.CameraMake = exifData.Make
	meta.CameraModel = exifData.Model

	log.Debug().
		Bool("has_gps", meta.HasGPS).
		Bool("has_date", meta.HasDate).
		Msg("Photo metadata extraction complete")

	return meta, nil
}

// ScaleJPEG re-encodes a JPEG so neither dimension exceeds maxDimension,
// preserving aspect ratio. Images already within bounds are returned
// unchanged.
func ScaleJPEG(data []byte, maxDimension int) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()

	if origWidth <= maxDimension && origHeight <= maxDimension {
		return data, nil
	}

	newWidth, newHeight := scaledDimensions(origWidth, origHeight, maxDimension)

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode scaled image: %w", err)
	}

	log.Debug().
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("output_size", buf.Len()).
		Msg("Photo downscaled")

	return buf.Bytes(), nil
}

// scaledDimensions calculates new dimensions maintaining aspect ratio.
func scaledDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		newWidth := maxDimension
		newHeight := int(float64(height) * float64(maxDimension) / float64(width))
		return newWidth, newHeight
	}

	newHeight := maxDimension
	newWidth := int(float64(width) * float64(maxDimension) / float64(height))
	return newWidth, newHeight
}
