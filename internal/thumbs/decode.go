package thumbs

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"imagepick/internal/logging"
	"imagepick/internal/metrics"

	"github.com/disintegration/imaging"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// decodeThumbnail runs the three-path decode chain: platform decoders via
// imaging, then a subsampled standard decode of the raw bytes, then the
// software AVIF/HEIF decoder. The first success wins.
func decodeThumbnail(path string, size int) (image.Image, error) {
	img, err := decodeNative(path, size)
	if err == nil {
		metrics.ThumbDecodeTotal.WithLabelValues("native", "success").Inc()
		return img, nil
	}
	metrics.ThumbDecodeTotal.WithLabelValues("native", "error").Inc()
	logging.Debug("native decode failed for %s: %v", path, err)

	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("reading %s: %w", path, readErr)
	}

	img, err = decodeSampled(raw, size)
	if err == nil {
		metrics.ThumbDecodeTotal.WithLabelValues("sampled", "success").Inc()
		return img, nil
	}
	metrics.ThumbDecodeTotal.WithLabelValues("sampled", "error").Inc()
	logging.Debug("sampled decode failed for %s: %v", path, err)

	img, err = decodeSoftware(raw, size)
	if err == nil {
		metrics.ThumbDecodeTotal.WithLabelValues("software", "success").Inc()
		return img, nil
	}
	metrics.ThumbDecodeTotal.WithLabelValues("software", "error").Inc()

	return nil, fmt.Errorf("all thumbnail decode paths failed for %s: %w", path, err)
}

// decodeNative uses the registered platform decoders with auto-orientation
// and fits the result within the target size.
func decodeNative(path string, size int) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	return imaging.Fit(img, size, size, imaging.Lanczos), nil
}

// decodeSampled decodes raw bytes with the standard decoders, downscaling
// by the computed subsample factor. The result keeps both dimensions at or
// above the target, matching a decode-time subsample.
func decodeSampled(raw []byte, size int) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid bounds %dx%d", cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	factor := sampleFactor(cfg.Width, cfg.Height, size)
	if factor == 1 {
		return img, nil
	}
	return imaging.Resize(img, cfg.Width/factor, cfg.Height/factor, imaging.Lanczos), nil
}

// sampleFactor returns the largest power-of-two subsampling that keeps
// both dimensions at or above the target size.
func sampleFactor(width, height, target int) int {
	factor := 1
	if target <= 0 {
		return factor
	}
	for width/(factor*2) >= target && height/(factor*2) >= target {
		factor *= 2
	}
	return factor
}
