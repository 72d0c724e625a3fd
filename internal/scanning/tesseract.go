package scanning

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/zombor/travel-receipt/internal/extraction"
)

// minOCRHeight is the height below which images are upscaled before OCR.
const minOCRHeight = 1200

// Tesseract implements the Recognizer interface with a local Tesseract install.
type Tesseract struct {
	languages []string
}

// NewTesseract creates a Tesseract Recognizer. The default languages are
// Traditional Chinese and English.
func NewTesseract(languages ...string) *Tesseract {
	var langs []string
	for _, l := range languages {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		langs = []string{"chi_tra", "eng"}
	}
	return &Tesseract{languages: langs}
}

// Languages returns the configured Tesseract language packs.
func (t *Tesseract) Languages() []string {
	return t.languages
}

// prepareForOCR converts to grayscale, upscales small images and boosts contrast.
func prepareForOCR(img image.Image) *image.NRGBA {
	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < minOCRHeight {
		gray = imaging.Resize(gray, 0, minOCRHeight, imaging.Lanczos)
	}
	gray = imaging.AdjustContrast(gray, 30)
	return imaging.Sharpen(gray, 1.0)
}

// Recognize reads every text line with its position.
func (t *Tesseract) Recognize(ctx context.Context, imageData []byte, contentType string) ([]extraction.Fragment, error) {
	img, err := decodeImage(imageData, normalizeMIME(contentType))
	if err != nil {
		return nil, err
	}
	prepared := prepareForOCR(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, prepared, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding prepared image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// gosseract clients are not safe for concurrent use
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return nil, fmt.Errorf("setting tesseract languages: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("loading image into tesseract: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognizing text lines: %w", err)
	}

	return boxesToFragments(boxes, prepared.Bounds().Dy()), nil
}

// boxesToFragments flips Tesseract's top-left origin so y grows upward.
func boxesToFragments(boxes []gosseract.BoundingBox, height int) []extraction.Fragment {
	if height <= 0 {
		height = 1
	}
	fragments := make([]extraction.Fragment, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		y := float64(height-b.Box.Min.Y) / float64(height)
		fragments = append(fragments, extraction.Fragment{Text: text, Y: y})
	}
	return fragments
}

// Close is a no-op; a client is created per call.
func (t *Tesseract) Close() error {
	return nil
}
