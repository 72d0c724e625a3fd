package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// transcribePrompt is shared by the LLM recognizers. The engine does the field
// extraction; the model only reads lines.
const transcribePrompt = `You are reading a photographed receipt or invoice. It may mix Traditional Chinese, Simplified Chinese and English.

Transcribe every line of text exactly as printed. Do not translate, correct, summarise or reorder characters within a line. Keep digits, punctuation and currency symbols as they appear.

For each line also report its vertical position "y" as a number between 0 and 1, where 0 is the bottom edge of the image and 1 is the top edge.

Return ONLY valid JSON in this exact format:
{
  "lines": [
    {"text": "line text", "y": 0.95}
  ]
}

Important:
- One entry per printed line
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// normalizeMIME lowercases and trims a content type, defaulting to JPEG.
func normalizeMIME(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" {
		return "image/jpeg"
	}
	return mimeType
}

// decodeImage decodes PDFs (first page), HEIC/HEIF and the standard formats.
func decodeImage(data []byte, mimeType string) (image.Image, error) {
	switch {
	case mimeType == "application/pdf":
		doc, err := fitz.NewFromMemory(data)
		if err != nil {
			return nil, fmt.Errorf("opening PDF: %w", err)
		}
		defer doc.Close()

		// Receipts are single page
		img, err := doc.Image(0)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page: %w", err)
		}
		return img, nil
	case isHEICFormat(data) || isHEICMimeType(mimeType):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding image (supported: JPEG, PNG, GIF, HEIC, HEIF, PDF): %w", err)
		}
		return img, nil
	}
}

// isHEICFormat checks the ftyp box brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// toPNG returns PNG bytes for any supported input. PNG input is passed through.
func toPNG(data []byte, contentType string) ([]byte, error) {
	mimeType := normalizeMIME(contentType)
	if mimeType == "image/png" && !isHEICFormat(data) {
		return data, nil
	}

	img, err := decodeImage(data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("converting %s to PNG: %w", mimeType, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
