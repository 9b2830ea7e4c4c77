package ocr

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes text with a CPU tesseract engine for a single language.
type Tesseract struct {
	Language       string
	TessdataPrefix string
}

var _ Recognizer = (*Tesseract)(nil)

// NewTesseract returns a recognizer for language (a tesseract code such as "eng").
func NewTesseract(language, tessdataPrefix string) *Tesseract {
	return &Tesseract{Language: language, TessdataPrefix: tessdataPrefix}
}

// Recognize initializes a fresh engine and reads imagePath line by line.
// Engine setup and inference fail together; no fragment is dropped for low
// confidence.
func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(t.Language); err != nil {
		return nil, fmt.Errorf("failed to set language %q: %w", t.Language, err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	result := make(Result, 0, len(boxes))
	for _, box := range boxes {
		result = append(result, Fragment{
			Bounds:     box.Box,
			Text:       strings.TrimSpace(box.Word),
			Confidence: float64(box.Confidence) / 100.0,
		})
	}
	log.Printf("Tesseract (%s) returned %d fragments for %s", t.Language, len(result), imagePath)
	return result, nil
}
