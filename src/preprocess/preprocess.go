// Package preprocess simplifies captured images before text recognition.
package preprocess

import (
	"fmt"
	"image"
	"log"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Suffix is inserted before the extension of the derived grayscale file.
const Suffix = "_simplified"

// DerivedPath maps an original capture path to its grayscale sibling:
// screenshot_1.png -> screenshot_1_simplified.png.
func DerivedPath(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".png"
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + Suffix + ext
}

// ToGray reduces img to a single luminance channel. Images that already are
// single-channel are returned unchanged.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	return luminance(effect.Grayscale(img))
}

// luminance copies one channel of bild's RGBA output, where R=G=B, into a
// single-channel image.
func luminance(rgba *image.RGBA) *image.Gray {
	b := rgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return gray
}

// Grayscale loads the image at path, converts it to one luminance channel and
// saves it to DerivedPath(path). The original file is left untouched.
func Grayscale(path string) (string, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to load image %s: %w", path, err)
	}

	gray := ToGray(src)

	out := DerivedPath(path)
	if err := imaging.Save(gray, out); err != nil {
		return "", fmt.Errorf("failed to save grayscale image %s: %w", out, err)
	}
	log.Printf("Grayscale derivative written: %s (%dx%d)", out, gray.Bounds().Dx(), gray.Bounds().Dy())
	return out, nil
}
