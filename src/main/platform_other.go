//go:build !windows

package main

import (
	"log"

	"snip-ocr/src/screenshot"
)

func enableDPIAwareness() {}

func logDisplayConfiguration() {
	bounds, err := screenshot.GetDisplayBounds()
	if err != nil {
		log.Printf("DISPLAY: %v", err)
		return
	}
	log.Printf("DISPLAY: primary=%v", bounds)
}
