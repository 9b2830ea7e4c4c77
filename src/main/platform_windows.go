//go:build windows

package main

import (
	"log"

	"golang.org/x/sys/windows"
)

const processPerMonitorDPIAware = 2

// enableDPIAwareness makes overlay coordinates match physical pixels on
// scaled displays.
func enableDPIAwareness() {
	shcore := windows.NewLazySystemDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	if err := setProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret == 0 {
			log.Printf("DPI: per-monitor awareness enabled")
		} else {
			log.Printf("DPI: SetProcessDpiAwareness failed with code %d", ret)
		}
		return
	}

	user32 := windows.NewLazySystemDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err != nil {
		log.Printf("DPI: no awareness API available")
		return
	}
	if ret, _, _ := setProcessDPIAware.Call(); ret != 0 {
		log.Printf("DPI: system awareness enabled (fallback)")
	}
}

func logDisplayConfiguration() {
	getSystemMetrics := windows.NewLazySystemDLL("user32.dll").NewProc("GetSystemMetrics")
	metric := func(index int) int {
		ret, _, _ := getSystemMetrics.Call(uintptr(index))
		return int(int32(ret))
	}

	const (
		smCXScreen        = 0
		smCYScreen        = 1
		smXVirtualScreen  = 76
		smYVirtualScreen  = 77
		smCXVirtualScreen = 78
		smCYVirtualScreen = 79
		smCMonitors       = 80
	)

	log.Printf("DISPLAY: monitors=%d primary=%dx%d virtual=(%d,%d %dx%d)",
		metric(smCMonitors), metric(smCXScreen), metric(smCYScreen),
		metric(smXVirtualScreen), metric(smYVirtualScreen),
		metric(smCXVirtualScreen), metric(smCYVirtualScreen))
}
