package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName           = "snip-ocr"
	ConfigPathEnvVar  = "SNIP_OCR_CONFIG"
	CaptureDirEnvVar  = "CAPTURE_DIR"
	DefaultLanguage   = "eng"
	BackendWindow     = "window"
	BackendHook       = "hook"
	defaultAlpha      = 0.3
	defaultSettleMs   = 200
	defaultFlushMs    = 0
	defaultGuardPort  = 49500
	captureDirSubpath = "screenshots"
)

type LoadOptions struct {
	CaptureDirOverride string
	LanguageOverride   string
}

type Config struct {
	CaptureDir        string
	DataDir           string
	Language          string
	TessdataPrefix    string
	OverlayBackend    string
	OverlayAlpha      float64
	OverlaySettle     time.Duration
	FlushSettle       time.Duration
	SortFragments     bool
	EnableFileLogging bool
	ShowErrorDialog   bool
	// GuardPort is the loopback port that marks a running overlay; 0 disables the guard.
	GuardPort int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Configuration sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, SNIP_OCR_CONFIG as a path to a config file
	// Variables already present in the environment win over file values.
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	dataDir := filepath.Join(userDataDir(), AppName)

	captureDir := getEnvWithDefault(CaptureDirEnvVar, filepath.Join(dataDir, captureDirSubpath))
	if override := strings.TrimSpace(opts.CaptureDirOverride); override != "" {
		captureDir = override
	}

	language := getEnvWithDefault("OCR_LANGUAGE", DefaultLanguage)
	if override := strings.TrimSpace(opts.LanguageOverride); override != "" {
		language = override
	}

	cfg := &Config{
		CaptureDir:        expandHome(captureDir),
		DataDir:           dataDir,
		Language:          language,
		TessdataPrefix:    strings.TrimSpace(os.Getenv("TESSDATA_PREFIX")),
		OverlayBackend:    resolveBackend(os.Getenv("OVERLAY_BACKEND")),
		OverlayAlpha:      getEnvFloat("OVERLAY_ALPHA", defaultAlpha, 0, 1),
		OverlaySettle:     getEnvMillis("OVERLAY_SETTLE_MS", defaultSettleMs),
		FlushSettle:       getEnvMillis("FLUSH_SETTLE_MS", defaultFlushMs),
		SortFragments:     getEnvBool("SORT_FRAGMENTS"),
		EnableFileLogging: getEnvBool("ENABLE_FILE_LOGGING"),
		ShowErrorDialog:   getEnvBool("SHOW_ERROR_DIALOG"),
		GuardPort:         getEnvPort("GUARD_PORT", defaultGuardPort),
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(ConfigPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

// userDataDir picks the per-user data directory for the current platform.
func userDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg
	}
	if runtime.GOOS == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return local
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support")
	}
	return filepath.Join(home, ".local", "share")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func resolveBackend(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case BackendHook, "gohook":
		return BackendHook
	default:
		return BackendWindow
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func getEnvMillis(key string, defaultMs int) time.Duration {
	ms := defaultMs
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			ms = n
		}
	}
	return time.Duration(ms) * time.Millisecond
}

func getEnvFloat(key string, defaultValue, min, max float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < min || f > max {
		return defaultValue
	}
	return f
}

// getEnvPort accepts 0 (disabled) or a non-privileged port.
func getEnvPort(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 || n > 65535 || (n > 0 && n < 1024) {
		return defaultValue
	}
	return n
}
