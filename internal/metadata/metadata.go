// Package metadata builds the client environment descriptor attached to
// every chatbot session and message request.
package metadata

import (
	"os"
	"runtime"
	"strings"
	"time"
)

// Client identifies this widget implementation to the backend.
const Client = "lumacart-chatwidget"

const fallbackLocale = "en-US"

// Meta is the environment fingerprint sent with session requests
type Meta struct {
	Timezone string `json:"timezone"`
	Locale   string `json:"locale"`
	Platform string `json:"platform"`
	Browser  string `json:"browser"`
}

// Snapshot inspects the execution environment and returns a descriptor.
// It never fails; unavailable facilities degrade to generic values.
func Snapshot() Meta {
	return Meta{
		Timezone: Timezone(),
		Locale:   locale(),
		Platform: runtime.GOOS,
		Browser:  Client,
	}
}

// Timezone returns the local zone name, falling back to UTC
func Timezone() string {
	zone, _ := time.Now().Zone()
	if zone == "" {
		return "UTC"
	}
	return zone
}

func locale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(key)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		// "en_US.UTF-8" -> "en-US"
		if i := strings.IndexByte(v, '.'); i >= 0 {
			v = v[:i]
		}
		return strings.ReplaceAll(v, "_", "-")
	}
	return fallbackLocale
}
