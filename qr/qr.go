// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package qr

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/skip2/go-qrcode"
)

// URLPrefix is where the router serves generated images from
const URLPrefix = "/static/qrcodes/"

const imageSize = 256

var imageName = regexp.MustCompile(`^[A-Z0-9]{4}\.png$`)

// Encoder writes one PNG per check-in code into a directory
type Encoder struct {
	dir     string
	baseURL string
}

func NewEncoder(dir, baseURL string) *Encoder {
	return &Encoder{dir: dir, baseURL: baseURL}
}

// CheckInURL is the content encoded into the QR image
func (e *Encoder) CheckInURL(code string) string {
	return e.baseURL + "/checkin/" + code
}

// URL is the public path of the image for code
func (e *Encoder) URL(code string) string {
	return URLPrefix + code + ".png"
}

func (e *Encoder) path(code string) string {
	return filepath.Join(e.dir, code+".png")
}

// Generate encodes the check-in URL for code and returns the image URL
func (e *Encoder) Generate(code string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create QR directory: %w", err)
	}

	path := e.path(code)
	if err := qrcode.WriteFile(e.CheckInURL(code), qrcode.Medium, imageSize, path); err != nil {
		return "", fmt.Errorf("failed to write QR image: %w", err)
	}

	if info, err := os.Stat(path); err == nil {
		slog.Info("qr image written", "code", code, "size", humanize.Bytes(uint64(info.Size())))
	}

	return e.URL(code), nil
}

// Remove deletes the image for code. A missing file is not an error.
func (e *Encoder) Remove(code string) error {
	err := os.Remove(e.path(code))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove QR image: %w", err)
	}
	return nil
}

// Dir is the directory images are written to
func (e *Encoder) Dir() string {
	return e.dir
}

// FileHandler serves images from dir under URLPrefix. Only image names
// resolve; the directory listing is a 404.
func FileHandler(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, URLPrefix)
		if !imageName.MatchString(name) {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, name))
	})
}
