// Package manifest turns the opaque manifest blobs returned by the track
// endpoint into a playable URL.
package manifest

import (
	"encoding/base64"
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrDecode = errors.New("manifest: invalid base64")

var streamURLPattern = regexp.MustCompile(`https?://[^\s"<>]+(?:\.flac|\.mp4|\.m4a|\?token=)[^\s"<>]*`)

// EnforceHTTPS rewrites a leading http: scheme to https:.
func EnforceHTTPS(url string) string {
	if strings.HasPrefix(url, "http:") {
		return "https:" + strings.TrimPrefix(url, "http:")
	}
	return url
}

// Extract finds a stream URL in decoded manifest text. JSON manifests yield
// their first "urls" entry or their "url" field; anything else is scanned for
// the first media-looking URL.
func Extract(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		if u, ok := fromJSON(text); ok {
			return u, true
		}
	}
	match := streamURLPattern.FindString(text)
	if match == "" {
		return "", false
	}
	return EnforceHTTPS(strings.ReplaceAll(match, "&amp;", "&")), true
}

func fromJSON(text string) (string, bool) {
	if !gjson.Valid(text) {
		return "", false
	}
	root := gjson.Parse(text)
	if urls := root.Get("urls"); urls.IsArray() {
		if first := urls.Get("0"); first.Exists() && first.String() != "" {
			return EnforceHTTPS(first.String()), true
		}
	}
	if u := root.Get("url"); u.Type == gjson.String && u.Str != "" {
		return EnforceHTTPS(u.Str), true
	}
	return "", false
}

// Decode reverses the URL-safe base64 encoding of a manifest. Missing padding
// is tolerated.
func Decode(manifest string) (string, error) {
	s := strings.TrimSpace(manifest)
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if s == "" {
		return "", ErrDecode
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return string(b), nil
	}
	b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", ErrDecode
	}
	return string(b), nil
}

// IsSegmented reports a DASH manifest that only describes segments. Those
// cannot be played from a single URL.
func IsSegmented(text string) bool {
	return strings.Contains(text, "SegmentTemplate") && !strings.Contains(text, "BaseURL")
}

// Resolve decodes a base64 manifest and extracts its URL. When the manifest
// is not valid base64 it is scanned as plain text instead.
func Resolve(manifest string) (string, bool) {
	decoded, err := Decode(manifest)
	if err != nil {
		return Extract(manifest)
	}
	if IsSegmented(decoded) {
		return "", false
	}
	return Extract(decoded)
}
