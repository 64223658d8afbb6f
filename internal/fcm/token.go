package fcm

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	minTokenLength = 100
	maxTokenLength = 200
)

var tokenCharPattern = regexp.MustCompile(`^[A-Za-z0-9:_-]+$`)

// Known-bad sentinel substrings that show up when a client registers a
// placeholder instead of a real token.
var tokenSentinels = []string{"null", "undefined", "test_token"}

// ValidateDeviceToken format-checks a device token before any network
// call is made on its behalf.
func ValidateDeviceToken(token string) error {
	if len(token) < minTokenLength || len(token) > maxTokenLength {
		return fmt.Errorf("token length %d outside valid range %d-%d", len(token), minTokenLength, maxTokenLength)
	}
	if !tokenCharPattern.MatchString(token) {
		return fmt.Errorf("token contains invalid characters")
	}
	for _, s := range tokenSentinels {
		if strings.Contains(token, s) {
			return fmt.Errorf("token contains known-bad value %q", s)
		}
	}
	return nil
}

// RedactToken shortens a device token for logs and per-token results.
func RedactToken(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}
