package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance bounds how old a signed timestamp may be. Matches the
// provider's own recommendation.
const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrInvalidHeader    = errors.New("invalid signature header format")
	ErrTimestampTooOld  = errors.New("signature timestamp outside tolerance")
	ErrNoValidSignature = errors.New("no valid signature found")
)

// signedHeader is the parsed form of a Stripe-Signature header:
// "t=<unix>,v1=<hex hmac>[,v1=...]".
type signedHeader struct {
	timestamp  time.Time
	signatures [][]byte
}

func parseSignatureHeader(header string) (*signedHeader, error) {
	if header == "" {
		return nil, ErrMissingSignature
	}

	sh := &signedHeader{}
	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return nil, ErrInvalidHeader
		}

		switch parts[0] {
		case "t":
			ts, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return nil, ErrInvalidHeader
			}
			sh.timestamp = time.Unix(ts, 0)
		case "v1":
			sig, err := hex.DecodeString(parts[1])
			if err != nil {
				continue // ignore malformed candidates, another v1 may match
			}
			sh.signatures = append(sh.signatures, sig)
		default:
			// v0 and unknown schemes are ignored
		}
	}

	if sh.timestamp.IsZero() || len(sh.signatures) == 0 {
		return nil, ErrInvalidHeader
	}
	return sh, nil
}

func computeSignature(timestamp time.Time, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp.Unix(), payload)
	return mac.Sum(nil)
}

// VerifySignature checks a raw webhook body against its signature header
// and the shared signing secret. Comparison is constant-time.
func VerifySignature(payload []byte, header, secret string) error {
	return verifySignatureAt(payload, header, secret, time.Now(), DefaultTolerance)
}

func verifySignatureAt(payload []byte, header, secret string, now time.Time, tolerance time.Duration) error {
	sh, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	if now.Sub(sh.timestamp) > tolerance {
		return ErrTimestampTooOld
	}

	expected := computeSignature(sh.timestamp, payload, secret)
	for _, sig := range sh.signatures {
		if subtle.ConstantTimeCompare(expected, sig) == 1 {
			return nil
		}
	}
	return ErrNoValidSignature
}
