package fcm

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

// NormalizePrivateKey prepares a service-account private key for JWT
// signing. Keys arriving through environment variables commonly carry
// escaped newlines, and older service accounts export PKCS#1
// ("BEGIN RSA PRIVATE KEY") instead of PKCS#8 ("BEGIN PRIVATE KEY").
// The signer only accepts PKCS#8, so PKCS#1 input is re-encoded. This is
// a pure format transform; the key material is unchanged.
func NormalizePrivateKey(raw string) (string, error) {
	keyPEM := strings.ReplaceAll(raw, `\n`, "\n")
	keyPEM = strings.TrimSpace(keyPEM) + "\n"

	block, _ := pem.Decode([]byte(keyPEM))
	if block == nil {
		return "", fmt.Errorf("private key is not valid PEM")
	}

	switch block.Type {
	case "PRIVATE KEY":
		return keyPEM, nil

	case "RSA PRIVATE KEY":
		rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return "", fmt.Errorf("failed to parse PKCS#1 private key: %w", err)
		}
		pkcs8, err := x509.MarshalPKCS8PrivateKey(rsaKey)
		if err != nil {
			return "", fmt.Errorf("failed to convert private key to PKCS#8: %w", err)
		}
		converted := pem.EncodeToMemory(&pem.Block{
			Type:  "PRIVATE KEY",
			Bytes: pkcs8,
		})
		return string(converted), nil

	default:
		return "", fmt.Errorf("unsupported private key PEM type %q", block.Type)
	}
}
