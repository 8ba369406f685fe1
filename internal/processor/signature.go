package processor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sign computes the hex HMAC-SHA256 of message under the shared secret.
func Sign(secret, message []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)

	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a hex HMAC-SHA256 signature in constant time.
func VerifySignature(secret, message []byte, signature string) error {
	if signature == "" {
		return fmt.Errorf("missing callback signature")
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("malformed callback signature")
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(message)

	if !hmac.Equal(got, mac.Sum(nil)) {
		return fmt.Errorf("callback signature mismatch")
	}

	return nil
}
