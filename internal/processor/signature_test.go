package processor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwabenaio/sika/internal/processor"
)

func TestVerifySignature(t *testing.T) {
	secret := []byte("shared-secret")
	body := []byte(`{"id":"inv-1","btc_paid":"0.015"}`)

	t.Run("RoundTrip", func(t *testing.T) {
		sig := processor.Sign(secret, body)
		require.NoError(t, processor.VerifySignature(secret, body, sig))
	})

	t.Run("TamperedBody", func(t *testing.T) {
		sig := processor.Sign(secret, body)
		assert.Error(t, processor.VerifySignature(secret, []byte(`{"id":"inv-1","btc_paid":"9.999"}`), sig))
	})

	t.Run("WrongSecret", func(t *testing.T) {
		sig := processor.Sign([]byte("other-secret"), body)
		assert.Error(t, processor.VerifySignature(secret, body, sig))
	})

	t.Run("MissingSignature", func(t *testing.T) {
		assert.Error(t, processor.VerifySignature(secret, body, ""))
	})

	t.Run("MalformedHex", func(t *testing.T) {
		assert.Error(t, processor.VerifySignature(secret, body, "not-hex"))
	})
}

func TestService_Client(t *testing.T) {
	svc := processor.NewService(map[processor.Kind]processor.Client{})

	_, err := svc.Client(processor.KindGoCoin)
	assert.Error(t, err)
}
