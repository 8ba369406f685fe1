package blockchain_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwabenaio/sika/internal/processor/blockchain"
)

func TestClient_ParseCallback(t *testing.T) {
	c := blockchain.New("http://unused", "xpub", "key", "cb-secret")

	cb, err := c.ParseCallback([]byte(
		"value=1500000&confirmations=6&input_transaction_hash=in-hash&transaction_hash=fwd-hash&invoice_id=xpub-3",
	))
	require.NoError(t, err)

	assert.InDelta(t, 0.015, cb.Amount, 1e-12, "satoshi value must convert to BTC")
	assert.Equal(t, "in-hash", cb.InputTxHash)
	assert.Equal(t, "fwd-hash", cb.ForwardTxHash)
	assert.True(t, cb.Confirmed)

	unconfirmed, err := c.ParseCallback([]byte("value=1500000&confirmations=2"))
	require.NoError(t, err)
	assert.False(t, unconfirmed.Confirmed)
}

func TestClient_VerifyCallback(t *testing.T) {
	c := blockchain.New("http://unused", "xpub", "key", "cb-secret")

	valid := httptest.NewRequest(http.MethodPost, "/callbacks/blockchain?secret=cb-secret", nil)
	require.NoError(t, c.VerifyCallback(valid, nil))

	forged := httptest.NewRequest(http.MethodPost, "/callbacks/blockchain?secret=guess", nil)
	assert.Error(t, c.VerifyCallback(forged, nil))
}
