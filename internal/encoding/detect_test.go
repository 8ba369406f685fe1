package encoding_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwabenaio/sika/internal/encoding"
)

func TestNewUTF8ReaderPassthrough(t *testing.T) {
	input := "Currency,Rate\nGHS,5.30\nSLL,7050\nCôte d'Ivoire note: é\n"

	r, err := encoding.NewUTF8Reader(bytes.NewReader([]byte(input)))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, input, string(got))
}

func TestNewUTF8ReaderWindows1252(t *testing.T) {
	// Windows-1252 "Côte" uses 0xF4 for ô.
	input := []byte{'C', 0xF4, 't', 'e', ',', '5', '.', '3', '0', '\n'}

	r, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Côte,5.30\n", string(got))
}

func TestNewUTF8ReaderStripsBOM(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Currency,Rate\n")...)

	r, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Currency,Rate\n", string(got))
}

func TestNewUTF8ReaderUTF16LE(t *testing.T) {
	// "GHS\n" as UTF-16 LE with BOM.
	input := []byte{0xFF, 0xFE, 'G', 0, 'H', 0, 'S', 0, '\n', 0}

	r, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "GHS\n", string(got))
}
