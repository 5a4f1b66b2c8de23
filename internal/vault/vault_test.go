package vault

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/apperr"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	dir := t.TempDir()
	v, err := Open(filepath.Join(dir, "blobs"), filepath.Join(dir, "enc.key"))
	require.NoError(t, err)
	return v
}

func TestOpen_GeneratesKeyOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "enc.key")

	_, err := Open(filepath.Join(dir, "blobs"), keyFile)
	require.NoError(t, err)

	key, err := os.ReadFile(keyFile)
	require.NoError(t, err)
	assert.Len(t, key, keySize)

	// Second open must reuse the persisted key, not mint a new one.
	_, err = Open(filepath.Join(dir, "blobs"), keyFile)
	require.NoError(t, err)
	key2, err := os.ReadFile(keyFile)
	require.NoError(t, err)
	assert.Equal(t, key, key2)
}

func TestOpen_RejectsShortKey(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "enc.key")
	require.NoError(t, os.WriteFile(keyFile, []byte("too short"), 0o600))

	_, err := Open(filepath.Join(dir, "blobs"), keyFile)
	assert.ErrorIs(t, err, apperr.ErrIntegrity)
}

func TestStoreRetrieve_RoundTrip(t *testing.T) {
	v := newTestVault(t)

	payloads := [][]byte{
		[]byte("hello"),
		{},
		{0x00, 0xff, 0x10, 0x80},
		[]byte("a longer payload with some structure: {\"k\":\"v\"}"),
	}
	for i, payload := range payloads {
		name := "doc_" + string(rune('a'+i))
		require.NoError(t, v.Store(name, payload))

		got, err := v.Retrieve(name)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
}

func TestRetrieve_MissingBlob(t *testing.T) {
	v := newTestVault(t)
	_, err := v.Retrieve("never-stored")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRetrieve_TamperedBlobFailsIntegrity(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Store("doc", []byte("sensitive payload")))

	path := v.blobPath("doc")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))

	// Flip one hex digit in each field in turn; every variant must fail
	// authentication rather than yield corrupted plaintext.
	flip := func(s string) string {
		b := []byte(s)
		if b[0] == '0' {
			b[0] = '1'
		} else {
			b[0] = '0'
		}
		return string(b)
	}

	variants := []envelope{
		{IV: flip(env.IV), Tag: env.Tag, Data: env.Data},
		{IV: env.IV, Tag: flip(env.Tag), Data: env.Data},
		{IV: env.IV, Tag: env.Tag, Data: flip(env.Data)},
	}
	for _, tampered := range variants {
		raw, err := json.Marshal(tampered)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, raw, 0o640))

		got, err := v.Retrieve("doc")
		assert.ErrorIs(t, err, apperr.ErrIntegrity)
		assert.Nil(t, got)
	}
}

func TestRetrieve_MalformedEnvelope(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, os.WriteFile(v.blobPath("bad"), []byte("not json"), 0o640))

	_, err := v.Retrieve("bad")
	assert.ErrorIs(t, err, apperr.ErrIntegrity)
}
