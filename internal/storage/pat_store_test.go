package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore() *S3CredentialStore {
	return &S3CredentialStore{
		bucketName: "pat-bucket",
		encryptKey: bytes.Repeat([]byte("k"), 32),
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	store := testStore()

	encrypted, err := store.encrypt("my-secret-pat")
	require.NoError(t, err)
	assert.NotEqual(t, "my-secret-pat", encrypted)

	decrypted, err := store.decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "my-secret-pat", decrypted)
}

func TestEncrypt_NoncesDiffer(t *testing.T) {
	store := testStore()

	first, err := store.encrypt("my-secret-pat")
	require.NoError(t, err)
	second, err := store.encrypt("my-secret-pat")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDecrypt_RejectsTamperedCiphertext(t *testing.T) {
	store := testStore()

	_, err := store.decrypt("bm90LXJlYWwtY2lwaGVydGV4dA==")
	assert.Error(t, err)
}

func TestGetKey(t *testing.T) {
	store := testStore()
	assert.Equal(t, "pat/acme.json", store.getKey("acme"))
}

func TestNewS3CredentialStoreFromEnv_InvalidKey(t *testing.T) {
	_, err := NewS3CredentialStoreFromEnv(context.Background(), "bucket", "not base64!!")
	assert.Error(t, err)

	_, err = NewS3CredentialStoreFromEnv(context.Background(), "bucket", "dG9vLXNob3J0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}
