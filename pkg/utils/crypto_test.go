package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postqueue/pkg/utils"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	plaintext := "IGQWRPLongLivedAccessToken"

	encrypted, err := utils.Encrypt([]byte(plaintext), key)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, encrypted)

	decrypted, err := utils.Decrypt(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	otherKey := []byte("ffffffffffffffffffffffffffffffff")

	encrypted, err := utils.Encrypt([]byte("secret"), key)
	require.NoError(t, err)

	_, err = utils.Decrypt(encrypted, otherKey)
	assert.Error(t, err)
}

func TestDecrypt_TruncatedCiphertext(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	_, err := utils.Decrypt("c2hvcnQ=", key)
	assert.Error(t, err)
}
