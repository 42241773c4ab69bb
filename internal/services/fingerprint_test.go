package services

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceFingerprint(t *testing.T) {
	sum := sha256.Sum256([]byte("203.0.113.7:Mozilla/5.0"))
	want := hex.EncodeToString(sum[:])[:32]

	got := DeviceFingerprint("203.0.113.7", "Mozilla/5.0")

	assert.Equal(t, want, got)
	assert.Len(t, got, 32)
	assert.Equal(t, got, DeviceFingerprint("203.0.113.7", "Mozilla/5.0"))
	assert.NotEqual(t, got, DeviceFingerprint("203.0.113.8", "Mozilla/5.0"))
	assert.NotEqual(t, got, DeviceFingerprint("203.0.113.7", "curl/8.0"))
}
