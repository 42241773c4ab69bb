package services

import (
	"crypto/sha256"
	"fmt"
)

// DeviceFingerprint is a weak per-device identity used only for duplicate
// submission checks: the first 32 hex characters of sha256("ip:userAgent").
func DeviceFingerprint(ipAddress, userAgent string) string {
	data := []byte(fmt.Sprintf("%s:%s", ipAddress, userAgent))
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)[:32]
}
