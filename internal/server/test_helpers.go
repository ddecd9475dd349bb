package server

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// MakeTestSignature generates an X-Hub-Signature-256 value for testing
// This is a test helper shared across multiple test files
func MakeTestSignature(payload []byte, secret string) string {
	return "sha256=" + sign(sha256.New, payload, secret)
}

// MakeLegacyTestSignature generates an X-Hub-Signature (sha1) value for testing
func MakeLegacyTestSignature(payload []byte, secret string) string {
	return "sha1=" + sign(sha1.New, payload, secret)
}

func sign(h func() hash.Hash, payload []byte, secret string) string {
	mac := hmac.New(h, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
