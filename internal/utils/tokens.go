package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// NewSessionToken returns a hex-encoded opaque token of nBytes entropy.
func NewSessionToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32 // 256 bits by default
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NumericCode returns a fixed-length numeric verification code drawn from
// crypto/rand. Leading zeros are kept, so the result is always n digits.
func NumericCode(n int) (string, error) {
	if n <= 0 {
		n = 6
	}
	digits := make([]byte, n)
	for i := range digits {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits), nil
}
