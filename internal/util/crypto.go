package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
)

// referenceChars excludes characters that read ambiguously over chat (0/O, 1/I).
const referenceChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateReference returns a short uppercase code suitable for reading back
// to a customer, e.g. a booking reference.
func GenerateReference(length int) string {
	code := make([]byte, length)
	max := big.NewInt(int64(len(referenceChars)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing is unrecoverable for this process
			panic(err)
		}
		code[i] = referenceChars[n.Int64()]
	}
	return string(code)
}

func HmacSHA256(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
