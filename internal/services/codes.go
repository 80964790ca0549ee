package services

import (
	"crypto/rand"
	"strings"

	"github.com/mr-tron/base58"
)

// randomCode returns length characters of uppercased base58. The alphabet
// drops 0/O and I/l, which matters for codes customers type in by hand.
func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := strings.ToUpper(base58.Encode(buf))
	if len(code) < length {
		// Encode can shrink on leading zero bytes; pad by recursing.
		rest, err := randomCode(length - len(code))
		if err != nil {
			return "", err
		}
		code += rest
	}
	return code[:length], nil
}

// GenerateOrderCode produces a human-readable order code like ORD-7XK2PQ9F.
func GenerateOrderCode() (string, error) {
	code, err := randomCode(8)
	if err != nil {
		return "", err
	}
	return "ORD-" + code, nil
}

// generateGiftCardCode produces a gift card code like GC-J4M8Q2WD.
func generateGiftCardCode() (string, error) {
	code, err := randomCode(8)
	if err != nil {
		return "", err
	}
	return "GC-" + code, nil
}

// generateReferralCode derives a code from the username plus random tail,
// e.g. NOVA7K2 for user "nova".
func generateReferralCode(username string) (string, error) {
	prefix := strings.ToUpper(username)
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	tail, err := randomCode(3)
	if err != nil {
		return "", err
	}
	return prefix + tail, nil
}
