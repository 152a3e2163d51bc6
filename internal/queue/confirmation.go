package queue

import "crypto/rand"

const confirmationAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewConfirmationCode returns an 8-character public token identifying an
// appointment without requiring login.
func NewConfirmationCode() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = confirmationAlphabet[int(b)%len(confirmationAlphabet)]
	}
	return string(buf)
}
