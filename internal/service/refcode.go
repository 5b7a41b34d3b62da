package service

import (
	"crypto/rand"
	"math/big"
)

const (
	refCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	refCodeLength   = 20
)

func NewRefCode() (string, error) {
	max := big.NewInt(int64(len(refCodeAlphabet)))
	b := make([]byte, refCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = refCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}
