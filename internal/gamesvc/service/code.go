package service

import (
	"crypto/rand"
	"math/big"

	"github.com/avvvet/draught-services/internal/gamesvc/models"
)

const (
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts = 10
)

var codeAlphabetSize = big.NewInt(int64(len(codeAlphabet)))

func generateCode() (string, error) {
	b := make([]byte, models.CodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, codeAlphabetSize)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// validCode reports whether code has the shape generateCode produces.
func validCode(code string) bool {
	if len(code) != models.CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
