package services

import (
	"crypto/rand"
	"math/big"
)

const (
	passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	passwordSpecials = "!@#$%&*+-_"
)

// generateTemporaryPassword builds a random password of the given length
// containing at least `specials` special characters.
func generateTemporaryPassword(length, specials int) (string, error) {
	if specials > length {
		specials = length
	}

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	buf := make([]byte, length)
	for i := 0; i < length; i++ {
		set := passwordAlphabet
		if i < specials {
			set = passwordSpecials
		}
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		buf[i] = c
	}

	// shuffle so specials are not clustered at the front
	for i := len(buf) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		j := n.Int64()
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf), nil
}
