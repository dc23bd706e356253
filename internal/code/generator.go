// Package code mints the short numeric verification codes drivers present to
// spot owners. Codes must be unique among all live holds at mint time; the
// caller supplies that exclusion set under whatever serialization it uses.
package code

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// Length is the number of digits in a verification code.
const Length = 4

const space = 10000

// ErrSpaceExhausted is returned when every code in the space is in use.
// Callers should treat it as a transient capacity condition, not bad input.
var ErrSpaceExhausted = errors.New("code space exhausted")

const randomAttempts = 32

// Generate draws a code uniformly at random from 0000-9999, rejecting any
// code present in inUse. After a bounded number of random draws it falls back
// to probing linearly from a random offset so termination does not depend on
// luck when the space is nearly full.
func Generate(inUse map[string]struct{}) (string, error) {
	if len(inUse) >= space {
		return "", ErrSpaceExhausted
	}

	for i := 0; i < randomAttempts; i++ {
		c, err := draw()
		if err != nil {
			return "", err
		}
		if _, taken := inUse[c]; !taken {
			return c, nil
		}
	}

	start, err := draw()
	if err != nil {
		return "", err
	}
	n := atoi(start)
	for i := 0; i < space; i++ {
		c := format((n + i) % space)
		if _, taken := inUse[c]; !taken {
			return c, nil
		}
	}
	return "", ErrSpaceExhausted
}

func draw() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(space))
	if err != nil {
		return "", fmt.Errorf("draw code: %w", err)
	}
	return format(int(n.Int64())), nil
}

func format(n int) string {
	return fmt.Sprintf("%0*d", Length, n)
}

func atoi(code string) int {
	n := 0
	for _, r := range code {
		n = n*10 + int(r-'0')
	}
	return n
}
