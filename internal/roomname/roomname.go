// Package roomname makes short memorable room names such as
// "cozy-otter-lagoon-kettle".
package roomname

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// maxAttempts bounds the search for a name that is not taken.
const maxAttempts = 32

// ErrExhausted is returned when every attempted name was taken.
var ErrExhausted = errors.New("no free room name found")

// Generate returns a name built from one word of each pool, in pool order.
// Names for which taken reports true are skipped; taken may be nil.
func Generate(taken func(string) bool) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		words := make([]string, len(pools))
		for j, pool := range pools {
			idx, err := randomIndex(len(pool))
			if err != nil {
				return "", err
			}
			words[j] = pool[idx]
		}

		name := strings.Join(words, "-")
		if taken == nil || !taken(name) {
			return name, nil
		}
	}
	return "", ErrExhausted
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
