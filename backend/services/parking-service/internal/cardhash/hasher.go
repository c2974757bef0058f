package cardhash

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned by Verify when the card does not match the stored hash.
var ErrMismatch = errors.New("cardhash: card does not match")

// Secret joins the card fields that are only ever stored hashed.
func Secret(number, cvv string) string {
	return strings.TrimSpace(number) + ":" + strings.TrimSpace(cvv)
}

// Bcrypt hashes card secrets. Costs outside bcrypt's range are clamped.
type Bcrypt struct {
	cost int
}

func NewBcryptHasher(cost int) *Bcrypt {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(secret string) (string, error) {
	if secret == "" || secret == ":" {
		return "", errors.New("cardhash: empty secret")
	}
	out, err := bcrypt.GenerateFromPassword([]byte(secret), b.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports ErrMismatch for a wrong card and other errors for a malformed hash.
func (b *Bcrypt) Verify(hash, number, cvv string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(Secret(number, cvv)))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}

// Outdated reports whether hash was produced with a different cost.
func (b *Bcrypt) Outdated(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != b.cost
}
