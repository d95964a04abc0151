// Package fair implements the commit-reveal scheme shared by all games.
//
// A game's hidden outcome is fixed at session creation. The bot publishes
// an MD5 digest of the outcome's canonical string joined with secret random
// material, and discloses that exact pre-image when the session resolves,
// so any player can recompute the digest and compare. MD5 here is a
// transparency mechanism, not a hardened fairness protocol: the secret is
// generated by a single party and the hash is not collision-resistant.
package fair

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
)

// Coin outcomes. The canonical strings are part of the published pre-image
// format and must not change.
const (
	Heads = "heads"
	Tails = "tails"
)

// SaltLength is the length of the secret salt mixed into a coin-flip
// commitment.
const SaltLength = 16

// PaddingLength is the length of the random padding appended to a mines
// board commitment. The padding defends against pre-computing digests of
// all possible board strings.
const PaddingLength = 10

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Commit returns the hex MD5 digest of the UTF-8 bytes of material.
func Commit(material string) string {
	sum := md5.Sum([]byte(material))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether material hashes to commitment.
func Verify(material, commitment string) bool {
	return Commit(material) == commitment
}

// CoinMaterial builds the pre-image for a coin-flip commitment:
// "<outcome>|<salt>".
func CoinMaterial(outcome, salt string) string {
	return fmt.Sprintf("%s|%s", outcome, salt)
}

// RandomString returns n random alphanumeric characters.
func RandomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[rand.IntN(len(alphanumeric))]
	}
	return string(b)
}

// FlipCoin returns Heads or Tails with equal probability.
func FlipCoin() string {
	if rand.IntN(2) == 0 {
		return Heads
	}
	return Tails
}
