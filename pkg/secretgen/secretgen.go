// Package secretgen generates the random secret material used by the
// database and application workloads (§9: "Secrets are random byte
// strings of >=16 bytes, base64-rendered with non-alphanumerics
// stripped").
package secretgen

import (
	"crypto/rand"
	"regexp"

	"github.com/kshitizz36/Urumi-AI/pkg/utils/base64marshall"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// minBytes is the floor for secret entropy: 16 bytes = 128 bits, safely
// above the >=96-bit requirement in §4.6.
const minBytes = 16

// Generate returns a random secret rendered as an alphanumeric string.
// n is the number of random bytes drawn before base64 rendering and
// stripping; values below minBytes are raised to it.
func Generate(n int) (string, error) {
	if n < minBytes {
		n = minBytes
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	rendered := base64marshall.New(buf).String()
	return nonAlphanumeric.ReplaceAllString(rendered, ""), nil
}

// MustGenerate is like Generate but panics on error. crypto/rand.Read
// only fails when the OS entropy source is broken, a condition this
// service cannot meaningfully recover from.
func MustGenerate(n int) string {
	s, err := Generate(n)
	if err != nil {
		panic(err)
	}
	return s
}
