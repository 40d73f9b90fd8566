package ticket

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// idAlphabet excludes characters that are easy to misread over chat
// (0/O, 1/I/L) so a ticket ID survives being typed back by a human.
const idAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const idLength = 6

// NewTicketID generates a short human-typable ticket identifier.
func NewTicketID() string {
	return randomString(idAlphabet, idLength)
}

// NewNumericCode generates an n-digit verification code.
func NewNumericCode(n int) string {
	return randomString("0123456789", n)
}

func randomString(alphabet string, n int) string {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the process has no entropy source;
			// nothing sensible to degrade to.
			panic(err)
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf)
}

func hashCode(code string) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
}

func codeMatches(hash []byte, candidate string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(candidate)) == nil
}
