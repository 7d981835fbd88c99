// Package keygen produces passwords, keys, IVs and salts from a
// cryptographically secure source, and derives key material from passphrases.
package keygen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/RowanDark/cipherkit/internal/feistel"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{}|;:',.<>?/"
)

// Argon2id parameters used by DeriveKey.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// MinPasswordLength is the shortest password ValidatePassword accepts.
const MinPasswordLength = 8

var (
	// ErrNoCharset is returned when every character class is disabled.
	ErrNoCharset = errors.New("no character classes enabled")
	// ErrInvalidArgument is returned for sizes that cannot be honoured.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrWeakPassword is returned by ValidatePassword.
	ErrWeakPassword = errors.New("password does not meet policy")
)

// PasswordOptions selects the character classes drawn from.
type PasswordOptions struct {
	Upper   bool
	Lower   bool
	Digits  bool
	Symbols bool
}

// DefaultPasswordOptions enables letters and digits.
func DefaultPasswordOptions() PasswordOptions {
	return PasswordOptions{Upper: true, Lower: true, Digits: true}
}

func (o PasswordOptions) pool() string {
	var b strings.Builder
	if o.Upper {
		b.WriteString(upperChars)
	}
	if o.Lower {
		b.WriteString(lowerChars)
	}
	if o.Digits {
		b.WriteString(digitChars)
	}
	if o.Symbols {
		b.WriteString(symbolChars)
	}
	return b.String()
}

// Generator draws randomness from an io.Reader, crypto/rand by default.
// It is safe for concurrent use when its reader is.
type Generator struct {
	rand io.Reader
}

// New returns a Generator backed by crypto/rand.
func New() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewWithReader returns a Generator reading from r.
func NewWithReader(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// Password returns length characters picked uniformly from the enabled pools.
func (g *Generator) Password(length int, opts PasswordOptions) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("%w: negative password length %d", ErrInvalidArgument, length)
	}
	pool := opts.pool()
	if pool == "" {
		return "", ErrNoCharset
	}

	size := big.NewInt(int64(len(pool)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(g.rand, size)
		if err != nil {
			return "", fmt.Errorf("read random index: %w", err)
		}
		out[i] = pool[n.Int64()]
	}
	return string(out), nil
}

// Bytes returns n random bytes.
func (g *Generator) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative byte count %d", ErrInvalidArgument, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return buf, nil
}

// Key returns a symmetric key of bits length, which must be a positive
// multiple of 8.
func (g *Generator) Key(bits int) ([]byte, error) {
	if bits <= 0 || bits%8 != 0 {
		return nil, fmt.Errorf("%w: key size %d is not a positive multiple of 8", ErrInvalidArgument, bits)
	}
	return g.Bytes(bits / 8)
}

// IV returns an initialisation vector of blockSize bytes.
func (g *Generator) IV(blockSize int) ([]byte, error) {
	return g.Bytes(blockSize)
}

// Salt returns n random bytes for key derivation.
func (g *Generator) Salt(n int) ([]byte, error) {
	return g.Bytes(n)
}

// FeistelKey returns 8 random bytes usable with feistel.NewFromBytes.
func (g *Generator) FeistelKey() ([]byte, error) {
	return g.Bytes(feistel.BlockSize)
}

// ValidatePassword requires MinPasswordLength characters and at least one
// upper-case letter, lower-case letter, digit and punctuation character.
func ValidatePassword(password string) error {
	var missing []string
	if len(password) < MinPasswordLength {
		missing = append(missing, fmt.Sprintf("at least %d characters", MinPasswordLength))
	}

	var upper, lower, digit, punct bool
	for i := 0; i < len(password); i++ {
		c := password[i]
		switch {
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= '0' && c <= '9':
			digit = true
		case c > ' ' && c < 0x7f:
			punct = true
		}
	}
	if !upper {
		missing = append(missing, "an upper-case letter")
	}
	if !lower {
		missing = append(missing, "a lower-case letter")
	}
	if !digit {
		missing = append(missing, "a digit")
	}
	if !punct {
		missing = append(missing, "a punctuation character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: needs %s", ErrWeakPassword, strings.Join(missing, ", "))
	}
	return nil
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// DeriveKey stretches a passphrase into bits of key material with Argon2id.
func DeriveKey(passphrase, salt []byte, bits int) ([]byte, error) {
	if bits <= 0 || bits%8 != 0 {
		return nil, fmt.Errorf("%w: key size %d is not a positive multiple of 8", ErrInvalidArgument, bits)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", ErrInvalidArgument)
	}
	return argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, uint32(bits/8)), nil
}

// HashPassword returns a bcrypt hash suitable for storing.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches a HashPassword hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
