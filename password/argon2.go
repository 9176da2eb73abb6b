package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

// Params control the Argon2id cost. Zero fields take the defaults below.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams are sized for an interactive login path.
var DefaultParams = Params{
	Memory:      64 * 1024,
	Time:        1,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher produces and checks PHC-encoded Argon2id hashes. Safe for
// concurrent use.
type Hasher struct {
	params Params
}

// NewHasher validates the parameters and returns a hasher.
func NewHasher(p Params) (*Hasher, error) {
	if p == (Params{}) {
		p = DefaultParams
	}
	if p.Memory < 8*1024 || p.Time < 1 || p.Parallelism < 1 {
		return nil, errors.New("argon2 cost parameters too weak")
	}
	if p.SaltLength < 16 || p.KeyLength < 16 {
		return nil, errors.New("argon2 salt or key length too short")
	}
	return &Hasher{params: p}, nil
}

// Hash derives a PHC-encoded hash from the plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches the encoded hash. Comparison is
// constant-time over the derived key.
func (h *Hasher) Verify(plaintext, encoded string) (bool, error) {
	var (
		version                   int
		memory, timeCost          uint32
		parallelism               uint8
		saltEncoded, hashEncoded  string
	)

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return false, errors.New("invalid hash format")
	}
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, errors.New("unsupported argon2 version")
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &parallelism); err != nil {
		return false, errors.New("invalid hash parameters")
	}
	saltEncoded, hashEncoded = parts[4], parts[5]

	salt, err := base64.StdEncoding.DecodeString(saltEncoded)
	if err != nil {
		return false, errors.New("invalid salt encoding")
	}
	want, err := base64.StdEncoding.DecodeString(hashEncoded)
	if err != nil || len(want) == 0 {
		return false, errors.New("invalid hash encoding")
	}

	got := argon2.IDKey([]byte(plaintext), salt, timeCost, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
