package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Current argon2id cost parameters. Hashes stored with weaker values
// are transparently re-hashed on the next successful verification.
const (
	argonTime    uint32 = 8
	argonMemory  uint32 = 64 * 1024 // KiB
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16
)

// PasswordHasher produces and verifies PHC-formatted argon2id hashes.
// The preimage is seeded with the user id and the deployment pepper so
// that identical passwords never share a hash across accounts or
// installations.
type PasswordHasher struct {
	pepper  string
	time    uint32
	memory  uint32
	threads uint8
}

func NewPasswordHasher(pepper string) *PasswordHasher {
	return &PasswordHasher{
		pepper:  pepper,
		time:    argonTime,
		memory:  argonMemory,
		threads: argonThreads,
	}
}

// newPasswordHasherWithCost lowers the work factor for tests.
func newPasswordHasherWithCost(pepper string, time, memory uint32) *PasswordHasher {
	return &PasswordHasher{pepper: pepper, time: time, memory: memory, threads: 1}
}

func (h *PasswordHasher) preimage(userID int64, password string) []byte {
	return []byte(fmt.Sprintf("%s:%d:%s", h.pepper, userID, password))
}

// Hash returns a self-describing hash string:
//
//	$argon2id$v=19$m=65536,t=8,p=4$<b64 salt>$<b64 key>
func (h *PasswordHasher) Hash(userID int64, password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey(h.preimage(userID, password), salt, h.time, h.memory, h.threads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against the stored hash. rehash reports that
// the stored hash was produced with weaker parameters than the current
// defaults and should be rotated now that the cleartext is at hand.
func (h *PasswordHasher) Verify(userID int64, password, encoded string) (ok, rehash bool, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, false, fmt.Errorf("malformed password hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, false, fmt.Errorf("malformed hash version: %w", err)
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, false, fmt.Errorf("malformed hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, false, fmt.Errorf("malformed hash salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, false, fmt.Errorf("malformed hash key: %w", err)
	}

	got := argon2.IDKey(h.preimage(userID, password), salt, time, memory, threads, uint32(len(want)))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return false, false, nil
	}

	rehash = memory < h.memory || time < h.time
	return true, rehash, nil
}
