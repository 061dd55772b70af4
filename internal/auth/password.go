package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Cost parameters for newly created hashes. Stored hashes carry their own
// parameters, so these can be raised later without invalidating old records.
const (
	hashIterations  uint32 = 3
	hashMemoryKiB   uint32 = 64 * 1024
	hashParallelism uint8  = 1
	hashKeyBytes    uint32 = 32
	hashSaltBytes          = 16
)

// HashPassword derives an Argon2id hash of password and encodes it in the
// PHC string format, e.g. $argon2id$v=19$m=65536,t=3,p=1$<salt>$<key>.
func HashPassword(password string) (string, error) {
	salt := make([]byte, hashSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("reading salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, hashIterations, hashMemoryKiB, hashParallelism, hashKeyBytes)

	encode := base64.RawStdEncoding.EncodeToString
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, hashMemoryKiB, hashIterations, hashParallelism,
		encode(salt), encode(key)), nil
}

// VerifyPassword reports whether password matches the stored PHC hash. The
// derivation re-runs with the parameters recorded in the hash itself, and the
// final comparison is constant time.
func VerifyPassword(password, stored string) (bool, error) {
	rec, err := parsePHC(stored)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), rec.salt, rec.iterations, rec.memoryKiB, rec.parallelism, uint32(len(rec.key)))

	return subtle.ConstantTimeCompare(rec.key, candidate) == 1, nil
}

// phcRecord is a decoded $argon2id$... string: the stored salt and key plus
// the cost parameters they were derived with.
type phcRecord struct {
	iterations  uint32
	memoryKiB   uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parsePHC(stored string) (phcRecord, error) {
	var rec phcRecord

	// A well-formed record splits into six fields:
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key.
	fields := strings.Split(stored, "$")
	if len(fields) != 6 {
		return rec, fmt.Errorf("malformed password hash")
	}
	if fields[1] != "argon2id" {
		return rec, fmt.Errorf("unsupported hash algorithm %q", fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return rec, fmt.Errorf("parsing hash version: %w", err)
	}
	if version != argon2.Version {
		return rec, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &rec.memoryKiB, &rec.iterations, &rec.parallelism); err != nil {
		return rec, fmt.Errorf("parsing hash parameters: %w", err)
	}

	var err error
	if rec.salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return rec, fmt.Errorf("decoding salt: %w", err)
	}
	if rec.key, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil {
		return rec, fmt.Errorf("decoding key: %w", err)
	}

	return rec, nil
}
