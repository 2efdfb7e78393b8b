// Package security hashes account passwords. New hashes are Argon2id in PHC
// form; bcrypt hashes carried over from the previous storefront still verify
// and are reported by NeedsRehash so they get upgraded on the next login.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/angelmondragon/sweetshop-backend/pkg/config"
)

// ErrInvalidHash means the stored value is neither Argon2id nor bcrypt, or is
// truncated.
var ErrInvalidHash = errors.New("security: unrecognised password hash")

const argonPrefix = "$argon2id$"

// ArgonParams are embedded in every hash so old hashes survive a config change.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

type PasswordHasher struct {
	params ArgonParams
}

// NewPasswordHasher clamps cfg into safe Argon2id bounds.
func NewPasswordHasher(cfg config.PasswordConfig) *PasswordHasher {
	clamp := func(v, lo, hi int) uint32 { return uint32(max(lo, min(v, hi))) }
	return &PasswordHasher{params: ArgonParams{
		Memory:      clamp(cfg.ArgonMemoryKB, 8, 512*1024),
		Time:        clamp(cfg.ArgonTime, 1, 10),
		Parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     clamp(cfg.ArgonSaltLen, 8, 64),
		KeyLen:      clamp(cfg.ArgonKeyLen, 16, 64),
	}}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("security: empty password")
	}
	p := h.params
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("security: salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)

	var b strings.Builder
	fmt.Fprintf(&b, "%sv=%d$m=%d,t=%d,p=%d$", argonPrefix, argon2.Version, p.Memory, p.Time, p.Parallelism)
	b.WriteString(base64.RawStdEncoding.EncodeToString(salt))
	b.WriteByte('$')
	b.WriteString(base64.RawStdEncoding.EncodeToString(key))
	return b.String(), nil
}

// Verify reports whether password matches encoded. A wrong password is
// (false, nil); only an unreadable hash is an error.
func (h *PasswordHasher) Verify(password, encoded string) (bool, error) {
	return VerifyPassword(password, encoded)
}

// NeedsRehash is true for bcrypt hashes and for Argon2id hashes made with
// different parameters than h uses now.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	if !strings.HasPrefix(encoded, argonPrefix) {
		return true
	}
	p, _, _, err := parseArgon(encoded)
	return err != nil || p != h.params
}

// HashPassword hashes once with cfg, for scripts and seeding.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	return NewPasswordHasher(cfg).Hash(password)
}

func VerifyPassword(password, encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, argonPrefix):
		p, salt, want, err := parseArgon(encoded)
		if err != nil {
			return false, err
		}
		got := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
		return subtle.ConstantTimeCompare(want, got) == 1, nil
	case isBcrypt(encoded):
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrInvalidHash, err)
		}
		return true, nil
	}
	return false, ErrInvalidHash
}

func isBcrypt(encoded string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encoded, prefix) {
			return true
		}
	}
	return false
}

// parseArgon reads $argon2id$v=19$m=..,t=..,p=..$salt$key.
func parseArgon(encoded string) (ArgonParams, []byte, []byte, error) {
	var p ArgonParams
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 {
		return p, nil, nil, ErrInvalidHash
	}
	for _, kv := range strings.Split(fields[3], ",") {
		name, raw, _ := strings.Cut(kv, "=")
		var dst *uint32
		bits := 32
		switch name {
		case "m":
			dst = &p.Memory
		case "t":
			dst = &p.Time
		case "p":
			bits = 8
		default:
			continue
		}
		v, err := strconv.ParseUint(raw, 10, bits)
		if err != nil || v == 0 {
			return p, nil, nil, ErrInvalidHash
		}
		if dst != nil {
			*dst = uint32(v)
		} else {
			p.Parallelism = uint8(v)
		}
	}
	if p.Memory == 0 || p.Time == 0 || p.Parallelism == 0 {
		return p, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	p.SaltLen, p.KeyLen = uint32(len(salt)), uint32(len(key))
	return p, salt, key, nil
}
