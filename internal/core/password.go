// AngelaMos | 2026
// password.go

package core

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
)

var ErrMalformedHash = errors.New("malformed password hash")

// ArgonParams are the argon2id cost settings embedded in every stored hash.
type ArgonParams struct {
	Memory  uint32
	Time    uint32
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// CurrentArgon is what new hashes use. Hashes made with anything else are
// upgraded on the next successful login.
var CurrentArgon = ArgonParams{
	Memory:  64 * 1024,
	Time:    1,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

type argonHash struct {
	params ArgonParams
	salt   []byte
	key    []byte
}

// String renders the PHC form $argon2id$v=19$m=..,t=..,p=..$salt$key.
func (h argonHash) String() string {
	return "$argon2id$v=" + strconv.Itoa(argon2.Version) +
		"$m=" + strconv.FormatUint(uint64(h.params.Memory), 10) +
		",t=" + strconv.FormatUint(uint64(h.params.Time), 10) +
		",p=" + strconv.FormatUint(uint64(h.params.Threads), 10) +
		"$" + base64.RawStdEncoding.EncodeToString(h.salt) +
		"$" + base64.RawStdEncoding.EncodeToString(h.key)
}

func parseArgonHash(encoded string) (argonHash, error) {
	fields := strings.Split(strings.TrimPrefix(encoded, "$"), "$")
	if len(fields) != 5 || fields[0] != "argon2id" {
		return argonHash{}, ErrMalformedHash
	}
	if fields[1] != "v="+strconv.Itoa(argon2.Version) {
		return argonHash{}, fmt.Errorf("argon2 version %q: %w", fields[1], ErrMalformedHash)
	}

	var h argonHash
	for _, kv := range strings.Split(fields[2], ",") {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return argonHash{}, ErrMalformedHash
		}
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return argonHash{}, fmt.Errorf("argon2 param %s: %w", key, ErrMalformedHash)
		}
		switch key {
		case "m":
			h.params.Memory = uint32(n)
		case "t":
			h.params.Time = uint32(n)
		case "p":
			if n > 255 {
				return argonHash{}, ErrMalformedHash
			}
			h.params.Threads = uint8(n)
		default:
			return argonHash{}, ErrMalformedHash
		}
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(fields[3]); err != nil {
		return argonHash{}, fmt.Errorf("argon2 salt: %w", ErrMalformedHash)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return argonHash{}, fmt.Errorf("argon2 key: %w", ErrMalformedHash)
	}
	//nolint:gosec // G115: argon2 keys are a few dozen bytes
	h.params.KeyLen = uint32(len(h.key))
	h.params.SaltLen = len(h.salt)

	return h, nil
}

func deriveArgon(password string, salt []byte, p ArgonParams) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
}

// HashPassword hashes with argon2id under CurrentArgon.
func HashPassword(password string) (string, error) {
	salt := make([]byte, CurrentArgon.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	return argonHash{
		params: CurrentArgon,
		salt:   salt,
		key:    deriveArgon(password, salt, CurrentArgon),
	}.String(), nil
}

func isBcrypt(encoded string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encoded, prefix) {
			return true
		}
	}
	return false
}

// VerifyPassword checks argon2id hashes and bcrypt hashes carried over from
// earlier deployments.
func VerifyPassword(password, encoded string) (bool, error) {
	if isBcrypt(encoded) {
		switch err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)); {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, fmt.Errorf("bcrypt compare: %w", err)
		}
	}

	h, err := parseArgonHash(encoded)
	if err != nil {
		return false, err
	}

	candidate := deriveArgon(password, h.salt, h.params)
	return subtle.ConstantTimeCompare(h.key, candidate) == 1, nil
}

// outdated reports whether a stored hash should be replaced by one made with
// CurrentArgon.
func outdated(encoded string) bool {
	if isBcrypt(encoded) {
		return true
	}
	h, err := parseArgonHash(encoded)
	if err != nil {
		return true
	}
	p := h.params
	return p.Memory != CurrentArgon.Memory ||
		p.Time != CurrentArgon.Time ||
		p.Threads != CurrentArgon.Threads ||
		p.KeyLen != CurrentArgon.KeyLen
}

// VerifyPasswordWithRehash also returns a fresh hash when the stored one is
// outdated. An empty upgrade means keep the stored hash.
func VerifyPasswordWithRehash(password, encoded string) (bool, string, error) {
	ok, err := VerifyPassword(password, encoded)
	if err != nil || !ok {
		return false, "", err
	}
	if !outdated(encoded) {
		return true, "", nil
	}

	upgraded, err := HashPassword(password)
	if err != nil {
		//nolint:nilerr // the password matched; the upgrade is retried on the next login
		return true, "", nil
	}
	return true, upgraded, nil
}

// decoyHash is verified against when no account exists so unknown emails
// cost the same as wrong passwords.
var decoyHash = mustHash("crm-decoy-credential")

func mustHash(password string) string {
	h, err := HashPassword(password)
	if err != nil {
		panic(fmt.Sprintf("core: build decoy hash: %v", err))
	}
	return h
}

// VerifyPasswordTimingSafe verifies against encoded, or against a decoy when
// encoded is nil or empty. A missing hash always reports false.
func VerifyPasswordTimingSafe(password string, encoded *string) (bool, string, error) {
	if encoded == nil || *encoded == "" {
		_, _, _ = VerifyPasswordWithRehash(password, decoyHash)
		return false, "", nil
	}
	return VerifyPasswordWithRehash(password, *encoded)
}
