// AngelaMos | 2026
// password_test.go

package core

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	ok, err := VerifyPassword("s3cret-pass", hash)
	if err != nil || !ok {
		t.Fatalf("verify correct password: ok=%v err=%v", ok, err)
	}

	ok, err = VerifyPassword("wrong", hash)
	if err != nil || ok {
		t.Fatalf("verify wrong password: ok=%v err=%v", ok, err)
	}
}

func TestLegacyBcryptVerifiesAndRehashes(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	encoded := string(legacy)

	valid, newHash, err := VerifyPasswordTimingSafe("old-password", &encoded)
	if err != nil || !valid {
		t.Fatalf("legacy verify: valid=%v err=%v", valid, err)
	}
	if !strings.HasPrefix(newHash, "$argon2id$") {
		t.Fatalf("legacy hash should be upgraded, got %q", newHash)
	}

	valid, _, err = VerifyPasswordTimingSafe("nope", &encoded)
	if err != nil || valid {
		t.Fatalf("legacy wrong password: valid=%v err=%v", valid, err)
	}
}

func TestVerifyPasswordTimingSafeWithoutHash(t *testing.T) {
	valid, newHash, err := VerifyPasswordTimingSafe("anything", nil)
	if valid || newHash != "" || err != nil {
		t.Fatalf("got valid=%v hash=%q err=%v", valid, newHash, err)
	}
}

func TestTokenHashing(t *testing.T) {
	secret, err := GenerateSessionSecret()
	if err != nil {
		t.Fatalf("secret: %v", err)
	}
	if len(secret) != 64 {
		t.Fatalf("secret length = %d, want 64", len(secret))
	}

	hash := HashToken(secret)
	if hash == secret {
		t.Fatal("hash equals secret")
	}
	if !CompareTokenHash(secret, hash) {
		t.Fatal("hash does not match its secret")
	}
	if CompareTokenHash(secret+"x", hash) {
		t.Fatal("different secret matched")
	}
}

func TestOutdatedArgonParamsAreUpgraded(t *testing.T) {
	weak := CurrentArgon
	weak.Memory = 8 * 1024
	salt := []byte("0123456789abcdef")
	stored := argonHash{params: weak, salt: salt, key: deriveArgon("pw", salt, weak)}.String()

	valid, upgraded, err := VerifyPasswordWithRehash("pw", stored)
	if err != nil || !valid {
		t.Fatalf("verify: valid=%v err=%v", valid, err)
	}
	if upgraded == "" || !strings.Contains(upgraded, "m=65536") {
		t.Fatalf("expected upgrade to current params, got %q", upgraded)
	}

	current, _ := HashPassword("pw")
	if _, again, _ := VerifyPasswordWithRehash("pw", current); again != "" {
		t.Fatalf("current hash was upgraded: %q", again)
	}
}

func TestMalformedHashes(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=abc,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$a2V5",
	} {
		if _, err := VerifyPassword("pw", encoded); !errors.Is(err, ErrMalformedHash) {
			t.Errorf("%q: err = %v, want ErrMalformedHash", encoded, err)
		}
	}
}
