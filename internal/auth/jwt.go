// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/crm-backend/internal/config"
	"github.com/carterperez-dev/crm-backend/internal/core"
)

const (
	claimSession   = "sid"
	claimEmail     = "email"
	claimTokenType = "type"
	accessType     = "access"
)

// JWTManager signs and verifies ES256 access tokens. A token is only a
// carrier for a session id; revocation lives in the session table.
type JWTManager struct {
	signer   jwk.Key
	verifier jwk.Key
	jwks     []byte
	kid      string
	cfg      config.JWTConfig
}

func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	signer, err := loadSigningKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}

	verifier, err := signer.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive verification key: %w", err)
	}
	if err := stamp(verifier, map[string]any{jwk.KeyUsageKey: "sig"}); err != nil {
		return nil, err
	}

	set := jwk.NewSet()
	if err := set.AddKey(verifier); err != nil {
		return nil, fmt.Errorf("build jwks: %w", err)
	}
	encoded, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("encode jwks: %w", err)
	}

	kid, _ := signer.KeyID()
	return &JWTManager{
		signer:   signer,
		verifier: verifier,
		jwks:     encoded,
		kid:      kid,
		cfg:      cfg,
	}, nil
}

// AccessTokenClaims binds a token to the session it was issued for.
type AccessTokenClaims struct {
	UserID    string
	SessionID string
	Email     string
	ExpiresAt time.Time
}

// CreateAccessToken signs claims with an expiry equal to the session's.
func (m *JWTManager) CreateAccessToken(claims AccessTokenClaims, issuedAt time.Time) (string, error) {
	tok, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Issuer(m.cfg.Issuer).
		Audience([]string{m.cfg.Audience}).
		Subject(claims.UserID).
		IssuedAt(issuedAt).
		NotBefore(issuedAt).
		Expiration(claims.ExpiresAt).
		Claim(claimSession, claims.SessionID).
		Claim(claimEmail, claims.Email).
		Claim(claimTokenType, accessType).
		Build()
	if err != nil {
		return "", fmt.Errorf("build access token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256(), m.signer))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return string(signed), nil
}

// VerifyAccessToken checks signature, expiry, issuer, audience and token
// type. It does not consult the session table.
func (m *JWTManager) VerifyAccessToken(_ context.Context, raw string) (*AccessTokenClaims, error) {
	tok, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.ES256(), m.verifier),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", core.ErrTokenInvalid)
	}

	if exp, ok := tok.Expiration(); ok && !time.Now().Before(exp) {
		return nil, fmt.Errorf("access token expired at %s: %w",
			exp.Format(time.RFC3339), core.ErrTokenExpired)
	}

	if err := jwt.Validate(tok,
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithAudience(m.cfg.Audience),
	); err != nil {
		return nil, fmt.Errorf("validate access token: %v: %w", err, core.ErrTokenInvalid)
	}

	out := &AccessTokenClaims{}
	var kind string
	if err := tok.Get(claimTokenType, &kind); err != nil || kind != accessType {
		return nil, fmt.Errorf("access token has type %q: %w", kind, core.ErrTokenInvalid)
	}
	if sub, ok := tok.Subject(); ok {
		out.UserID = sub
	}
	_ = tok.Get(claimSession, &out.SessionID)
	if out.UserID == "" || out.SessionID == "" {
		return nil, fmt.Errorf("access token missing sub or sid: %w", core.ErrTokenInvalid)
	}

	_ = tok.Get(claimEmail, &out.Email)
	out.ExpiresAt, _ = tok.Expiration()
	return out, nil
}

// GetJWKSHandler serves the public key set for external verifiers.
func (m *JWTManager) GetJWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(m.jwks)
	}
}

// SessionTTL is the lifetime of a session and its token.
func (m *JWTManager) SessionTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return m.cfg.RememberMeExpire
	}
	return m.cfg.AccessTokenExpire
}

func (m *JWTManager) KeyID() string {
	return m.kid
}
