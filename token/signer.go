package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid reports a token whose signature, format, or claims
	// failed verification.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired reports a well-formed token past its expiry claim.
	ErrTokenExpired = errors.New("token expired")
)

// Config defines the two signing contexts. Each class carries its own
// symmetric secret and lifetime so that a leaked access secret never
// validates refresh tokens and vice versa.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// Signer mints and verifies access and refresh tokens. A Signer is immutable
// and safe for concurrent use.
type Signer struct {
	config Config
}

// Claims is the payload carried by both token classes: the account ID in the
// registered subject claim plus the account email.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewSigner validates the configuration and returns a Signer.
//
// NewSigner may return an error when input validation fails: both secrets
// must be non-empty and distinct, both TTLs positive, and leeway bounded.
func NewSigner(cfg Config) (*Signer, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access secret required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh secret required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Signer{config: cfg}, nil
}

// SignAccess mints a short-lived access token for the given subject.
func (s *Signer) SignAccess(subject, email string) (string, error) {
	return s.sign(s.config.AccessSecret, s.config.AccessTTL, subject, email)
}

// SignRefresh mints a long-lived refresh token for the given subject.
func (s *Signer) SignRefresh(subject, email string) (string, error) {
	return s.sign(s.config.RefreshSecret, s.config.RefreshTTL, subject, email)
}

// VerifyAccess parses and validates a token against the access context.
//
// VerifyAccess returns [ErrTokenExpired] when the expiry claim has passed and
// [ErrTokenInvalid] for every other failure, including tokens signed with the
// refresh secret.
func (s *Signer) VerifyAccess(tokenStr string) (*Claims, error) {
	return s.verify(s.config.AccessSecret, tokenStr)
}

// VerifyRefresh parses and validates a token against the refresh context.
func (s *Signer) VerifyRefresh(tokenStr string) (*Claims, error) {
	return s.verify(s.config.RefreshSecret, tokenStr)
}

// AccessTTL reports the configured access-token lifetime.
func (s *Signer) AccessTTL() time.Duration {
	return s.config.AccessTTL
}

// RefreshTTL reports the configured refresh-token lifetime.
func (s *Signer) RefreshTTL() time.Duration {
	return s.config.RefreshTTL
}

func (s *Signer) sign(secret []byte, ttl time.Duration, subject, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *Signer) verify(secret []byte, tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
