package token

import (
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the asymmetric algorithm used for gateway credentials.
type SigningMethod string

const (
	// MethodRS256 signs with an RSA private key and verifies with the paired
	// public key. This is the default.
	MethodRS256 SigningMethod = "rs256"
	// MethodEd25519 signs with an Ed25519 private key.
	MethodEd25519 SigningMethod = "ed25519"
)

// ErrExpired reports that a credential's exp claim is in the past.
var ErrExpired = errors.New("token expired")

// ErrInvalid reports any other verification failure: bad signature, wrong
// algorithm, malformed claims.
var ErrInvalid = errors.New("token invalid")

// Config holds the codec's immutable key material and claim policy. Keys are
// loaded once at construction; nothing mutates them afterwards.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte // PEM-encoded
	PublicKey     []byte // PEM-encoded
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// Claims is the payload carried by gateway credentials. Refresh credentials
// additionally carry a unique token identifier in RegisteredClaims.ID.
type Claims struct {
	Name           string `json:"name,omitempty"`
	OrganizationID string `json:"profileOrganizationId,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs, verifies, and hashes gateway credentials. Safe for
// concurrent use after construction.
type Manager struct {
	config    Config
	signKey   any
	verifyKey any
	method    jwt.SigningMethod
}

// NewManager validates the configuration, parses both keys, and returns a
// ready codec.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid access TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodRS256
	}

	m := &Manager{config: cfg}

	switch cfg.SigningMethod {
	case MethodRS256:
		m.method = jwt.SigningMethodRS256
		if len(cfg.PrivateKey) > 0 {
			key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKey)
			if err != nil {
				return nil, errors.New("invalid rsa private key")
			}
			m.signKey = key
			m.verifyKey = &key.PublicKey
		}
		if len(cfg.PublicKey) > 0 {
			key, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKey)
			if err != nil {
				return nil, errors.New("invalid rsa public key")
			}
			m.verifyKey = key
		}
		if _, ok := m.verifyKey.(*rsa.PublicKey); !ok {
			return nil, errors.New("rs256 requires a public or private key")
		}
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			key, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = key
			m.verifyKey = key.Public()
		}
		if len(cfg.PublicKey) > 0 {
			key, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verifyKey = key
		}
		if _, ok := m.verifyKey.(ed25519.PublicKey); !ok {
			return nil, errors.New("ed25519 requires a public or private key")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return m, nil
}

// IssueAccess signs a short-lived access credential for the subject. The TTL
// is the fixed policy value from Config, not the provider's expiry.
func (m *Manager) IssueAccess(subject, name, organizationID string) (string, error) {
	return m.issue(subject, name, organizationID, "", m.config.AccessTTL)
}

// IssueRefresh signs a refresh credential carrying a fresh unique token
// identifier. ttl is derived by the caller from the provider refresh token's
// remaining lifetime. Returns the credential and its token identifier.
func (m *Manager) IssueRefresh(subject, name, organizationID string, ttl time.Duration) (string, string, error) {
	jti := uuid.NewString()
	signed, err := m.issue(subject, name, organizationID, jti, ttl)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

func (m *Manager) issue(subject, name, organizationID, jti string, ttl time.Duration) (string, error) {
	if m.signKey == nil {
		return "", errors.New("codec has no private key")
	}

	now := time.Now()
	claims := Claims{
		Name:           name,
		OrganizationID: organizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	return jwt.NewWithClaims(m.method, claims).SignedString(m.signKey)
}

// Parse verifies signature, expiry, and registered-claim policy, and returns
// the decoded claims. Expired credentials fail with [ErrExpired]; every other
// failure maps to [ErrInvalid] so callers cannot distinguish forgery from
// malformed input.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}

// Hash returns the deterministic one-way digest of a credential, used only
// for equality checks against stored records. The store never holds the raw
// bearer token.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
