package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in token claims.
const (
	RoleBorrower = "borrower"
	RoleLender   = "lender"
)

// Party identifies an authenticated caller.
type Party struct {
	ID   string
	Role string
}

// Manager issues and parses bearer tokens for loan parties.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// GenerateToken issues a signed token for the given party.
func (m *Manager) GenerateToken(partyID, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  partyID,
		"role": role,
		"exp":  time.Now().Add(m.ttl).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken validates a token and returns the party it identifies.
func (m *Manager) ParseToken(tokenStr string) (*Party, error) {
	tkn, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := tkn.Claims.(jwt.MapClaims)
	if !ok || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || (role != RoleBorrower && role != RoleLender) {
		return nil, errors.New("token missing party claims")
	}
	return &Party{ID: sub, Role: role}, nil
}

// CanSubmit reports whether the party may submit a payment on the loan.
// Only the loan's borrower qualifies.
func CanSubmit(p *Party, borrowerID string) bool {
	return p != nil && p.Role == RoleBorrower && p.ID == borrowerID
}

// CanDecide reports whether the party may approve or reject payments on the
// loan. Only the loan's lender qualifies.
func CanDecide(p *Party, lenderID string) bool {
	return p != nil && p.Role == RoleLender && p.ID == lenderID
}
