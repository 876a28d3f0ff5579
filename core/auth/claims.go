package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/user"
)

var (
	ErrInvalidToken = errors.New("invalid token")

	signingMethod = jwt.SigningMethodHS256
)

// Claims represents the authorization claims transmitted via a JWT.
// Role-specific IDs are only set for their role.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt  int64  `json:"oriat,omitempty"`
	ID            string `json:"id"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Role          string `json:"role"`
	SchoolID      string `json:"schoolId,omitempty"`
	TeacherID     string `json:"teacherId,omitempty"`
	StudentID     string `json:"studentId,omitempty"`
	ParentID      string `json:"parentId,omitempty"`
	AdminID       string `json:"adminId,omitempty"`
	SchoolAdminID string `json:"schoolAdminId,omitempty"`
}

// NewClaims returns the Claims of usr, valid for ttl.
// origIat is the issue time of the first token of a refresh chain.
func NewClaims(usr user.User, ttl time.Duration, issuer string, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 && origIat[0] > 0 {
		oriat = origIat[0]
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    issuer,
			Subject:   usr.ID,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		ID:           usr.ID,
		Email:        usr.Email,
		Name:         usr.Name,
		Role:         usr.Role,
		SchoolID:     usr.SchoolID,
	}

	switch usr.Role {
	case user.RoleAdmin:
		claims.AdminID = usr.ID
		claims.SchoolID = ""
	case user.RoleSchool:
		claims.SchoolAdminID = usr.ProfileID
	case user.RoleTeacher:
		claims.TeacherID = usr.ProfileID
	case user.RoleStudent:
		claims.StudentID = usr.ProfileID
	case user.RoleParent:
		claims.ParentID = usr.ProfileID
	}
	return claims
}

func (c *Claims) ExpiresAtTime() time.Time { return time.Unix(c.ExpiresAt, 0) }

// Sign returns the HS256-signed token string of claims.
func Sign(claims *Claims, key []byte) (string, error) {
	ss, err := jwt.NewWithClaims(signingMethod, claims).SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Parse verifies the token signature & expiry and returns its claims.
func Parse(token string, key []byte) (*Claims, error) {
	claims := new(Claims)
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != signingMethod.Alg() {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseUnverified decodes the token payload without checking its signature,
// the way a client that does not hold the signing key reads its own token.
func ParseUnverified(token string) (*Claims, error) {
	claims := new(Claims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, "decoding token")
	}
	return claims, nil
}
