package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the verified actor behind a request.
type Identity struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type Claims struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid or expired token")

type JWT struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWT(secret string, ttl time.Duration) (*JWT, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is not set")
	}
	if ttl <= 0 {
		ttl = time.Hour * 168
	}
	return &JWT{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (j *JWT) Generate(id Identity) (string, error) {
	now := j.now()
	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "crewboard",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// Verify checks signature and expiry and returns the identity carried by
// the token. It has no side effects.
func (j *JWT) Verify(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(j.now))

	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	if claims.UserID == 0 || claims.Role == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}
