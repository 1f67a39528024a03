package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Actor request identity supplied by the host courseware at LTI launch.
// The core never authenticates; it only authorizes against these flags.
type Actor struct {
	ID         int64
	CourseID   int64
	IsAdmin    bool
	IsTeaching bool
	IsStudent  bool
	IsObserver bool
}

// CanViewDeleted reports whether the actor may see soft-deleted boards.
func (a *Actor) CanViewDeleted() bool {
	return a.IsAdmin || a.IsTeaching
}

// Claims launch-session token claims
type Claims struct {
	UserID     int64 `json:"user_id"`
	CourseID   int64 `json:"course_id"`
	IsAdmin    bool  `json:"is_admin"`
	IsTeaching bool  `json:"is_teaching"`
	IsStudent  bool  `json:"is_student"`
	IsObserver bool  `json:"is_observer"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the core's actor context.
func (c *Claims) Actor() *Actor {
	return &Actor{
		ID:         c.UserID,
		CourseID:   c.CourseID,
		IsAdmin:    c.IsAdmin,
		IsTeaching: c.IsTeaching,
		IsStudent:  c.IsStudent,
		IsObserver: c.IsObserver,
	}
}

// JWTManager verifies host-issued launch-session tokens
type JWTManager struct {
	secretKey []byte
}

// NewJWTManager JWTManager constructor
func NewJWTManager(secretKey string) *JWTManager {
	return &JWTManager{secretKey: []byte(secretKey)}
}

// ValidateToken verify a launch-session token and return its claims
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
