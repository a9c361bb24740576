package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/billo/billo/internal/models"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := models.NewUser("user_1", "Alice", "alice@example.com", "https://img/a.png")

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "user_1" || claims.Email != "alice@example.com" || claims.Name != "Alice" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ImageURL != "https://img/a.png" {
		t.Errorf("image = %q", claims.ImageURL)
	}
}

func TestJWTValidateRejects(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := models.NewUser("user_1", "Alice", "alice@example.com", "")

	other, _ := NewJWTManager("other-secret", time.Hour).Generate(user)
	expired, _ := NewJWTManager("test-secret", -time.Minute).Generate(user)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Email: "x@example.com"})
	noUserToken, _ := noUser.SignedString([]byte("test-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", other},
		{"expired", expired},
		{"missing user id", noUserToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestJWTSubjectFallback(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_sub",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	claims, err := NewJWTManager("k", time.Hour).Validate(s)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "user_sub" {
		t.Errorf("UserID = %q, want user_sub", claims.UserID)
	}
}
