// Package auth valida os tokens de sessão que o provedor de login entrega ao navegador.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("unauthorized")

// Claims são os dados do usuário que os handlers usam.
type Claims struct {
	Subject string
	Email   string
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier confere tokens HS256 assinados com o segredo compartilhado do provedor.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// Verify exige assinatura válida, exp no futuro e sub preenchido.
// Qualquer falha vira ErrUnauthorized para não vazar detalhes ao cliente.
func (v *Verifier) Verify(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, ErrUnauthorized
	}

	var c tokenClaims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil || c.Subject == "" {
		return Claims{}, ErrUnauthorized
	}
	return Claims{Subject: c.Subject, Email: strings.ToLower(strings.TrimSpace(c.Email))}, nil
}
