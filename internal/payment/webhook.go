package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// ErrInvalidSignature cobre header ausente, malformado, assinatura errada e timestamp fora da janela.
var ErrInvalidSignature = errors.New("assinatura do webhook inválida")

// WebhookVerifier autentica o corpo bruto recebido da Stripe.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

// NewWebhookVerifier usa a tolerância padrão da Stripe (5 minutos).
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

// Verify confere a assinatura antes de qualquer parsing do payload.
// A versão da API do evento não é comparada com a da biblioteca: os campos
// que lemos existem em todas as versões que o endpoint pode estar usando.
func (v *WebhookVerifier) Verify(payload []byte, signatureHeader string) (stripe.Event, error) {
	if signatureHeader == "" {
		return stripe.Event{}, fmt.Errorf("%w: header Stripe-Signature ausente", ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}
