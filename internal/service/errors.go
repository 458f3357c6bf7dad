package service

import "errors"

// Erros de negócio que os handlers traduzem em status HTTP.
var (
	ErrInvalidInput         = errors.New("dados inválidos")
	ErrNoBillingAccount     = errors.New("No billing account found. Please subscribe first.")
	ErrNoActiveSubscription = errors.New("No active subscription found")
	ErrPriceNotConfigured   = errors.New("preço da Stripe não configurado para o plano")
)
