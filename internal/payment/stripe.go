// Package payment concentra tudo o que fala com a Stripe: chamadas à API e
// verificação dos webhooks.
package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// Gateway é o cliente da Stripe usado pelos serviços.
// Recebe um *client.API já configurado, então nada aqui depende de stripe.Key global.
type Gateway struct {
	api *client.API
}

// NewGateway cria o gateway a partir da secret key.
// backends pode ser nil (usa a API real) ou apontar para um servidor de teste.
func NewGateway(secretKey string, backends *stripe.Backends) *Gateway {
	return &Gateway{api: client.New(secretKey, backends)}
}

// CustomerEmail busca o email cadastrado no cliente da Stripe.
// Clientes apagados ou sem email devolvem "" sem erro.
func (g *Gateway) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := g.api.Customers.Get(customerID, params)
	if err != nil {
		return "", fmt.Errorf("stripe: buscar cliente %s: %w", customerID, err)
	}
	if c.Deleted {
		return "", nil
	}
	return c.Email, nil
}

// CreateCheckoutSession cria a sessão de checkout hospedada pela Stripe.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: criar sessão de checkout: %w", err)
	}
	return s, nil
}

// CreatePortalSession abre uma sessão do portal de cobrança para o cliente e devolve a URL.
func (g *Gateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: criar sessão do portal: %w", err)
	}
	return s.URL, nil
}
