package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/stripe/stripe-go/v78"
)

// CheckoutGateway cria sessões de checkout na Stripe.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// CheckoutPrices são os Price IDs das assinaturas.
type CheckoutPrices struct {
	IndividualMonthly string
	IndividualAnnual  string
	Business          string
}

type CheckoutItem struct {
	TrackID    string  `json:"trackId" validate:"required"`
	TrackTitle string  `json:"trackTitle" validate:"required"`
	License    string  `json:"license" validate:"required,oneof=individual business"`
	Price      float64 `json:"price" validate:"gt=0"`
}

// CheckoutRequest é o corpo de POST /api/create-checkout-session.
// Mode "subscription" usa PlanType/BillingPeriod; qualquer outro valor é compra avulsa de Items.
type CheckoutRequest struct {
	Mode          string         `json:"mode"`
	PlanType      string         `json:"planType" validate:"omitempty,oneof=individual business"`
	BillingPeriod string         `json:"billingPeriod" validate:"omitempty,oneof=monthly annual"`
	Items         []CheckoutItem `json:"items" validate:"dive"`
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type CheckoutService struct {
	gateway  CheckoutGateway
	prices   CheckoutPrices
	siteURL  string
	validate *validator.Validate
}

func NewCheckoutService(gateway CheckoutGateway, prices CheckoutPrices, siteURL string) *CheckoutService {
	return &CheckoutService{
		gateway:  gateway,
		prices:   prices,
		siteURL:  strings.TrimRight(siteURL, "/"),
		validate: validator.New(),
	}
}

// CreateCheckoutSession monta a sessão de assinatura ou de compra avulsa.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	if err := s.validate.Struct(req); err != nil {
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(s.siteURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(s.siteURL + "/"),
		Metadata:           map[string]string{},
	}

	if req.Mode == string(stripe.CheckoutSessionModeSubscription) {
		period := req.BillingPeriod
		if period == "" {
			period = "annual"
		}
		priceID := s.prices.Business
		if req.PlanType == "individual" {
			priceID = s.prices.IndividualAnnual
			if period == "monthly" {
				priceID = s.prices.IndividualMonthly
			}
		}
		if priceID == "" {
			return CheckoutSession{}, fmt.Errorf("%w: %s/%s", ErrPriceNotConfigured, req.PlanType, period)
		}

		params.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		}
		params.Metadata["planType"] = req.PlanType
		params.Metadata["billingPeriod"] = period
	} else {
		if len(req.Items) == 0 {
			return CheckoutSession{}, fmt.Errorf("%w: nenhum item no carrinho", ErrInvalidInput)
		}

		params.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
		trackIDs := make([]string, 0, len(req.Items))
		licenses := make([]string, 0, len(req.Items))
		for _, item := range req.Items {
			params.LineItems = append(params.LineItems, lineItem(item))
			trackIDs = append(trackIDs, item.TrackID)
			licenses = append(licenses, item.License)
		}
		params.Metadata["trackIds"] = strings.Join(trackIDs, ",")
		params.Metadata["licenses"] = strings.Join(licenses, ",")
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		return CheckoutSession{}, err
	}
	return CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func lineItem(item CheckoutItem) *stripe.CheckoutSessionLineItemParams {
	description := "Business License"
	if item.License == "individual" {
		description = "Individual License"
	}
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(string(stripe.CurrencyUSD)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name:        stripe.String(item.TrackTitle),
				Description: stripe.String(description),
				Metadata: map[string]string{
					"trackId": item.TrackID,
					"license": item.License,
				},
			},
			// Valor em centavos.
			UnitAmount: stripe.Int64(int64(math.Round(item.Price * 100))),
		},
		Quantity: stripe.Int64(1),
	}
}
