package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v78"

	"github.com/willjrcristo/storefront-billing/internal/domain"
	"github.com/willjrcristo/storefront-billing/internal/repository"
)

// Tipos de evento da Stripe que alteram o perfil.
const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventSubscriptionCreated   = "customer.subscription.created"
	EventSubscriptionUpdated   = "customer.subscription.updated"
	EventSubscriptionDeleted   = "customer.subscription.deleted"
	EventInvoicePaymentSuccess = "invoice.payment_succeeded"
	EventInvoicePaymentFailed  = "invoice.payment_failed"
)

// Result resume o que aconteceu com um evento.
type Result string

const (
	ResultApplied      Result = "applied"
	ResultIgnored      Result = "ignored"
	ResultStale        Result = "stale"
	ResultUnresolvable Result = "unresolvable"
	ResultDuplicate    Result = "duplicate"
	ResultRejected     Result = "rejected"
	ResultFailed       Result = "failed"
)

type Outcome struct {
	EventID   string
	EventType string
	Result    Result
}

// UnresolvableError indica um evento válido que não tem como ser aplicado:
// falta a chave de busca, nenhum perfil casa com ela ou o preço não é conhecido.
// Quem chama decide se reconhece o evento ou pede reenvio.
type UnresolvableError struct {
	Reason string
}

func (e *UnresolvableError) Error() string {
	return "evento não resolvido: " + e.Reason
}

func unresolvable(format string, args ...any) error {
	return &UnresolvableError{Reason: fmt.Sprintf(format, args...)}
}

// CustomerLookup resolve o email de um cliente da Stripe.
type CustomerLookup interface {
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

type ReconcilerConfig struct {
	// Plans mapeia price ID -> plano.
	Plans map[string]domain.Plan
	// DefaultPlan vale para preços fora de Plans. Vazio torna o preço desconhecido um erro.
	DefaultPlan domain.Plan
	Now         func() time.Time
}

// Reconciler traduz eventos da Stripe em atualizações de perfil.
// Nunca cria perfis: só atualiza os que encontra por email ou subscription id.
type Reconciler struct {
	profiles    repository.ProfileRepository
	customers   CustomerLookup
	plans       map[string]domain.Plan
	defaultPlan domain.Plan
	now         func() time.Time
	logger      *slog.Logger
}

func NewReconciler(profiles repository.ProfileRepository, customers CustomerLookup, cfg ReconcilerConfig, logger *slog.Logger) *Reconciler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		profiles:    profiles,
		customers:   customers,
		plans:       cfg.Plans,
		defaultPlan: cfg.DefaultPlan,
		now:         cfg.Now,
		logger:      logger,
	}
}

// Handle despacha o evento para o tratador do seu tipo. Tipos desconhecidos são
// reconhecidos sem efeito. Eventos sem perfil devolvem *UnresolvableError.
func (r *Reconciler) Handle(ctx context.Context, event stripe.Event) (Outcome, error) {
	out := Outcome{EventID: event.ID, EventType: string(event.Type)}
	log := r.logger.With("event_id", event.ID, "event_type", string(event.Type))

	at := r.eventTime(event)
	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}

	var (
		res Result
		err error
	)
	switch out.EventType {
	case EventCheckoutCompleted:
		res, err = r.checkoutCompleted(ctx, raw, at)
	case EventSubscriptionCreated:
		res, err = r.subscriptionCreated(ctx, raw, at)
	case EventSubscriptionUpdated:
		res, err = r.subscriptionUpdated(ctx, raw, at)
	case EventSubscriptionDeleted:
		res, err = r.subscriptionDeleted(ctx, raw, at)
	case EventInvoicePaymentSuccess:
		res, err = r.invoicePayment(ctx, raw, at, domain.StatusActive)
	case EventInvoicePaymentFailed:
		res, err = r.invoicePayment(ctx, raw, at, domain.StatusPastDue)
	default:
		log.Info("Webhook da Stripe recebido, mas não tratado")
		out.Result = ResultIgnored
		return out, nil
	}

	var unres *UnresolvableError
	switch {
	case errors.As(err, &unres):
		out.Result = ResultUnresolvable
		log.Warn("Evento da Stripe sem perfil correspondente", "reason", unres.Reason)
	case err != nil:
		out.Result = ResultFailed
		log.Error("Falha ao aplicar evento da Stripe", "error", err)
	default:
		out.Result = res
		log.Info("Evento da Stripe processado", "outcome", string(res))
	}
	return out, err
}

// eventTime usa o "created" do evento; o relógio local só entra se ele faltar.
func (r *Reconciler) eventTime(event stripe.Event) time.Time {
	if event.Created > 0 {
		return time.Unix(event.Created, 0).UTC()
	}
	return r.now().UTC().Truncate(time.Second)
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, raw json.RawMessage, at time.Time) (Result, error) {
	var s stripe.CheckoutSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("checkout.session inválida: %w", err)
	}

	email := ""
	if s.CustomerDetails != nil {
		email = s.CustomerDetails.Email
	}
	if email == "" {
		email = s.CustomerEmail
	}
	if email == "" {
		return "", unresolvable("checkout %s sem email do cliente", s.ID)
	}

	u := r.newUpdate(at)
	u.SubscriptionStatus = statusPtr(domain.StatusActive)
	if s.Customer != nil && s.Customer.ID != "" {
		u.StripeCustomerID = &s.Customer.ID
	}
	// Compra avulsa não tem assinatura: o id guardado não é alterado.
	if s.Subscription != nil && s.Subscription.ID != "" {
		u.StripeSubscriptionID = &s.Subscription.ID
	}
	return r.applyByEmail(ctx, email, u)
}

func (r *Reconciler) subscriptionCreated(ctx context.Context, raw json.RawMessage, at time.Time) (Result, error) {
	sub, err := decodeSubscription(raw)
	if err != nil {
		return "", err
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return "", unresolvable("assinatura %s sem cliente", sub.ID)
	}
	customerID := sub.Customer.ID

	email, err := r.customers.CustomerEmail(ctx, customerID)
	if err != nil {
		return "", err
	}
	if email == "" {
		return "", unresolvable("cliente %s sem email", customerID)
	}

	plan, err := r.planFor(sub)
	if err != nil {
		return "", err
	}

	u := r.newUpdate(at)
	u.StripeCustomerID = &customerID
	u.StripeSubscriptionID = &sub.ID
	u.SubscriptionStatus = statusPtr(domain.StatusFromProvider(string(sub.Status)))
	u.SubscriptionPlan = &plan
	u.CurrentPeriodEnd = periodEnd(sub.CurrentPeriodEnd)
	return r.applyByEmail(ctx, email, u)
}

func (r *Reconciler) subscriptionUpdated(ctx context.Context, raw json.RawMessage, at time.Time) (Result, error) {
	sub, err := decodeSubscription(raw)
	if err != nil {
		return "", err
	}

	// O status local é uma interpretação: cancelamento agendado já conta como cancelado.
	status := domain.StatusFromProvider(string(sub.Status))
	if sub.CancelAtPeriodEnd {
		status = domain.StatusCancelled
	}

	u := r.newUpdate(at)
	u.SubscriptionStatus = &status
	u.CurrentPeriodEnd = periodEnd(sub.CurrentPeriodEnd)
	return r.applyBySubscription(ctx, sub.ID, u)
}

func (r *Reconciler) subscriptionDeleted(ctx context.Context, raw json.RawMessage, at time.Time) (Result, error) {
	sub, err := decodeSubscription(raw)
	if err != nil {
		return "", err
	}
	u := r.newUpdate(at)
	u.SubscriptionStatus = statusPtr(domain.StatusExpired)
	return r.applyBySubscription(ctx, sub.ID, u)
}

func (r *Reconciler) invoicePayment(ctx context.Context, raw json.RawMessage, at time.Time, status domain.SubscriptionStatus) (Result, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return "", fmt.Errorf("invoice inválida: %w", err)
	}
	if inv.Subscription == nil || inv.Subscription.ID == "" {
		// Pagamento avulso: nada a fazer no perfil.
		return ResultIgnored, nil
	}
	u := r.newUpdate(at)
	u.SubscriptionStatus = &status
	return r.applyBySubscription(ctx, inv.Subscription.ID, u)
}

func (r *Reconciler) planFor(sub *stripe.Subscription) (domain.Plan, error) {
	priceID := ""
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}
	if plan, ok := r.plans[priceID]; ok && priceID != "" {
		return plan, nil
	}
	if r.defaultPlan != "" {
		return r.defaultPlan, nil
	}
	return "", unresolvable("preço desconhecido %q na assinatura %s", priceID, sub.ID)
}

func (r *Reconciler) newUpdate(at time.Time) domain.ProfileUpdate {
	return domain.ProfileUpdate{EventAt: at, UpdatedAt: r.now().UTC()}
}

func (r *Reconciler) applyByEmail(ctx context.Context, email string, u domain.ProfileUpdate) (Result, error) {
	return r.apply("email "+email, u,
		func() (domain.Profile, error) { return r.profiles.GetByEmail(ctx, email) },
		func() error { return r.profiles.ApplyByEmail(ctx, email, u) },
	)
}

func (r *Reconciler) applyBySubscription(ctx context.Context, subscriptionID string, u domain.ProfileUpdate) (Result, error) {
	if subscriptionID == "" {
		return "", unresolvable("evento sem subscription id")
	}
	return r.apply("assinatura "+subscriptionID, u,
		func() (domain.Profile, error) { return r.profiles.GetBySubscriptionID(ctx, subscriptionID) },
		func() error { return r.profiles.ApplyBySubscriptionID(ctx, subscriptionID, u) },
	)
}

// apply localiza o perfil e grava a atualização. Um evento mais antigo que o
// último aplicado ainda é gravado (o repositório só preenche campos vazios)
// e é reportado como ResultStale.
func (r *Reconciler) apply(key string, u domain.ProfileUpdate, get func() (domain.Profile, error), write func() error) (Result, error) {
	p, err := get()
	if errors.Is(err, repository.ErrProfileNotFound) {
		return "", unresolvable("nenhum perfil para %s", key)
	}
	if err != nil {
		return "", err
	}

	if err := write(); err != nil {
		switch {
		case errors.Is(err, repository.ErrProfileNotFound):
			return "", unresolvable("nenhum perfil para %s", key)
		case errors.Is(err, repository.ErrProfileExists):
			return "", unresolvable("%s: %v", key, err)
		}
		return "", err
	}

	if p.LastEventAt != nil && u.EventAt.Before(*p.LastEventAt) {
		return ResultStale, nil
	}
	return ResultApplied, nil
}

func decodeSubscription(raw json.RawMessage) (*stripe.Subscription, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("subscription inválida: %w", err)
	}
	return &sub, nil
}

func periodEnd(unix int64) *time.Time {
	if unix <= 0 {
		return nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t
}

func statusPtr(s domain.SubscriptionStatus) *domain.SubscriptionStatus { return &s }
