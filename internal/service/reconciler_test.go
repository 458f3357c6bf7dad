package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"

	"github.com/willjrcristo/storefront-billing/internal/domain"
	"github.com/willjrcristo/storefront-billing/internal/repository"
)

var (
	fixedNow   = time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// --- Fakes ---

type MockCustomerLookup struct {
	CustomerEmailFn func(ctx context.Context, customerID string) (string, error)
}

func (m *MockCustomerLookup) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	return m.CustomerEmailFn(ctx, customerID)
}

func staticCustomers(emails map[string]string) *MockCustomerLookup {
	return &MockCustomerLookup{CustomerEmailFn: func(_ context.Context, id string) (string, error) {
		return emails[id], nil
	}}
}

// --- Helpers ---

func newProfiles(t *testing.T) (repository.ProfileRepository, repository.EventRepository) {
	t.Helper()
	db, err := repository.Open(context.Background(), repository.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewProfileRepository(db, repository.DriverSQLite), repository.NewEventRepository(db, repository.DriverSQLite)
}

func newTestReconciler(profiles repository.ProfileRepository, customers CustomerLookup, cfg ReconcilerConfig) *Reconciler {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return fixedNow }
	}
	return NewReconciler(profiles, customers, cfg, discardLog)
}

func newEvent(id, eventType string, created time.Time, object string) stripe.Event {
	return stripe.Event{
		ID:      id,
		Type:    stripe.EventType(eventType),
		Created: created.Unix(),
		Data:    &stripe.EventData{Raw: json.RawMessage(object)},
	}
}

func seedProfile(t *testing.T, profiles repository.ProfileRepository, p domain.Profile) {
	t.Helper()
	require.NoError(t, profiles.Create(context.Background(), p))
}

func getProfile(t *testing.T, profiles repository.ProfileRepository, id string) domain.Profile {
	t.Helper()
	p, err := profiles.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

// linkSubscription deixa o perfil com cliente e assinatura, como depois de um checkout.
func linkSubscription(t *testing.T, profiles repository.ProfileRepository, email, customerID, subscriptionID string, at time.Time) {
	t.Helper()
	status := domain.StatusActive
	require.NoError(t, profiles.ApplyByEmail(context.Background(), email, domain.ProfileUpdate{
		StripeCustomerID:     &customerID,
		StripeSubscriptionID: &subscriptionID,
		SubscriptionStatus:   &status,
		EventAt:              at,
		UpdatedAt:            at,
	}))
}

// --- Testes ---

func TestReconciler_CheckoutCompleted(t *testing.T) {
	ctx := context.Background()
	profiles, _ := newProfiles(t)
	seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com"})
	r := newTestReconciler(profiles, nil, ReconcilerConfig{})

	t0 := fixedNow.Add(-time.Hour)
	out, err := r.Handle(ctx, newEvent("evt_1", EventCheckoutCompleted, t0,
		`{"id":"cs_1","customer":"cus_1","customer_details":{"email":"a@b.com"},"subscription":"sub_2"}`))
	require.NoError(t, err)
	assert.Equal(t, ResultApplied, out.Result)

	p := getProfile(t, profiles, "u1")
	assert.Equal(t, "cus_1", p.StripeCustomerID)
	assert.Equal(t, "sub_2", p.StripeSubscriptionID)
	assert.Equal(t, domain.StatusActive, p.SubscriptionStatus)
	assert.True(t, fixedNow.Equal(p.UpdatedAt))
	assert.True(t, t0.Equal(*p.LastEventAt))
}

func TestReconciler_CheckoutCompleted_EmailFallback(t *testing.T) {
	profiles, _ := newProfiles(t)
	seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com"})
	r := newTestReconciler(profiles, nil, ReconcilerConfig{})

	_, err := r.Handle(context.Background(), newEvent("evt_1", EventCheckoutCompleted, fixedNow,
		`{"id":"cs_1","customer":"cus_1","customer_email":"A@B.com","subscription":"sub_2"}`))
	require.NoError(t, err)
	assert.Equal(t, "sub_2", getProfile(t, profiles, "u1").StripeSubscriptionID)
}

func TestReconciler_CheckoutCompleted_SemEmail(t *testing.T) {
	profiles, _ := newProfiles(t)
	seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com"})
	before := getProfile(t, profiles, "u1")
	r := newTestReconciler(profiles, nil, ReconcilerConfig{})

	out, err := r.Handle(context.Background(), newEvent("evt_1", EventCheckoutCompleted, fixedNow,
		`{"id":"cs_1","customer":"cus_1","subscription":"sub_2"}`))

	var unres *UnresolvableError
	require.ErrorAs(t, err, &unres)
	assert.Equal(t, ResultUnresolvable, out.Result)
	assert.Equal(t, before, getProfile(t, profiles, "u1"))
}

func TestReconciler_CheckoutCompleted_CompraAvulsa(t *testing.T) {
	profiles, _ := newProfiles(t)
	seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com"})
	r := newTestReconciler(profiles, nil, ReconcilerConfig{})

	_, err := r.Handle(context.Background(), newEvent("evt_1", EventCheckoutCompleted, fixedNow,
		`{"id":"cs_1","mode":"payment","customer":"cus_1","customer_details":{"email":"a@b.com"}}`))
	require.NoError(t, err)

	p := getProfile(t, profiles, "u1")
	assert.Equal(t, "cus_1", p.StripeCustomerID)
	assert.Empty(t, p.StripeSubscriptionID)
	assert.Equal(t, domain.StatusActive, p.SubscriptionStatus)
}

func TestReconciler_SubscriptionCreated(t *testing.T) {
	ctx := context.Background()
	periodEnd := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	payload := func(price string) string {
		return `{"id":"sub_1","customer":"cus_1","status":"trialing","current_period_end":` +
			jsonInt(periodEnd.Unix()) + `,"items":{"object":"list","data":[{"id":"si_1","price":{"id":"` + price + `"}}]}}`
	}
	customers := staticCustomers(map[string]string{"cus_1": "a@b.com"})
	plans := map[string]domain.Plan{"price_annual": domain.PlanIndividualAnnual}

	t.Run("preço mapeado", func(t *testing.T) {
		profiles, _ := newProfiles(t)
		seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com"})
		r := newTestReconciler(profiles, customers, ReconcilerConfig{Plans: plans})

		out, err := r.Handle(ctx, newEvent("evt_1", EventSubscriptionCreated, fixedNow, payload("price_annual")))
		require.NoError(t, err)
		assert.Equal(t, ResultApplied, out.Result)

		p := getProfile(t, profiles, "u1")
		assert.Equal(t, "cus_1", p.StripeCustomerID)
		assert.Equal(t, "sub_1", p.StripeSubscriptionID)
		assert.Equal(t, domain.StatusActive, p.SubscriptionStatus)
		assert.Equal(t, domain.PlanIndividualAnnual, p.SubscriptionPlan)
		require.NotNil(t, p.SubscriptionCurrentPeriodEnd)
		assert.True(t, periodEnd.Equal(*p.SubscriptionCurrentPeriodEnd))
	})

	t.Run("preço desconhecido sem plano padrão", func(t *testing.T) {
		profiles, _ := newProfiles(t)
		seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com"})
		r := newTestReconciler(profiles, customers, ReconcilerConfig{Plans: plans})

		out, err := r.Handle(ctx, newEvent("evt_1", EventSubscriptionCreated, fixedNow, payload("price_x")))
		var unres *UnresolvableError
		require.ErrorAs(t, err, &unres)
		assert.Contains(t, unres.Reason, "price_x")
		assert.Equal(t, ResultUnresolvable, out.Result)
		assert.Empty(t, getProfile(t, profiles, "u1").StripeSubscriptionID)
	})

	t.Run("preço desconhecido com plano padrão", func(t *testing.T) {
		profiles, _ := newProfiles(t)
		seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com"})
		r := newTestReconciler(profiles, customers, ReconcilerConfig{Plans: plans, DefaultPlan: domain.PlanIndividualMonthly})

		_, err := r.Handle(ctx, newEvent("evt_1", EventSubscriptionCreated, fixedNow, payload("price_x")))
		require.NoError(t, err)
		assert.Equal(t, domain.PlanIndividualMonthly, getProfile(t, profiles, "u1").SubscriptionPlan)
	})

	t.Run("cliente sem email", func(t *testing.T) {
		profiles, _ := newProfiles(t)
		r := newTestReconciler(profiles, staticCustomers(nil), ReconcilerConfig{Plans: plans})

		_, err := r.Handle(ctx, newEvent("evt_1", EventSubscriptionCreated, fixedNow, payload("price_annual")))
		var unres *UnresolvableError
		assert.ErrorAs(t, err, &unres)
	})

	t.Run("falha ao consultar a Stripe", func(t *testing.T) {
		profiles, _ := newProfiles(t)
		failing := &MockCustomerLookup{CustomerEmailFn: func(context.Context, string) (string, error) {
			return "", errors.New("stripe fora do ar")
		}}
		r := newTestReconciler(profiles, failing, ReconcilerConfig{Plans: plans})

		out, err := r.Handle(ctx, newEvent("evt_1", EventSubscriptionCreated, fixedNow, payload("price_annual")))
		require.Error(t, err)
		var unres *UnresolvableError
		assert.False(t, errors.As(err, &unres))
		assert.Equal(t, ResultFailed, out.Result)
	})
}

func TestReconciler_SubscriptionUpdated_CancelAtPeriodEnd(t *testing.T) {
	for _, raw := range []string{"active", "trialing", "past_due", "canceled"} {
		t.Run(raw, func(t *testing.T) {
			profiles, _ := newProfiles(t)
			seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com"})
			linkSubscription(t, profiles, "a@b.com", "cus_1", "sub_1", fixedNow.Add(-time.Hour))
			r := newTestReconciler(profiles, nil, ReconcilerConfig{})

			_, err := r.Handle(context.Background(), newEvent("evt_1", EventSubscriptionUpdated, fixedNow,
				`{"id":"sub_1","status":"`+raw+`","cancel_at_period_end":true,"current_period_end":1782864000}`))
			require.NoError(t, err)

			p := getProfile(t, profiles, "u1")
			assert.Equal(t, domain.StatusCancelled, p.SubscriptionStatus)
			require.NotNil(t, p.SubscriptionCurrentPeriodEnd)
			assert.Equal(t, int64(1782864000), p.SubscriptionCurrentPeriodEnd.Unix())
		})
	}
}

func TestReconciler_SubscriptionUpdated_StatusNormalizado(t *testing.T) {
	profiles, _ := newProfiles(t)
	seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com"})
	linkSubscription(t, profiles, "a@b.com", "cus_1", "sub_1", fixedNow.Add(-time.Hour))
	r := newTestReconciler(profiles, nil, ReconcilerConfig{})

	_, err := r.Handle(context.Background(), newEvent("evt_1", EventSubscriptionUpdated, fixedNow,
		`{"id":"sub_1","status":"unpaid","cancel_at_period_end":false}`))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPastDue, getProfile(t, profiles, "u1").SubscriptionStatus)
}

func TestReconciler_SubscriptionDeleted(t *testing.T) {
	profiles, _ := newProfiles(t)
	seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com"})
	linkSubscription(t, profiles, "a@b.com", "cus_1", "sub_1", fixedNow.Add(-time.Hour))
	r := newTestReconciler(profiles, nil, ReconcilerConfig{})

	out, err := r.Handle(context.Background(), newEvent("evt_1", EventSubscriptionDeleted, fixedNow, `{"id":"sub_1"}`))
	require.NoError(t, err)
	assert.Equal(t, ResultApplied, out.Result)
	assert.Equal(t, domain.StatusExpired, getProfile(t, profiles, "u1").SubscriptionStatus)
}

func TestReconciler_Invoices(t *testing.T) {
	ctx := context.Background()

	t.Run("pagamento falhou", func(t *testing.T) {
		profiles, _ := newProfiles(t)
		seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com"})
		linkSubscription(t, profiles, "a@b.com", "cus_1", "sub_1", fixedNow.Add(-time.Hour))
		r := newTestReconciler(profiles, nil, ReconcilerConfig{})

		_, err := r.Handle(ctx, newEvent("evt_1", EventInvoicePaymentFailed, fixedNow, `{"id":"in_1","subscription":"sub_1"}`))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPastDue, getProfile(t, profiles, "u1").SubscriptionStatus)

		_, err = r.Handle(ctx, newEvent("evt_2", EventInvoicePaymentSuccess, fixedNow.Add(time.Minute), `{"id":"in_2","subscription":"sub_1"}`))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusActive, getProfile(t, profiles, "u1").SubscriptionStatus)
	})

	for _, eventType := range []string{EventInvoicePaymentFailed, EventInvoicePaymentSuccess} {
		t.Run(eventType+" sem assinatura", func(t *testing.T) {
			profiles, _ := newProfiles(t)
			seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com"})
			before := getProfile(t, profiles, "u1")
			r := newTestReconciler(profiles, nil, ReconcilerConfig{})

			out, err := r.Handle(ctx, newEvent("evt_1", eventType, fixedNow, `{"id":"in_1","customer":"cus_1"}`))
			require.NoError(t, err)
			assert.Equal(t, ResultIgnored, out.Result)
			assert.Equal(t, before, getProfile(t, profiles, "u1"))
		})
	}
}

func TestReconciler_PerfilInexistente(t *testing.T) {
	profiles, _ := newProfiles(t)
	r := newTestReconciler(profiles, nil, ReconcilerConfig{})

	out, err := r.Handle(context.Background(), newEvent("evt_1", EventSubscriptionDeleted, fixedNow, `{"id":"sub_404"}`))
	var unres *UnresolvableError
	require.ErrorAs(t, err, &unres)
	assert.Equal(t, ResultUnresolvable, out.Result)
}

func TestReconciler_TipoDesconhecido(t *testing.T) {
	profiles, _ := newProfiles(t)
	r := newTestReconciler(profiles, nil, ReconcilerConfig{})

	out, err := r.Handle(context.Background(), newEvent("evt_1", "charge.refunded", fixedNow, `{"id":"ch_1"}`))
	require.NoError(t, err)
	assert.Equal(t, ResultIgnored, out.Result)
}

func TestReconciler_EventoAtrasado(t *testing.T) {
	ctx := context.Background()
	profiles, _ := newProfiles(t)
	seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com"})
	linkSubscription(t, profiles, "a@b.com", "cus_1", "sub_1", fixedNow.Add(-time.Hour))
	r := newTestReconciler(profiles, nil, ReconcilerConfig{})

	_, err := r.Handle(ctx, newEvent("evt_new", EventSubscriptionDeleted, fixedNow, `{"id":"sub_1"}`))
	require.NoError(t, err)

	// Uma fatura paga antes do cancelamento chega depois dele.
	out, err := r.Handle(ctx, newEvent("evt_old", EventInvoicePaymentSuccess, fixedNow.Add(-time.Minute), `{"id":"in_1","subscription":"sub_1"}`))
	require.NoError(t, err)
	assert.Equal(t, ResultStale, out.Result)
	assert.Equal(t, domain.StatusExpired, getProfile(t, profiles, "u1").SubscriptionStatus)
}

func TestReconciler_Idempotente(t *testing.T) {
	customers := staticCustomers(map[string]string{"cus_1": "a@b.com"})
	plans := map[string]domain.Plan{"price_b": domain.PlanBusinessYearly}

	events := []stripe.Event{
		newEvent("evt_1", EventCheckoutCompleted, fixedNow, `{"id":"cs_1","customer":"cus_1","customer_details":{"email":"a@b.com"},"subscription":"sub_1"}`),
		newEvent("evt_2", EventSubscriptionCreated, fixedNow, `{"id":"sub_1","customer":"cus_1","status":"active","current_period_end":1782864000,"items":{"data":[{"price":{"id":"price_b"}}]}}`),
		newEvent("evt_3", EventSubscriptionUpdated, fixedNow, `{"id":"sub_1","status":"active","cancel_at_period_end":true,"current_period_end":1782864000}`),
		newEvent("evt_4", EventSubscriptionDeleted, fixedNow, `{"id":"sub_1"}`),
		newEvent("evt_5", EventInvoicePaymentSuccess, fixedNow, `{"id":"in_1","subscription":"sub_1"}`),
		newEvent("evt_6", EventInvoicePaymentFailed, fixedNow, `{"id":"in_1","subscription":"sub_1"}`),
	}

	for _, ev := range events {
		t.Run(string(ev.Type), func(t *testing.T) {
			ctx := context.Background()
			profiles, _ := newProfiles(t)
			seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com"})
			linkSubscription(t, profiles, "a@b.com", "cus_0", "sub_1", fixedNow.Add(-time.Hour))
			r := newTestReconciler(profiles, customers, ReconcilerConfig{Plans: plans})

			_, err := r.Handle(ctx, ev)
			require.NoError(t, err)
			once := getProfile(t, profiles, "u1")

			_, err = r.Handle(ctx, ev)
			require.NoError(t, err)
			assert.Equal(t, once, getProfile(t, profiles, "u1"))
		})
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
