package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/willjrcristo/storefront-billing/internal/domain"
	"github.com/willjrcristo/storefront-billing/internal/payment"
	"github.com/willjrcristo/storefront-billing/internal/repository"
)

const webhookSecret = "whsec_test"

// spyProfiles conta os acessos ao repositório real.
type spyProfiles struct {
	repository.ProfileRepository
	calls int
}

func (s *spyProfiles) GetByEmail(ctx context.Context, email string) (domain.Profile, error) {
	s.calls++
	return s.ProfileRepository.GetByEmail(ctx, email)
}

func (s *spyProfiles) GetBySubscriptionID(ctx context.Context, id string) (domain.Profile, error) {
	s.calls++
	return s.ProfileRepository.GetBySubscriptionID(ctx, id)
}

func (s *spyProfiles) ApplyByEmail(ctx context.Context, email string, u domain.ProfileUpdate) error {
	s.calls++
	return s.ProfileRepository.ApplyByEmail(ctx, email, u)
}

func (s *spyProfiles) ApplyBySubscriptionID(ctx context.Context, id string, u domain.ProfileUpdate) error {
	s.calls++
	return s.ProfileRepository.ApplyBySubscriptionID(ctx, id, u)
}

type countingRecorder map[string]int

func (c countingRecorder) Record(eventType string, result Result) {
	c[eventType+"/"+string(result)]++
}

type webhookFixture struct {
	svc      *WebhookService
	profiles *spyProfiles
	recorder countingRecorder
}

func newWebhookFixture(t *testing.T, escalate bool) webhookFixture {
	t.Helper()
	repo, events := newProfiles(t)
	spy := &spyProfiles{ProfileRepository: repo}
	rec := countingRecorder{}

	seedProfile(t, repo, domain.Profile{ID: "u1", Email: "a@b.com"})
	linkSubscription(t, repo, "a@b.com", "cus_1", "sub_1", fixedNow.Add(-time.Hour))

	reconciler := newTestReconciler(spy, nil, ReconcilerConfig{})
	svc := NewWebhookService(payment.NewWebhookVerifier(webhookSecret), events, reconciler, WebhookOptions{
		EscalateUnresolved: escalate,
		Recorder:           rec,
		Now:                func() time.Time { return fixedNow },
	}, discardLog)
	return webhookFixture{svc: svc, profiles: spy, recorder: rec}
}

func signed(payload string) (body []byte, header string) {
	s := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: []byte(payload), Secret: webhookSecret})
	return s.Payload, s.Header
}

const deletedEvent = `{"id":"evt_del","object":"event","type":"customer.subscription.deleted","created":1751364000,
	"data":{"object":{"id":"sub_1","object":"subscription"}}}`

func TestWebhookService_AssinaturaInvalida(t *testing.T) {
	f := newWebhookFixture(t, false)
	body, _ := signed(deletedEvent)

	for name, header := range map[string]string{
		"sem header":      "",
		"header inválido": "t=1,v1=deadbeef",
	} {
		t.Run(name, func(t *testing.T) {
			out, err := f.svc.HandleStripeWebhook(context.Background(), body, header)
			assert.ErrorIs(t, err, ErrWebhookSignature)
			assert.Equal(t, ResultRejected, out.Result)
		})
	}

	assert.Zero(t, f.profiles.calls, "nenhum acesso ao repositório antes da verificação")
	assert.Equal(t, 2, f.recorder["unknown/rejected"])
	assert.Equal(t, domain.StatusActive, getProfile(t, f.profiles, "u1").SubscriptionStatus)
}

func TestWebhookService_ReentregaDuplicada(t *testing.T) {
	f := newWebhookFixture(t, false)
	ctx := context.Background()

	body, header := signed(deletedEvent)
	out, err := f.svc.HandleStripeWebhook(ctx, body, header)
	require.NoError(t, err)
	assert.Equal(t, ResultApplied, out.Result)
	assert.Equal(t, domain.StatusExpired, getProfile(t, f.profiles, "u1").SubscriptionStatus)

	calls := f.profiles.calls
	body, header = signed(deletedEvent)
	out, err = f.svc.HandleStripeWebhook(ctx, body, header)
	require.NoError(t, err)
	assert.Equal(t, ResultDuplicate, out.Result)
	assert.Equal(t, calls, f.profiles.calls, "reentrega não roda o tratador de novo")

	assert.Equal(t, 1, f.recorder[EventSubscriptionDeleted+"/applied"])
	assert.Equal(t, 1, f.recorder[EventSubscriptionDeleted+"/duplicate"])
}

func TestWebhookService_EventoSemPerfil(t *testing.T) {
	orphan := `{"id":"evt_orphan","object":"event","type":"customer.subscription.deleted","created":1751364000,
		"data":{"object":{"id":"sub_404","object":"subscription"}}}`

	t.Run("reconhecido por padrão", func(t *testing.T) {
		f := newWebhookFixture(t, false)
		body, header := signed(orphan)

		out, err := f.svc.HandleStripeWebhook(context.Background(), body, header)
		require.NoError(t, err)
		assert.Equal(t, ResultUnresolvable, out.Result)

		// Já foi reconhecido: a reentrega é duplicada.
		body, header = signed(orphan)
		out, err = f.svc.HandleStripeWebhook(context.Background(), body, header)
		require.NoError(t, err)
		assert.Equal(t, ResultDuplicate, out.Result)
	})

	t.Run("escalado quando configurado", func(t *testing.T) {
		f := newWebhookFixture(t, true)
		body, header := signed(orphan)

		_, err := f.svc.HandleStripeWebhook(context.Background(), body, header)
		var unres *UnresolvableError
		require.ErrorAs(t, err, &unres)
		assert.False(t, errors.Is(err, ErrWebhookSignature))

		// Falhou, então a reentrega é processada de novo.
		body, header = signed(orphan)
		out, err := f.svc.HandleStripeWebhook(context.Background(), body, header)
		require.ErrorAs(t, err, &unres)
		assert.Equal(t, ResultUnresolvable, out.Result)
	})
}

func TestWebhookService_CheckoutSemEmailNaoFalha(t *testing.T) {
	f := newWebhookFixture(t, false)
	before := getProfile(t, f.profiles, "u1")

	body, header := signed(`{"id":"evt_guest","object":"event","type":"checkout.session.completed","created":1751364000,
		"data":{"object":{"id":"cs_1","object":"checkout.session","customer":"cus_9","subscription":"sub_9"}}}`)
	out, err := f.svc.HandleStripeWebhook(context.Background(), body, header)
	require.NoError(t, err)
	assert.Equal(t, ResultUnresolvable, out.Result)
	assert.Equal(t, before, getProfile(t, f.profiles, "u1"))
}
