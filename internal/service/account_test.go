package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willjrcristo/storefront-billing/internal/domain"
)

type MockPortalGateway struct {
	CreatePortalSessionFn func(ctx context.Context, customerID, returnURL string) (string, error)
}

func (m *MockPortalGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	return m.CreatePortalSessionFn(ctx, customerID, returnURL)
}

type MockURLSigner struct {
	PresignDownloadFn func(ctx context.Context, key string, ttl time.Duration) (string, error)
}

func (m *MockURLSigner) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return m.PresignDownloadFn(ctx, key, ttl)
}

func TestAccountService_CreatePortalSession(t *testing.T) {
	ctx := context.Background()
	profiles, _ := newProfiles(t)
	seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com", StripeCustomerID: "cus_1"})
	seedProfile(t, profiles, domain.Profile{ID: "u2", Email: "c@d.com"})

	portal := &MockPortalGateway{CreatePortalSessionFn: func(_ context.Context, customerID, returnURL string) (string, error) {
		assert.Equal(t, "cus_1", customerID)
		assert.Equal(t, "https://shop.test/account.html", returnURL)
		return "https://billing.stripe.com/p/session/x", nil
	}}
	svc := NewAccountService(profiles, portal, nil, "https://shop.test/", 0, discardLog)

	url, err := svc.CreatePortalSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/session/x", url)

	_, err = svc.CreatePortalSession(ctx, "u2")
	assert.ErrorIs(t, err, ErrNoBillingAccount)

	_, err = svc.CreatePortalSession(ctx, "nope")
	assert.ErrorIs(t, err, ErrNoBillingAccount)
}

func TestAccountService_CreateDownloadLink(t *testing.T) {
	ctx := context.Background()
	profiles, _ := newProfiles(t)
	seedProfile(t, profiles, domain.Profile{ID: "u1", Email: "a@b.com", SubscriptionStatus: domain.StatusActive})
	for id, status := range map[string]domain.SubscriptionStatus{
		"u2": domain.StatusCancelled,
		"u3": domain.StatusPastDue,
		"u4": domain.StatusExpired,
	} {
		seedProfile(t, profiles, domain.Profile{ID: id, Email: id + "@b.com", SubscriptionStatus: status})
	}

	signer := &MockURLSigner{PresignDownloadFn: func(_ context.Context, key string, ttl time.Duration) (string, error) {
		assert.Equal(t, 5*time.Minute, ttl)
		if key == "broken.wav" {
			return "", errors.New("sem credenciais")
		}
		return "https://r2.test/tracks/" + key + "?X-Amz-Signature=abc", nil
	}}
	svc := NewAccountService(profiles, nil, signer, "https://shop.test", 5*time.Minute, discardLog)

	t.Run("assinante ativo", func(t *testing.T) {
		link, err := svc.CreateDownloadLink(ctx, "A@b.com", "packs/song.wav")
		require.NoError(t, err)
		assert.Equal(t, "https://r2.test/tracks/packs/song.wav?X-Amz-Signature=abc", link.URL)
		assert.Equal(t, 300, link.ExpiresIn)
	})

	t.Run("sem assinatura ativa", func(t *testing.T) {
		for _, email := range []string{"u2@b.com", "u3@b.com", "u4@b.com", "ninguem@b.com", ""} {
			_, err := svc.CreateDownloadLink(ctx, email, "packs/song.wav")
			assert.ErrorIs(t, err, ErrNoActiveSubscription, email)
		}
	})

	t.Run("sem filePath", func(t *testing.T) {
		_, err := svc.CreateDownloadLink(ctx, "a@b.com", " ")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("falha ao assinar", func(t *testing.T) {
		_, err := svc.CreateDownloadLink(ctx, "a@b.com", "broken.wav")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoActiveSubscription)
	})
}
