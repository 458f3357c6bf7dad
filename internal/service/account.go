package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/willjrcristo/storefront-billing/internal/repository"
)

// PortalGateway abre sessões do portal de cobrança da Stripe.
type PortalGateway interface {
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// URLSigner gera links temporários para objetos do bucket.
type URLSigner interface {
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type DownloadLink struct {
	URL       string `json:"downloadUrl"`
	ExpiresIn int    `json:"expiresIn"`
}

// AccountService reúne as operações do assinante logado: portal de cobrança e downloads.
type AccountService struct {
	profiles repository.ProfileRepository
	portal   PortalGateway
	signer   URLSigner
	siteURL  string
	urlTTL   time.Duration
	logger   *slog.Logger
}

func NewAccountService(profiles repository.ProfileRepository, portal PortalGateway, signer URLSigner, siteURL string, urlTTL time.Duration, logger *slog.Logger) *AccountService {
	if urlTTL <= 0 {
		urlTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		profiles: profiles,
		portal:   portal,
		signer:   signer,
		siteURL:  strings.TrimRight(siteURL, "/"),
		urlTTL:   urlTTL,
		logger:   logger,
	}
}

// CreatePortalSession devolve a URL do portal para o perfil userID.
func (s *AccountService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return "", ErrNoBillingAccount
	}
	if err != nil {
		return "", err
	}
	if p.StripeCustomerID == "" {
		return "", ErrNoBillingAccount
	}
	return s.portal.CreatePortalSession(ctx, p.StripeCustomerID, s.siteURL+"/account.html")
}

// CreateDownloadLink só assina a URL para perfis com assinatura ativa.
func (s *AccountService) CreateDownloadLink(ctx context.Context, email, filePath string) (DownloadLink, error) {
	p, err := s.profiles.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return DownloadLink{}, ErrNoActiveSubscription
	}
	if err != nil {
		return DownloadLink{}, err
	}
	if !p.HasActiveSubscription() {
		s.logger.Info("Download negado: assinatura não está ativa", "profile_id", p.ID, "status", string(p.SubscriptionStatus))
		return DownloadLink{}, ErrNoActiveSubscription
	}

	if strings.TrimSpace(filePath) == "" {
		return DownloadLink{}, fmt.Errorf("%w: Missing filePath parameter", ErrInvalidInput)
	}

	url, err := s.signer.PresignDownload(ctx, filePath, s.urlTTL)
	if err != nil {
		return DownloadLink{}, err
	}
	s.logger.Info("URL de download gerada", "profile_id", p.ID, "plan", string(p.SubscriptionPlan), "file", filePath)
	return DownloadLink{URL: url, ExpiresIn: int(s.urlTTL / time.Second)}, nil
}
