package service

import (
	"context"
	"fmt"

	"github.com/willjrcristo/storefront-billing/internal/domain"
	"github.com/willjrcristo/storefront-billing/internal/repository"
)

// CatalogService é a camada fina sobre o repositório de faixas usada pelo painel admin.
type CatalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) ListTracks(ctx context.Context) ([]domain.Track, error) {
	return s.repo.ListTracks(ctx)
}

func (s *CatalogService) ListAlternates(ctx context.Context, trackID string) ([]domain.Alternate, error) {
	return s.repo.ListAlternates(ctx, trackID)
}

func (s *CatalogService) CreateTrack(ctx context.Context, t domain.Track) (domain.Track, error) {
	if err := t.Validate(); err != nil {
		return domain.Track{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.repo.CreateTrack(ctx, t)
}

func (s *CatalogService) CreateAlternate(ctx context.Context, a domain.Alternate) (domain.Alternate, error) {
	if err := a.Validate(); err != nil {
		return domain.Alternate{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.repo.CreateAlternate(ctx, a)
}

func (s *CatalogService) UpdateTrack(ctx context.Context, id string, fields map[string]any) (domain.Track, error) {
	if id == "" {
		return domain.Track{}, fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	return s.repo.UpdateTrack(ctx, id, fields)
}

func (s *CatalogService) UpdateAlternate(ctx context.Context, id string, fields map[string]any) (domain.Alternate, error) {
	if id == "" {
		return domain.Alternate{}, fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	return s.repo.UpdateAlternate(ctx, id, fields)
}

func (s *CatalogService) DeleteTrack(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	return s.repo.DeleteTrack(ctx, id)
}

func (s *CatalogService) DeleteAlternate(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	return s.repo.DeleteAlternate(ctx, id)
}
