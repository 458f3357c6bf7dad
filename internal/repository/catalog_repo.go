package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/willjrcristo/storefront-billing/internal/domain"
)

var (
	ErrTrackNotFound     = errors.New("faixa não encontrada")
	ErrAlternateNotFound = errors.New("versão alternativa não encontrada")
	ErrInvalidField      = errors.New("campo inválido")
)

// CatalogRepository guarda as faixas e suas versões alternativas.
type CatalogRepository interface {
	ListTracks(ctx context.Context) ([]domain.Track, error)
	ListAlternates(ctx context.Context, trackID string) ([]domain.Alternate, error)

	CreateTrack(ctx context.Context, t domain.Track) (domain.Track, error)
	CreateAlternate(ctx context.Context, a domain.Alternate) (domain.Alternate, error)

	// UpdateTrack e UpdateAlternate aplicam uma atualização parcial. As chaves
	// são nomes de coluna; colunas fora da lista permitida geram ErrInvalidField.
	UpdateTrack(ctx context.Context, id string, fields map[string]any) (domain.Track, error)
	UpdateAlternate(ctx context.Context, id string, fields map[string]any) (domain.Alternate, error)

	DeleteTrack(ctx context.Context, id string) error
	DeleteAlternate(ctx context.Context, id string) error
}

type columnKind int

const (
	kindText columnKind = iota
	// kindRequired é texto que não pode ficar nulo nem em branco.
	kindRequired
	kindInt
	kindBool
	kindList
)

var trackColumns = map[string]columnKind{
	"title":           kindRequired,
	"artist":          kindRequired,
	"genre":           kindText,
	"bpm":             kindInt,
	"duration":        kindText,
	"stream_url":      kindText,
	"artwork_url":     kindText,
	"moods":           kindList,
	"use_cases":       kindList,
	"similar_artists": kindList,
	"energy":          kindText,
	"best_moments":    kindText,
	"is_active":       kindBool,
	"sort_order":      kindInt,
}

var alternateColumns = map[string]columnKind{
	"track_id":   kindRequired,
	"title":      kindRequired,
	"version":    kindText,
	"duration":   kindText,
	"stream_url": kindText,
	"sort_order": kindInt,
}

type catalogRepository struct {
	store
	now func() time.Time
}

func NewCatalogRepository(db *sql.DB, driver string) CatalogRepository {
	return &catalogRepository{store: store{db: db, driver: driver}, now: time.Now}
}

const trackSelect = `SELECT id, title, artist, genre, bpm, duration, stream_url, artwork_url,
	moods, use_cases, similar_artists, energy, best_moments, is_active, sort_order, created_at, updated_at
	FROM tracks`

const alternateSelect = `SELECT id, track_id, title, version, duration, stream_url, sort_order, created_at, updated_at
	FROM alternates`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(s scanner) (domain.Track, error) {
	var (
		t                               domain.Track
		moods, useCases, similarArtists string
	)
	err := s.Scan(&t.ID, &t.Title, &t.Artist, &t.Genre, &t.BPM, &t.Duration, &t.StreamURL, &t.ArtworkURL,
		&moods, &useCases, &similarArtists, &t.Energy, &t.BestMoments, &t.IsActive, &t.SortOrder, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Track{}, err
	}
	for _, l := range []struct {
		raw string
		dst *[]string
	}{{moods, &t.Moods}, {useCases, &t.UseCases}, {similarArtists, &t.SimilarArtists}} {
		if err := json.Unmarshal([]byte(l.raw), l.dst); err != nil {
			return domain.Track{}, fmt.Errorf("lista corrompida na faixa %s: %w", t.ID, err)
		}
	}
	t.CreatedAt, t.UpdatedAt = t.CreatedAt.UTC(), t.UpdatedAt.UTC()
	return t, nil
}

func scanAlternate(s scanner) (domain.Alternate, error) {
	var a domain.Alternate
	err := s.Scan(&a.ID, &a.TrackID, &a.Title, &a.Version, &a.Duration, &a.StreamURL, &a.SortOrder, &a.CreatedAt, &a.UpdatedAt)
	a.CreatedAt, a.UpdatedAt = a.CreatedAt.UTC(), a.UpdatedAt.UTC()
	return a, err
}

func (r *catalogRepository) ListTracks(ctx context.Context) ([]domain.Track, error) {
	rows, err := r.db.QueryContext(ctx, trackSelect+" ORDER BY sort_order, title")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := []domain.Track{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func (r *catalogRepository) ListAlternates(ctx context.Context, trackID string) ([]domain.Alternate, error) {
	rows, err := r.db.QueryContext(ctx, r.q(alternateSelect+" WHERE track_id = ? ORDER BY sort_order, title"), trackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alternates := []domain.Alternate{}
	for rows.Next() {
		a, err := scanAlternate(rows)
		if err != nil {
			return nil, err
		}
		alternates = append(alternates, a)
	}
	return alternates, rows.Err()
}

func (r *catalogRepository) CreateTrack(ctx context.Context, t domain.Track) (domain.Track, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := r.now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	lists := make([]string, 0, 3)
	for _, l := range [][]string{t.Moods, t.UseCases, t.SimilarArtists} {
		lists = append(lists, encodeList(l))
	}

	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO tracks (
		id, title, artist, genre, bpm, duration, stream_url, artwork_url,
		moods, use_cases, similar_artists, energy, best_moments, is_active, sort_order, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.Title, t.Artist, t.Genre, t.BPM, t.Duration, t.StreamURL, t.ArtworkURL,
		lists[0], lists[1], lists[2], t.Energy, t.BestMoments, t.IsActive, t.SortOrder, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return domain.Track{}, err
	}
	return r.getTrack(ctx, t.ID)
}

func (r *catalogRepository) CreateAlternate(ctx context.Context, a domain.Alternate) (domain.Alternate, error) {
	if _, err := r.getTrack(ctx, a.TrackID); err != nil {
		return domain.Alternate{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := r.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO alternates (
		id, track_id, title, version, duration, stream_url, sort_order, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		a.ID, a.TrackID, a.Title, a.Version, a.Duration, a.StreamURL, a.SortOrder, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return domain.Alternate{}, err
	}
	return r.getAlternate(ctx, a.ID)
}

func (r *catalogRepository) UpdateTrack(ctx context.Context, id string, fields map[string]any) (domain.Track, error) {
	if err := r.update(ctx, "tracks", trackColumns, id, fields, ErrTrackNotFound); err != nil {
		return domain.Track{}, err
	}
	return r.getTrack(ctx, id)
}

func (r *catalogRepository) UpdateAlternate(ctx context.Context, id string, fields map[string]any) (domain.Alternate, error) {
	if err := r.update(ctx, "alternates", alternateColumns, id, fields, ErrAlternateNotFound); err != nil {
		return domain.Alternate{}, err
	}
	return r.getAlternate(ctx, id)
}

func (r *catalogRepository) DeleteTrack(ctx context.Context, id string) error {
	return r.delete(ctx, "tracks", id, ErrTrackNotFound)
}

func (r *catalogRepository) DeleteAlternate(ctx context.Context, id string) error {
	return r.delete(ctx, "alternates", id, ErrAlternateNotFound)
}

func (r *catalogRepository) getTrack(ctx context.Context, id string) (domain.Track, error) {
	t, err := scanTrack(r.db.QueryRowContext(ctx, r.q(trackSelect+" WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Track{}, ErrTrackNotFound
	}
	return t, err
}

func (r *catalogRepository) getAlternate(ctx context.Context, id string) (domain.Alternate, error) {
	a, err := scanAlternate(r.db.QueryRowContext(ctx, r.q(alternateSelect+" WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Alternate{}, ErrAlternateNotFound
	}
	return a, err
}

func (r *catalogRepository) update(ctx context.Context, table string, allowed map[string]columnKind, id string, fields map[string]any, notFound error) error {
	// Ordena as colunas para que a query gerada seja determinística.
	columns := make([]string, 0, len(fields))
	for c := range fields {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	sets := make([]string, 0, len(columns)+1)
	args := make([]any, 0, len(columns)+2)
	for _, c := range columns {
		kind, ok := allowed[c]
		if !ok {
			return fmt.Errorf("%w: %s", ErrInvalidField, c)
		}
		v, err := columnValue(kind, fields[c])
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidField, c, err)
		}
		sets = append(sets, c+" = ?")
		args = append(args, v)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, r.now().UTC(), id)

	res, err := r.db.ExecContext(ctx, r.q("UPDATE "+table+" SET "+strings.Join(sets, ", ")+" WHERE id = ?"), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (r *catalogRepository) delete(ctx context.Context, table, id string, notFound error) error {
	res, err := r.db.ExecContext(ctx, r.q("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// columnValue converte um valor vindo de JSON (string, float64, bool, []any)
// para o tipo que a coluna espera.
func columnValue(kind columnKind, v any) (any, error) {
	switch kind {
	case kindText:
		if v == nil {
			return "", nil
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("esperava texto, recebeu %T", v)
		}
		return s, nil
	case kindRequired:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("esperava texto, recebeu %T", v)
		}
		if strings.TrimSpace(s) == "" {
			return nil, errors.New("não pode ficar em branco")
		}
		return s, nil
	case kindInt:
		switch n := v.(type) {
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("esperava inteiro, recebeu %v", n)
			}
			return int64(n), nil
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		}
		return nil, fmt.Errorf("esperava número, recebeu %T", v)
	case kindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("esperava booleano, recebeu %T", v)
		}
		return b, nil
	case kindList:
		switch l := v.(type) {
		case nil:
			return "[]", nil
		case []string:
			return encodeList(l), nil
		case []any:
			out := make([]string, 0, len(l))
			for _, item := range l {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("esperava lista de textos, item %T", item)
				}
				out = append(out, s)
			}
			return encodeList(out), nil
		}
		return nil, fmt.Errorf("esperava lista, recebeu %T", v)
	}
	return nil, fmt.Errorf("tipo de coluna desconhecido")
}

func encodeList(l []string) string {
	if l == nil {
		l = []string{}
	}
	b, _ := json.Marshal(l)
	return string(b)
}
