package domain

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Track é uma faixa do catálogo.
type Track struct {
	ID             string    `json:"id"`
	Title          string    `json:"title" validate:"required,max=200"`
	Artist         string    `json:"artist" validate:"required,max=200"`
	Genre          string    `json:"genre"`
	BPM            int       `json:"bpm" validate:"gte=0,lte=400"`
	Duration       string    `json:"duration"`
	StreamURL      string    `json:"stream_url" validate:"omitempty,url"`
	ArtworkURL     string    `json:"artwork_url" validate:"omitempty,url"`
	Moods          []string  `json:"moods"`
	UseCases       []string  `json:"use_cases"`
	SimilarArtists []string  `json:"similar_artists"`
	Energy         string    `json:"energy"`
	BestMoments    string    `json:"best_moments"`
	IsActive       bool      `json:"is_active"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Alternate é uma versão alternativa de uma faixa (instrumental, 30s, etc.).
type Alternate struct {
	ID        string    `json:"id"`
	TrackID   string    `json:"track_id" validate:"required"`
	Title     string    `json:"title" validate:"required,max=200"`
	Version   string    `json:"version"`
	Duration  string    `json:"duration"`
	StreamURL string    `json:"stream_url" validate:"omitempty,url"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var validate = validator.New()

func (t *Track) Validate() error {
	return validate.Struct(t)
}

func (a *Alternate) Validate() error {
	return validate.Struct(a)
}
