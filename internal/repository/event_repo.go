package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrDuplicateEvent indica que o evento já foi processado com sucesso antes.
var ErrDuplicateEvent = errors.New("evento de webhook já processado")

const (
	eventStatusProcessing = "processing"
	eventStatusProcessed  = "processed"
	eventStatusFailed     = "failed"
)

// EventRepository é o livro-razão dos eventos de webhook recebidos.
// A Stripe entrega pelo menos uma vez; o registro permite reconhecer reentregas.
type EventRepository interface {
	// Begin registra o evento. Um evento que falhou antes pode recomeçar;
	// um evento já processado devolve ErrDuplicateEvent.
	Begin(ctx context.Context, id, eventType string, receivedAt time.Time) error
	// Finish grava o resultado. procErr != nil marca o evento como falho.
	Finish(ctx context.Context, id, result string, procErr error, at time.Time) error
}

type eventRepository struct {
	store
}

func NewEventRepository(db *sql.DB, driver string) EventRepository {
	return &eventRepository{store{db: db, driver: driver}}
}

func (r *eventRepository) Begin(ctx context.Context, id, eventType string, receivedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, r.q(`INSERT INTO webhook_events (id, event_type, status, received_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`),
		id, eventType, eventStatusProcessing, receivedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 1 {
		return nil
	}

	var status string
	if err := r.db.QueryRowContext(ctx, r.q("SELECT status FROM webhook_events WHERE id = ?"), id).Scan(&status); err != nil {
		return err
	}
	if status == eventStatusProcessed {
		return ErrDuplicateEvent
	}

	// Reentrega de um evento que falhou (ou que ficou pela metade): tenta de novo.
	_, err = r.db.ExecContext(ctx, r.q(`UPDATE webhook_events
		SET status = ?, attempts = attempts + 1, processing_error = ''
		WHERE id = ?`),
		eventStatusProcessing, id,
	)
	return err
}

func (r *eventRepository) Finish(ctx context.Context, id, result string, procErr error, at time.Time) error {
	status, errText := eventStatusProcessed, ""
	if procErr != nil {
		status, errText = eventStatusFailed, procErr.Error()
	}
	_, err := r.db.ExecContext(ctx, r.q(`UPDATE webhook_events
		SET status = ?, result = ?, processing_error = ?, processed_at = ?
		WHERE id = ?`),
		status, result, errText, at.UTC(), id,
	)
	return err
}
