package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v78"

	"github.com/willjrcristo/storefront-billing/internal/repository"
)

// ErrWebhookSignature é devolvido quando o corpo não passa na verificação da Stripe.
var ErrWebhookSignature = errors.New("falha na verificação da assinatura do webhook")

type EventVerifier interface {
	Verify(payload []byte, signatureHeader string) (stripe.Event, error)
}

// OutcomeRecorder recebe o resultado de cada entrega (métricas).
type OutcomeRecorder interface {
	Record(eventType string, result Result)
}

type WebhookOptions struct {
	// EscalateUnresolved devolve o *UnresolvableError para quem chama em vez de
	// reconhecer o evento, para que a Stripe reenvie.
	EscalateUnresolved bool
	Recorder           OutcomeRecorder
	Now                func() time.Time
}

// WebhookService é o ponto de entrada dos webhooks: verifica, deduplica e reconcilia.
type WebhookService struct {
	verifier   EventVerifier
	events     repository.EventRepository
	reconciler *Reconciler
	escalate   bool
	recorder   OutcomeRecorder
	now        func() time.Time
	logger     *slog.Logger
}

func NewWebhookService(verifier EventVerifier, events repository.EventRepository, reconciler *Reconciler, opts WebhookOptions, logger *slog.Logger) *WebhookService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{
		verifier:   verifier,
		events:     events,
		reconciler: reconciler,
		escalate:   opts.EscalateUnresolved,
		recorder:   opts.Recorder,
		now:        opts.Now,
		logger:     logger,
	}
}

// HandleStripeWebhook processa uma entrega. Um erro que casa com
// ErrWebhookSignature deve virar 400; qualquer outro erro, 500.
func (s *WebhookService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	event, err := s.verifier.Verify(payload, signature)
	if err != nil {
		s.logger.Warn("Erro ao verificar a assinatura do webhook", "error", err)
		s.record("", ResultRejected)
		return Outcome{Result: ResultRejected}, fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}

	out := Outcome{EventID: event.ID, EventType: string(event.Type)}
	if event.ID != "" {
		if err := s.events.Begin(ctx, event.ID, out.EventType, s.now()); err != nil {
			if errors.Is(err, repository.ErrDuplicateEvent) {
				s.logger.Info("Evento da Stripe já processado", "event_id", event.ID, "event_type", out.EventType)
				out.Result = ResultDuplicate
				s.record(out.EventType, out.Result)
				return out, nil
			}
			out.Result = ResultFailed
			s.record(out.EventType, out.Result)
			return out, fmt.Errorf("registrar evento %s: %w", event.ID, err)
		}
	}

	out, err = s.reconciler.Handle(ctx, event)

	var unres *UnresolvableError
	if errors.As(err, &unres) && !s.escalate {
		err = nil
	}

	if event.ID != "" {
		if ferr := s.events.Finish(ctx, event.ID, string(out.Result), err, s.now()); ferr != nil {
			// O evento fica como "processing" e uma reentrega roda de novo, o que é seguro.
			s.logger.Error("Falha ao registrar o resultado do evento", "event_id", event.ID, "error", ferr)
		}
	}
	s.record(out.EventType, out.Result)
	return out, err
}

func (s *WebhookService) record(eventType string, result Result) {
	if s.recorder == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	s.recorder.Record(eventType, result)
}
