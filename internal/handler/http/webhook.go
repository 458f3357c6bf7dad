package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/willjrcristo/storefront-billing/internal/service"
)

// StripeWebhookHandler recebe os eventos enviados pela Stripe.
type StripeWebhookHandler struct {
	service WebhookService
}

func NewStripeWebhookHandler(s WebhookService) *StripeWebhookHandler {
	return &StripeWebhookHandler{service: s}
}

func (h *StripeWebhookHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleStripeWebhook)
	return r
}

// @Summary      Recebe eventos da Stripe
// @Description  Verifica a assinatura do evento e reconcilia o estado da assinatura do perfil
// @Tags         stripe
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "Assinatura do evento"
// @Success      200               {object}  map[string]bool
// @Failure      400               {object}  map[string]string
// @Failure      500               {object}  map[string]string
// @Router       /api/stripe-webhook [post]
func (h *StripeWebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Erro ao ler o corpo do webhook", "error", err)
		respondWithError(w, http.StatusBadRequest, "Erro ao ler corpo da requisição")
		return
	}

	signature := r.Header.Get("Stripe-Signature")

	out, err := h.service.HandleStripeWebhook(r.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, service.ErrWebhookSignature) {
			respondWithError(w, http.StatusBadRequest, "Webhook Error: "+err.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	// 200 para a Stripe parar de reenviar o evento.
	if out.Result == service.ResultDuplicate {
		respondWithJSON(w, http.StatusOK, map[string]bool{"received": true, "duplicate": true})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
}
