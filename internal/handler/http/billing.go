package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/willjrcristo/storefront-billing/internal/service"
)

// BillingHandler cuida do checkout, do portal do cliente e dos downloads.
type BillingHandler struct {
	checkout CheckoutService
	account  AccountService
	tokens   TokenVerifier
}

func NewBillingHandler(checkout CheckoutService, account AccountService, tokens TokenVerifier) *BillingHandler {
	return &BillingHandler{checkout: checkout, account: account, tokens: tokens}
}

func (h *BillingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/create-checkout-session", h.CreateCheckoutSession)

	// Rotas que exigem usuário logado.
	r.Group(func(r chi.Router) {
		r.Use(RequireBearer(h.tokens))
		r.Post("/create-portal-session", h.CreatePortalSession)
		r.Post("/download", h.Download)
	})

	return r
}

// @Summary      Cria uma sessão de checkout na Stripe
// @Description  Assinatura (planType/billingPeriod) ou compra avulsa de faixas (items)
// @Tags         assinaturas
// @Accept       json
// @Produce      json
// @Param        request  body      service.CheckoutRequest  true  "Dados do checkout"
// @Success      200      {object}  service.CheckoutSession
// @Failure      400      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /api/create-checkout-session [post]
func (h *BillingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	sess, err := h.checkout.CreateCheckoutSession(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondWithError(w, http.StatusBadRequest, err.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, sess)
}

// @Summary      Abre o portal do cliente da Stripe
// @Tags         assinaturas
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/create-portal-session [post]
func (h *BillingHandler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized - No token provided")
		return
	}

	url, err := h.account.CreatePortalSession(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, service.ErrNoBillingAccount) {
			respondWithError(w, http.StatusBadRequest, err.Error())
		} else {
			respondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"url": url})
}

type downloadRequest struct {
	FilePath string `json:"filePath"`
}

// @Summary      Gera uma URL assinada para download
// @Description  Só para assinantes ativos; a URL expira em poucos minutos
// @Tags         downloads
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      downloadRequest  true  "Arquivo no bucket"
// @Success      200      {object}  service.DownloadLink
// @Failure      400      {object}  map[string]string
// @Failure      401      {object}  map[string]string
// @Failure      403      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /api/download [post]
func (h *BillingHandler) Download(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized - No token provided")
		return
	}

	// Corpo ilegível vira filePath vazio: a assinatura é verificada antes.
	var req downloadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		req = downloadRequest{}
	}

	link, err := h.account.CreateDownloadLink(r.Context(), claims.Email, req.FilePath)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, link)
	case errors.Is(err, service.ErrNoActiveSubscription):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, "Missing filePath parameter")
	default:
		slog.Error("Erro ao gerar URL de download", "error", err)
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to generate download URL",
			"message": err.Error(),
		})
	}
}
