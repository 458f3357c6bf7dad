package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/willjrcristo/storefront-billing/internal/auth"
	"github.com/willjrcristo/storefront-billing/internal/domain"
	"github.com/willjrcristo/storefront-billing/internal/service"
)

// Os handlers dependem destas interfaces, não dos serviços concretos.
// Assim os testes conseguem trocar cada serviço por um mock.

type WebhookService interface {
	HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (service.Outcome, error)
}

type CatalogService interface {
	ListTracks(ctx context.Context) ([]domain.Track, error)
	ListAlternates(ctx context.Context, trackID string) ([]domain.Alternate, error)
	CreateTrack(ctx context.Context, t domain.Track) (domain.Track, error)
	CreateAlternate(ctx context.Context, a domain.Alternate) (domain.Alternate, error)
	UpdateTrack(ctx context.Context, id string, fields map[string]any) (domain.Track, error)
	UpdateAlternate(ctx context.Context, id string, fields map[string]any) (domain.Alternate, error)
	DeleteTrack(ctx context.Context, id string) error
	DeleteAlternate(ctx context.Context, id string) error
}

type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, req service.CheckoutRequest) (service.CheckoutSession, error)
}

type AccountService interface {
	CreatePortalSession(ctx context.Context, userID string) (string, error)
	CreateDownloadLink(ctx context.Context, email, filePath string) (service.DownloadLink, error)
}

// TokenVerifier valida o token de sessão enviado pelo navegador.
type TokenVerifier interface {
	Verify(raw string) (auth.Claims, error)
}

// Limite de 64KB para qualquer corpo de requisição.
const maxBodyBytes = int64(65536)

// --- FUNÇÕES AUXILIARES ---

func respondWithError(w http.ResponseWriter, code int, message string) {
	slog.Error("API Error", "code", code, "message", message)
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// decodeJSON lê o corpo limitado a maxBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
