package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/willjrcristo/storefront-billing/internal/domain"
	"github.com/willjrcristo/storefront-billing/internal/repository"
	"github.com/willjrcristo/storefront-billing/internal/service"
)

const (
	tableTracks     = "tracks"
	tableAlternates = "alternates"
)

// CatalogHandler gerencia as rotas administrativas de /api/admin-track.
type CatalogHandler struct {
	service  CatalogService
	adminKey string
}

func NewCatalogHandler(s CatalogService, adminKey string) *CatalogHandler {
	return &CatalogHandler{service: s, adminKey: adminKey}
}

func (h *CatalogHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequireAdminKey(h.adminKey))

	r.Get("/", h.List)      // GET /api/admin-track[?track_id=]
	r.Post("/", h.Create)   // POST /api/admin-track
	r.Patch("/", h.Update)  // PATCH /api/admin-track
	r.Delete("/", h.Delete) // DELETE /api/admin-track

	return r
}

// adminBody é o corpo genérico: "_table" e "id" mais as colunas da linha.
type adminBody map[string]any

func (b adminBody) table() string {
	if t, _ := b["_table"].(string); t == tableAlternates {
		return tableAlternates
	}
	return tableTracks
}

func (b adminBody) id() string {
	id, _ := b["id"].(string)
	return id
}

// fields devolve as colunas sem as chaves de controle.
func (b adminBody) fields() map[string]any {
	out := make(map[string]any, len(b))
	for k, v := range b {
		if k == "_table" || k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

// into converte o corpo na struct de domínio correspondente.
func (b adminBody) into(dst any) error {
	row := b.fields()
	if id := b.id(); id != "" {
		row["id"] = id
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// @Summary      Lista faixas ou versões alternativas
// @Description  Sem track_id lista todas as faixas; com track_id lista as versões daquela faixa
// @Tags         catalogo
// @Produce      json
// @Param        X-Admin-Key  header    string  true   "Chave de administração"
// @Param        track_id     query     string  false  "ID da faixa"
// @Success      200          {array}   domain.Track
// @Failure      401          {object}  map[string]string
// @Failure      500          {object}  map[string]string
// @Router       /api/admin-track [get]
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	if trackID := r.URL.Query().Get("track_id"); trackID != "" {
		alts, err := h.service.ListAlternates(r.Context(), trackID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, alts)
		return
	}

	tracks, err := h.service.ListTracks(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, tracks)
}

// @Summary      Cria uma faixa ou versão alternativa
// @Tags         catalogo
// @Accept       json
// @Produce      json
// @Param        X-Admin-Key  header    string  true  "Chave de administração"
// @Success      200          {object}  domain.Track
// @Failure      400          {object}  map[string]string
// @Failure      401          {object}  map[string]string
// @Failure      404          {object}  map[string]string
// @Failure      500          {object}  map[string]string
// @Router       /api/admin-track [post]
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body adminBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	var (
		row any
		err error
	)
	switch body.table() {
	case tableAlternates:
		var alt domain.Alternate
		if err = body.into(&alt); err == nil {
			row, err = h.service.CreateAlternate(r.Context(), alt)
		}
	default:
		var track domain.Track
		if err = body.into(&track); err == nil {
			// Sem is_active no corpo, a faixa nasce ativa como no default da coluna.
			if _, ok := body["is_active"]; !ok {
				track.IsActive = true
			}
			row, err = h.service.CreateTrack(r.Context(), track)
		}
	}
	if err != nil {
		h.respondCatalogError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, row)
}

// @Summary      Atualiza parcialmente uma linha do catálogo
// @Tags         catalogo
// @Accept       json
// @Produce      json
// @Param        X-Admin-Key  header    string  true  "Chave de administração"
// @Success      200          {object}  domain.Track
// @Failure      400          {object}  map[string]string
// @Failure      401          {object}  map[string]string
// @Failure      404          {object}  map[string]string
// @Failure      500          {object}  map[string]string
// @Router       /api/admin-track [patch]
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body adminBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}
	id := body.id()
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "id required")
		return
	}

	var (
		row any
		err error
	)
	switch body.table() {
	case tableAlternates:
		row, err = h.service.UpdateAlternate(r.Context(), id, body.fields())
	default:
		row, err = h.service.UpdateTrack(r.Context(), id, body.fields())
	}
	if err != nil {
		h.respondCatalogError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, row)
}

// @Summary      Remove uma linha do catálogo
// @Tags         catalogo
// @Accept       json
// @Produce      json
// @Param        X-Admin-Key  header    string  true  "Chave de administração"
// @Success      200          {object}  map[string]bool
// @Failure      400          {object}  map[string]string
// @Failure      401          {object}  map[string]string
// @Failure      500          {object}  map[string]string
// @Router       /api/admin-track [delete]
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var body adminBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}
	id := body.id()
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "id required")
		return
	}

	var err error
	switch body.table() {
	case tableAlternates:
		err = h.service.DeleteAlternate(r.Context(), id)
	default:
		err = h.service.DeleteTrack(r.Context(), id)
	}
	if err != nil {
		h.respondCatalogError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CatalogHandler) respondCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, repository.ErrInvalidField):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrTrackNotFound), errors.Is(err, repository.ErrAlternateNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
