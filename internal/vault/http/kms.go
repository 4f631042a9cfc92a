package http

import (
	"encoding/base64"
	"net/http"

	"github.com/opencustody/strongroom/internal/vault/service"
	"github.com/opencustody/strongroom/pkg/httpx"
	"github.com/opencustody/strongroom/pkg/slogx"
)

// KMSHandler exposes the key vault. These endpoints require a valid access
// token but deliberately do NOT check resource ownership: the intended
// caller is the file service, which has already made its policy decision.
// Per-resource authorization lives there, not here.
type KMSHandler struct {
	Vault *service.VaultService
}

type storeKeyRequest struct {
	Key string `json:"key"` // base64 data key
}

type fetchKeyResponse struct {
	Key string `json:"key"` // base64 data key
}

type copyKeyRequest struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
}

// HandleStore handles POST /v1/keys/{resource_id}.
func (h *KMSHandler) HandleStore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	resourceID := r.PathValue("resource_id")
	if resourceID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "resource id required")
		return
	}

	var req storeKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	dataKey, err := base64.StdEncoding.DecodeString(req.Key)
	if err != nil || len(dataKey) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "key must be non-empty base64")
		return
	}

	if err := h.Vault.StoreKey(ctx, resourceID, dataKey); err != nil {
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// HandleFetch handles GET /v1/keys/{resource_id}.
func (h *KMSHandler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	dataKey, err := h.Vault.FetchKey(ctx, r.PathValue("resource_id"))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, fetchKeyResponse{
		Key: base64.StdEncoding.EncodeToString(dataKey),
	})
}

// HandleCopy handles POST /v1/keys/copy.
func (h *KMSHandler) HandleCopy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req copyKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FromID == "" || req.ToID == "" || req.FromID == req.ToID {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"from_id and to_id must be distinct and non-empty")
		return
	}

	if err := h.Vault.CopyKey(ctx, req.FromID, req.ToID); err != nil {
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// HandleDelete handles DELETE /v1/keys/{resource_id}.
func (h *KMSHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := h.Vault.DeleteKey(ctx, r.PathValue("resource_id")); err != nil {
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
