package http

import (
	"net/http"
	"time"

	"github.com/opencustody/strongroom/internal/vault/domain"
	"github.com/opencustody/strongroom/internal/vault/policy"
	"github.com/opencustody/strongroom/internal/vault/service"
	"github.com/opencustody/strongroom/pkg/httpx"
	"github.com/opencustody/strongroom/pkg/slogx"
)

// FilesHandler handles the file metadata registry and its sharing
// endpoints. Creating files needs the regular tier; reading goes through
// the resource policy, so grants and share links work for anyone
// authenticated, guests included.
type FilesHandler struct {
	Files *service.FileService
	Users *service.UserService
}

type registerFileRequest struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

type fileResponse struct {
	ID       string `json:"id"`
	OwnerID  string `json:"owner_id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

type grantRequest struct {
	UserID string `json:"user_id"`
}

type createLinkRequest struct {
	TTLSeconds int64 `json:"ttl_seconds"`
}

type createLinkResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toFileResponse(f domain.File) fileResponse {
	return fileResponse{
		ID:       f.ID,
		OwnerID:  f.OwnerID,
		Name:     f.Name,
		MimeType: f.MimeType,
		Size:     f.Size,
	}
}

// HandleRegister handles POST /v1/files.
func (h *FilesHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, err := requireTier(ctx, h.Users, policy.TierRegular)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	var req registerFileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	f, err := h.Files.RegisterFile(ctx, user.ID, req.Name, req.MimeType, req.Size)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toFileResponse(f))
}

// HandleList handles GET /v1/files, listing the caller's own files.
func (h *FilesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, err := requireTier(ctx, h.Users, policy.TierGuest)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	files, err := h.Files.ListFiles(ctx, user.ID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"files": out})
}

// HandleGet handles GET /v1/files/{file_id}. A share token may be supplied
// via the share_token query parameter; it only counts when it belongs to
// this file and has not expired.
func (h *FilesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, err := requireTier(ctx, h.Users, policy.TierGuest)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	f, err := h.Files.GetFile(ctx, r.PathValue("file_id"))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	facts, err := h.Files.Facts(ctx, f, user.ID, r.URL.Query().Get("share_token"))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	if err := policy.AuthorizeResource(user.ID, user.Role, facts, time.Now()); err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toFileResponse(f))
}

// HandleDelete handles DELETE /v1/files/{file_id}. Only the owner or an
// admin may delete; grants and links never confer deletion.
func (h *FilesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, f, ok := h.ownerOrAdmin(w, r)
	if !ok {
		return
	}

	if err := h.Files.DeleteFile(ctx, f.ID); err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("file deleted", "file_id", f.ID, "actor_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleGrant handles POST /v1/files/{file_id}/grants.
func (h *FilesHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	_, f, ok := h.ownerOrAdmin(w, r)
	if !ok {
		return
	}

	var req grantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.Files.GrantShare(ctx, f.ID, req.UserID); err != nil {
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRevoke handles DELETE /v1/files/{file_id}/grants/{user_id}.
func (h *FilesHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	_, f, ok := h.ownerOrAdmin(w, r)
	if !ok {
		return
	}

	if err := h.Files.RevokeShare(ctx, f.ID, r.PathValue("user_id")); err != nil {
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateLink handles POST /v1/files/{file_id}/links.
func (h *FilesHandler) HandleCreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	_, f, ok := h.ownerOrAdmin(w, r)
	if !ok {
		return
	}

	var req createLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, link, err := h.Files.CreateShareLink(ctx, f.ID,
		time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, createLinkResponse{
		Token:     token,
		ExpiresAt: link.ExpiresAt,
	})
}

// ownerOrAdmin loads the file and enforces that the caller owns it or is an
// admin. Writes the error response itself when the check fails.
func (h *FilesHandler) ownerOrAdmin(w http.ResponseWriter, r *http.Request) (domain.User, domain.File, bool) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, err := requireTier(ctx, h.Users, policy.TierGuest)
	if err != nil {
		writeServiceError(w, log, err)
		return domain.User{}, domain.File{}, false
	}

	f, err := h.Files.GetFile(ctx, r.PathValue("file_id"))
	if err != nil {
		writeServiceError(w, log, err)
		return domain.User{}, domain.File{}, false
	}

	// Bare ownership facts: grants and links are read-side only.
	facts := policy.ResourceFacts{OwnerID: f.OwnerID}
	if err := policy.AuthorizeResource(user.ID, user.Role, facts, time.Now()); err != nil {
		writeServiceError(w, log, err)
		return domain.User{}, domain.File{}, false
	}

	return user, f, true
}
