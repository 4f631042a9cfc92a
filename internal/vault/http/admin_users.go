package http

import (
	"net/http"

	"github.com/opencustody/strongroom/internal/vault/domain"
	"github.com/opencustody/strongroom/internal/vault/policy"
	"github.com/opencustody/strongroom/internal/vault/service"
	"github.com/opencustody/strongroom/pkg/httpx"
	"github.com/opencustody/strongroom/pkg/slogx"
)

// AdminUsersHandler handles the admin-only user management endpoints.
type AdminUsersHandler struct {
	Users *service.UserService
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// HandleList handles GET /v1/admin/users.
func (h *AdminUsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if _, err := requireTier(ctx, h.Users, policy.TierAdmin); err != nil {
		writeServiceError(w, log, err)
		return
	}

	users, err := h.Users.ListUsers(ctx)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{
			ID:          u.ID,
			Email:       u.Email,
			Role:        string(u.Role),
			TOTPEnabled: u.TOTPEnabled,
		})
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

// HandleSetRole handles PUT /v1/admin/users/{user_id}/role.
func (h *AdminUsersHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if _, err := requireTier(ctx, h.Users, policy.TierAdmin); err != nil {
		writeServiceError(w, log, err)
		return
	}

	var req setRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeServiceError(w, log, service.ErrUnknownRole)
		return
	}

	if err := h.Users.SetRole(ctx, r.PathValue("user_id"), role); err != nil {
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /v1/admin/users/{user_id}.
func (h *AdminUsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	actor, err := requireTier(ctx, h.Users, policy.TierAdmin)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	if err := h.Users.DeleteUser(ctx, actor.ID, r.PathValue("user_id")); err != nil {
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
