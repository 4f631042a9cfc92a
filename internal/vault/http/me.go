package http

import (
	"net/http"

	"github.com/opencustody/strongroom/internal/vault/service"
	"github.com/opencustody/strongroom/pkg/httpx"
	"github.com/opencustody/strongroom/pkg/slogx"
)

type MeHandler struct {
	Users *service.UserService
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	TOTPEnabled bool   `json:"totp_enabled"`
}

// ServeHTTP handles GET /v1/me.
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, err := h.Users.GetUserByID(ctx, httpx.SubjectFromContext(ctx))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, userResponse{
		ID:          user.ID,
		Email:       user.Email,
		Role:        string(user.Role),
		TOTPEnabled: user.TOTPEnabled,
	})
}
