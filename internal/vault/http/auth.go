package http

import (
	"net/http"

	"github.com/opencustody/strongroom/internal/vault/service"
	"github.com/opencustody/strongroom/pkg/httpx"
	"github.com/opencustody/strongroom/pkg/slogx"
)

// AuthHandler handles the signup / login / verify / refresh flow.
type AuthHandler struct {
	Sessions *service.SessionService
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	UserID            string `json:"user_id"`
	Role              string `json:"role"`
	TOTPSecret        string `json:"totp_secret"`
	ProvisioningURI   string `json:"provisioning_uri"`
	VerificationToken string `json:"verification_token"`
}

type loginResponse struct {
	Status            string `json:"status"`
	VerificationToken string `json:"verification_token"`
	TOTPSecret        string `json:"totp_secret,omitempty"`
	ProvisioningURI   string `json:"provisioning_uri,omitempty"`
}

type verifyRequest struct {
	VerificationToken string `json:"verification_token"`
	Code              string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// HandleSignup handles POST /v1/auth/signup.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Sessions.Signup(ctx, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, signupResponse{
		UserID:            res.UserID,
		Role:              string(res.Role),
		TOTPSecret:        res.Enrollment.Secret,
		ProvisioningURI:   res.Enrollment.ProvisioningURI,
		VerificationToken: res.VerificationToken,
	})
}

// HandleLogin handles POST /v1/auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	resp := loginResponse{
		Status:            string(res.Status),
		VerificationToken: res.VerificationToken,
	}
	if res.Enrollment != nil {
		resp.TOTPSecret = res.Enrollment.Secret
		resp.ProvisioningURI = res.Enrollment.ProvisioningURI
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleVerify handles POST /v1/auth/verify.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tokens, err := h.Sessions.CompleteVerification(ctx, req.VerificationToken, req.Code)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    int64(tokens.ExpiresIn.Seconds()),
	})
}

// HandleRefresh handles POST /v1/auth/refresh.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    int64(tokens.ExpiresIn.Seconds()),
	})
}
