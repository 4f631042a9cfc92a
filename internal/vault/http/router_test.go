package http

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opencustody/strongroom/internal/vault/service"
	"github.com/opencustody/strongroom/internal/vault/store"
	"github.com/opencustody/strongroom/internal/vault/store/drivers/sqlite"
	"github.com/opencustody/strongroom/pkg/cryptox"
	"github.com/opencustody/strongroom/pkg/slogx"
	"github.com/opencustody/strongroom/pkg/tokenx"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*Router, store.Store) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := tokenx.New([]byte("router-test-secret-router-test!!"), "strongroom-test")
	require.NoError(t, err)

	masterKey := make([]byte, cryptox.MasterKeySize)
	_, err = rand.Read(masterKey)
	require.NoError(t, err)
	wrapper, err := cryptox.NewKeyWrapper(masterKey)
	require.NoError(t, err)

	logger := slogx.New(slogx.Config{Service: "strongroom-test", Format: "text", Level: "error"})

	r := NewRouter(codec, "test", st, logger)
	r.SessionService = &service.SessionService{Store: st, Codec: codec, Issuer: "strongroom-test"}
	r.VaultService = &service.VaultService{Store: st, Wrapper: wrapper}
	r.UserService = &service.UserService{Store: st}
	r.FileService = &service.FileService{Store: st}
	r.ApplyRoutes()

	return r, st
}

func doJSON(t *testing.T, r *Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// signupAndVerify walks a fresh user through the whole flow and returns
// their access token.
func signupAndVerify(t *testing.T, r *Router, email string) (userID, accessToken string) {
	t.Helper()

	rec := doJSON(t, r, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email": email, "password": "Sup3r-secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var signup signupResponse
	decodeBody(t, rec, &signup)

	code, err := totp.GenerateCode(signup.TOTPSecret, time.Now())
	require.NoError(t, err)

	rec = doJSON(t, r, http.MethodPost, "/v1/auth/verify", "", map[string]any{
		"verification_token": signup.VerificationToken, "code": code,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var tokens tokenResponse
	decodeBody(t, rec, &tokens)
	return signup.UserID, tokens.AccessToken
}

func TestHealthEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email": "flow@example.com", "password": "Sup3r-secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var signup signupResponse
	decodeBody(t, rec, &signup)
	require.Equal(t, "admin", signup.Role) // first user
	require.NotEmpty(t, signup.TOTPSecret)
	require.Contains(t, signup.ProvisioningURI, "otpauth://")

	t.Run("wrong code is rejected without enabling TOTP", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/verify", "", map[string]any{
			"verification_token": signup.VerificationToken, "code": "000000",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid_code")
	})

	code, err := totp.GenerateCode(signup.TOTPSecret, time.Now())
	require.NoError(t, err)

	rec = doJSON(t, r, http.MethodPost, "/v1/auth/verify", "", map[string]any{
		"verification_token": signup.VerificationToken, "code": code,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var tokens tokenResponse
	decodeBody(t, rec, &tokens)
	require.Equal(t, "Bearer", tokens.TokenType)

	t.Run("access token reaches protected endpoints", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/me", tokens.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var me userResponse
		decodeBody(t, rec, &me)
		require.Equal(t, "flow@example.com", me.Email)
		require.True(t, me.TOTPEnabled)
	})

	t.Run("verification token never reaches protected endpoints", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/me", signup.VerificationToken, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/me", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh issues a new access token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", map[string]any{
			"refresh_token": tokens.RefreshToken,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var refreshed tokenResponse
		decodeBody(t, rec, &refreshed)
		require.NotEmpty(t, refreshed.AccessToken)
		require.Equal(t, tokens.RefreshToken, refreshed.RefreshToken)
	})

	t.Run("access token cannot be used to refresh", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", map[string]any{
			"refresh_token": tokens.AccessToken,
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "wrong_token_kind")
	})
}

func TestKMSEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	_, access := signupAndVerify(t, r, "kms@example.com")

	dataKey := make([]byte, 32)
	_, err := rand.Read(dataKey)
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(dataKey)

	t.Run("requires a bearer token", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/keys/file-1", "", map[string]any{"key": encoded})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	rec := doJSON(t, r, http.MethodPost, "/v1/keys/file-1", access, map[string]any{"key": encoded})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("duplicate store conflicts", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/keys/file-1", access, map[string]any{"key": encoded})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("fetch returns the key", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/keys/file-1", access, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp fetchKeyResponse
		decodeBody(t, rec, &resp)
		require.Equal(t, encoded, resp.Key)
	})

	t.Run("copy duplicates without decrypting", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/keys/copy", access, map[string]any{
			"from_id": "file-1", "to_id": "file-2",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSON(t, r, http.MethodGet, "/v1/keys/file-2", access, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp fetchKeyResponse
		decodeBody(t, rec, &resp)
		require.Equal(t, encoded, resp.Key)
	})

	t.Run("copy from unknown source is not found", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/keys/copy", access, map[string]any{
			"from_id": "missing", "to_id": "file-3",
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejects a non-base64 key", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/keys/file-9", access, map[string]any{"key": "not base64!!"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete removes the key", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, "/v1/keys/file-2", access, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, r, http.MethodGet, "/v1/keys/file-2", access, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	adminID, adminAccess := signupAndVerify(t, r, "admin@example.com")
	guestID, guestAccess := signupAndVerify(t, r, "guest@example.com")

	t.Run("guest cannot list users", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/admin/users", guestAccess, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin lists users", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/admin/users", adminAccess, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Users []userResponse `json:"users"`
		}
		decodeBody(t, rec, &resp)
		require.Len(t, resp.Users, 2)
	})

	t.Run("admin promotes the guest", func(t *testing.T) {
		path := fmt.Sprintf("/v1/admin/users/%s/role", guestID)
		rec := doJSON(t, r, http.MethodPut, path, adminAccess, map[string]any{"role": "regular"})
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		path := fmt.Sprintf("/v1/admin/users/%s/role", guestID)
		rec := doJSON(t, r, http.MethodPut, path, adminAccess, map[string]any{"role": "superuser"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("admin cannot delete themselves", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, "/v1/admin/users/"+adminID, adminAccess, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin deletes the other user", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, "/v1/admin/users/"+guestID, adminAccess, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		// Their still-valid access token no longer resolves to a user.
		rec = doJSON(t, r, http.MethodGet, "/v1/me", guestAccess, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestFileSharing(t *testing.T) {
	r, _ := newTestRouter(t)

	_, ownerAccess := signupAndVerify(t, r, "owner@example.com") // first user, admin
	_, guestAccess := signupAndVerify(t, r, "guest@example.com")

	t.Run("guest cannot register files", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/files", guestAccess, map[string]any{
			"name": "nope.enc", "mime_type": "text/plain", "size": 1,
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	rec := doJSON(t, r, http.MethodPost, "/v1/files", ownerAccess, map[string]any{
		"name": "secret.enc", "mime_type": "text/plain", "size": 128,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var file fileResponse
	decodeBody(t, rec, &file)

	t.Run("stranger cannot read the file", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/files/"+file.ID, guestAccess, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("share link grants time-limited access", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/files/"+file.ID+"/links", ownerAccess, map[string]any{
			"ttl_seconds": 3600,
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var link createLinkResponse
		decodeBody(t, rec, &link)
		require.NotEmpty(t, link.Token)

		rec = doJSON(t, r, http.MethodGet,
			"/v1/files/"+file.ID+"?share_token="+link.Token, guestAccess, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("explicit grant also opens access", func(t *testing.T) {
		var me userResponse
		rec := doJSON(t, r, http.MethodGet, "/v1/me", guestAccess, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		decodeBody(t, rec, &me)

		rec = doJSON(t, r, http.MethodPost, "/v1/files/"+file.ID+"/grants", ownerAccess, map[string]any{
			"user_id": me.ID,
		})
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, r, http.MethodGet, "/v1/files/"+file.ID, guestAccess, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		// Revoking closes it again.
		rec = doJSON(t, r, http.MethodDelete, "/v1/files/"+file.ID+"/grants/"+me.ID, ownerAccess, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, r, http.MethodGet, "/v1/files/"+file.ID, guestAccess, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("only the owner or an admin deletes", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, "/v1/files/"+file.ID, guestAccess, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = doJSON(t, r, http.MethodDelete, "/v1/files/"+file.ID, ownerAccess, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, r, http.MethodGet, "/v1/files/"+file.ID, ownerAccess, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
