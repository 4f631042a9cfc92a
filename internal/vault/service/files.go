package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opencustody/strongroom/internal/vault/domain"
	"github.com/opencustody/strongroom/internal/vault/policy"
	"github.com/opencustody/strongroom/internal/vault/store"
	"github.com/opencustody/strongroom/pkg/cryptox"
	"github.com/opencustody/strongroom/pkg/idx"
)

const defaultLinkTTL = 24 * time.Hour

var (
	ErrInvalidFileName = errors.New("file name required")
	ErrInvalidLinkTTL  = errors.New("share link TTL must be positive")
)

// FileService owns the file metadata registry and its sharing records. It
// never touches blob contents; files here are the resources policy decisions
// and key custody hang off.
type FileService struct {
	Store store.Store

	// LinkTTL is the default share link lifetime; zero means 24h.
	LinkTTL time.Duration
}

// RegisterFile records metadata for a blob the client has uploaded
// elsewhere.
func (s *FileService) RegisterFile(ctx context.Context, ownerID, name, mimeType string, size int64) (domain.File, error) {
	if name == "" {
		return domain.File{}, ErrInvalidFileName
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	now := time.Now().UTC()
	f := domain.File{
		ID:        idx.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		MimeType:  mimeType,
		Size:      size,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Files().CreateFile(ctx, f); err != nil {
		return domain.File{}, err
	}
	return f, nil
}

// GetFile fetches file metadata by id.
func (s *FileService) GetFile(ctx context.Context, fileID string) (domain.File, error) {
	return s.Store.Files().GetFileByID(ctx, fileID)
}

// ListFiles returns the owner's files, newest first.
func (s *FileService) ListFiles(ctx context.Context, ownerID string) ([]domain.File, error) {
	return s.Store.Files().ListFilesByOwner(ctx, ownerID)
}

// DeleteFile removes a file and its key entry in one transaction. Grants
// and links cascade via foreign keys.
func (s *FileService) DeleteFile(ctx context.Context, fileID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Keys().DeleteKeyEntry(ctx, fileID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to delete key entry: %w", err)
		}
		return tx.Files().DeleteFile(ctx, fileID)
	})
}

// GrantShare gives userID access to fileID. Duplicate grants are a
// conflict, not an upsert.
func (s *FileService) GrantShare(ctx context.Context, fileID, userID string) (domain.ShareGrant, error) {
	if _, err := s.Store.Users().GetUserByID(ctx, userID); err != nil {
		return domain.ShareGrant{}, err
	}

	g := domain.ShareGrant{
		ID:        idx.New().String(),
		FileID:    fileID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Store.ShareGrants().CreateShareGrant(ctx, g); err != nil {
		return domain.ShareGrant{}, err
	}
	return g, nil
}

// RevokeShare removes an explicit grant.
func (s *FileService) RevokeShare(ctx context.Context, fileID, userID string) error {
	return s.Store.ShareGrants().DeleteShareGrant(ctx, fileID, userID)
}

// CreateShareLink mints an opaque random token granting time-limited access
// to fileID. Only the SHA-256 fingerprint is stored; the token itself is
// returned once and cannot be recovered later.
func (s *FileService) CreateShareLink(ctx context.Context, fileID string, ttl time.Duration) (string, domain.ShareLink, error) {
	if ttl < 0 {
		return "", domain.ShareLink{}, ErrInvalidLinkTTL
	}
	if ttl == 0 {
		ttl = s.LinkTTL
	}
	if ttl == 0 {
		ttl = defaultLinkTTL
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", domain.ShareLink{}, fmt.Errorf("failed to generate share token: %w", err)
	}

	now := time.Now().UTC()
	link := domain.ShareLink{
		ID:        idx.New().String(),
		FileID:    fileID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.Store.ShareLinks().CreateShareLink(ctx, link); err != nil {
		return "", domain.ShareLink{}, err
	}
	return token, link, nil
}

// Facts assembles the policy inputs for a file access decision. A share
// token is only a fact when its fingerprint resolves to a link for this
// very file; expiry is judged by the policy layer, not here.
func (s *FileService) Facts(ctx context.Context, f domain.File, userID, shareToken string) (policy.ResourceFacts, error) {
	facts := policy.ResourceFacts{OwnerID: f.OwnerID}

	if userID != "" {
		hasGrant, err := s.Store.ShareGrants().HasShareGrant(ctx, f.ID, userID)
		if err != nil {
			return policy.ResourceFacts{}, fmt.Errorf("failed to check share grant: %w", err)
		}
		facts.HasGrant = hasGrant
	}

	if shareToken != "" {
		link, err := s.Store.ShareLinks().GetShareLinkByTokenHash(ctx, cryptox.FingerprintToken(shareToken))
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Unknown token adds no facts.
		case err != nil:
			return policy.ResourceFacts{}, fmt.Errorf("failed to resolve share link: %w", err)
		case link.FileID == f.ID:
			expiresAt := link.ExpiresAt
			facts.LinkExpiresAt = &expiresAt
		}
	}

	return facts, nil
}
