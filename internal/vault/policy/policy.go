// Package policy evaluates capability tiers and resource-level access. It is
// pure decision logic: callers supply the verified token kind, the user's
// role, and the resource facts; nothing here touches storage or the clock
// beyond the timestamps it is handed.
package policy

import (
	"errors"
	"time"

	"github.com/opencustody/strongroom/internal/vault/domain"
	"github.com/opencustody/strongroom/pkg/tokenx"
)

// Tier is the capability level an endpoint requires.
type Tier int

const (
	// TierGuest admits any authenticated session, whatever the role.
	TierGuest Tier = iota
	// TierRegular admits regular users and admins.
	TierRegular
	// TierAdmin admits admins only.
	TierAdmin
)

// ErrForbidden is returned for every tier or resource denial.
var ErrForbidden = errors.New("policy: forbidden")

// Authorize checks a verified token's kind and the subject's role against the
// required tier.
//
// A verification-kind token satisfies no tier at all: it exists only to
// complete the TOTP step and must never act as a session. The check on kind
// comes first so there is no code path where a verification token's role is
// even consulted.
func Authorize(kind tokenx.Kind, role domain.Role, required Tier) error {
	if kind != tokenx.KindAccess {
		return ErrForbidden
	}

	switch required {
	case TierGuest:
		if role.Valid() {
			return nil
		}
	case TierRegular:
		if role == domain.RoleRegular || role == domain.RoleAdmin {
			return nil
		}
	case TierAdmin:
		if role == domain.RoleAdmin {
			return nil
		}
	}
	return ErrForbidden
}

// ResourceFacts are the ownership/sharing facts the caller looked up for a
// single (resource, user) pair.
type ResourceFacts struct {
	OwnerID string

	// HasGrant is true when an explicit share grant exists for the user.
	HasGrant bool

	// LinkExpiresAt is the expiry of a share link presented with the
	// request, nil when none was presented.
	LinkExpiresAt *time.Time
}

// AuthorizeResource decides whether subject may act on the resource.
// Owners and admins always pass; everyone else needs a grant or an unexpired
// share link. A link is valid up to and including its expiry instant and
// invalid strictly after it.
func AuthorizeResource(subject string, role domain.Role, facts ResourceFacts, now time.Time) error {
	if subject != "" && subject == facts.OwnerID {
		return nil
	}
	if role == domain.RoleAdmin {
		return nil
	}
	if facts.HasGrant {
		return nil
	}
	if facts.LinkExpiresAt != nil && !now.After(*facts.LinkExpiresAt) {
		return nil
	}
	return ErrForbidden
}
