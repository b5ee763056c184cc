// Package authz enforces that a bus caller may only act on behalf of the
// identity it claims. It replaces the original D-Bus authorization mixin's
// two checks (unix user vs internal user) with the same fail-closed policy
// applied to a Unix-socket peer credential.
package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rhel-lightspeed/command-line-assistant/internal/apperrors"
)

// SessionLookup resolves an OS uid to the internal user id the session
// service has assigned it, used by VerifyInternal to translate the
// caller's claimed identity into the same namespace as the peer uid.
type SessionLookup interface {
	GetUserID(ctx context.Context, osUID uint32) (uuid.UUID, error)
}

// AuditFunc records a denied authorization attempt. Wired to the audit
// logger's Denied method at startup.
type AuditFunc func(senderUID uint32, requested string)

// Authorizer verifies that a bus caller is who it claims to be before a
// service method runs.
type Authorizer struct {
	sessions SessionLookup
	onDenied AuditFunc
}

func New(sessions SessionLookup, onDenied AuditFunc) *Authorizer {
	return &Authorizer{sessions: sessions, onDenied: onDenied}
}

// VerifyUnix checks that the connection's peer uid matches the uid the
// request claims to act as. Used by methods whose user_id argument is a
// raw OS uid (UserService.GetUserId).
func (a *Authorizer) VerifyUnix(senderUID, requestedUID uint32) error {
	if senderUID != requestedUID {
		a.deny(senderUID, fmt.Sprintf("uid:%d", requestedUID))
		return apperrors.New(apperrors.CodeNotAuthorizedUser, "caller is not authorized to act as the requested user")
	}
	return nil
}

// VerifyInternal checks that the connection's peer uid maps to the
// requested internal user id. Used by methods whose user_id argument is
// already an internal uuid (chat and history services). Any failure in the
// lookup itself is treated as a denial, never as a pass-through.
func (a *Authorizer) VerifyInternal(ctx context.Context, senderUID uint32, requestedUserID string) error {
	senderUserID, err := a.sessions.GetUserID(ctx, senderUID)
	if err != nil {
		a.deny(senderUID, requestedUserID)
		return apperrors.New(apperrors.CodeNotAuthorizedUser, "could not resolve caller identity")
	}
	if senderUserID.String() != requestedUserID {
		a.deny(senderUID, requestedUserID)
		return apperrors.New(apperrors.CodeNotAuthorizedUser, "caller is not authorized to act as the requested user")
	}
	return nil
}

func (a *Authorizer) deny(senderUID uint32, requested string) {
	if a.onDenied == nil {
		return
	}
	a.onDenied(senderUID, requested)
}
