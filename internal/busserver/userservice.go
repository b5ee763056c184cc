package busserver

import (
	"context"
	"encoding/json"

	"github.com/rhel-lightspeed/command-line-assistant/internal/apperrors"
	"github.com/rhel-lightspeed/command-line-assistant/internal/authz"
	"github.com/rhel-lightspeed/command-line-assistant/internal/session"
)

// UserService implements the user object's single bus method: resolving an
// OS uid to the caller's internal identity.
type UserService struct {
	sessions *session.Service
	authz    *authz.Authorizer
}

func NewUserService(sessions *session.Service, az *authz.Authorizer) *UserService {
	return &UserService{sessions: sessions, authz: az}
}

func (u *UserService) Register(srv *Server) {
	srv.Register(ObjectUser, MethodGetUserId, u.handleGetUserId)
}

type effectiveUserIDArgs struct {
	EffectiveUserID uint32 `json:"effective_user_id"`
}

func (u *UserService) handleGetUserId(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	var args effectiveUserIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid arguments")
	}
	if err := u.authz.VerifyUnix(peerUID, args.EffectiveUserID); err != nil {
		return nil, err
	}
	userID, err := u.sessions.GetUserID(ctx, args.EffectiveUserID)
	if err != nil {
		return nil, err
	}
	return userID.String(), nil
}
