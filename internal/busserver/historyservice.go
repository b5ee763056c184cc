package busserver

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/rhel-lightspeed/command-line-assistant/internal/apperrors"
	"github.com/rhel-lightspeed/command-line-assistant/internal/audit"
	"github.com/rhel-lightspeed/command-line-assistant/internal/authz"
	"github.com/rhel-lightspeed/command-line-assistant/internal/models"
	"github.com/rhel-lightspeed/command-line-assistant/internal/storage"
)

// HistoryService implements the history object's bus methods.
type HistoryService struct {
	store *storage.Store
	authz *authz.Authorizer
	audit *audit.Logger
}

func NewHistoryService(store *storage.Store, az *authz.Authorizer, al *audit.Logger) *HistoryService {
	return &HistoryService{store: store, authz: az, audit: al}
}

func (h *HistoryService) Register(srv *Server) {
	srv.Register(ObjectHistory, MethodGetHistory, h.handleGetHistory)
	srv.Register(ObjectHistory, MethodGetFirstConversation, h.handleGetFirstConversation)
	srv.Register(ObjectHistory, MethodGetLastConversation, h.handleGetLastConversation)
	srv.Register(ObjectHistory, MethodGetFilteredConversation, h.handleGetFilteredConversation)
	srv.Register(ObjectHistory, MethodClearHistory, h.handleClearHistory)
	srv.Register(ObjectHistory, MethodWriteHistory, h.handleWriteHistory)
	srv.Register(ObjectHistory, MethodIsAllowed, h.handleIsAllowed)
}

// handleIsAllowed is a no-auth liveness probe: it always returns true and is
// never itself used for authorization decisions.
func (h *HistoryService) handleIsAllowed(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	return true, nil
}

func (h *HistoryService) resolveUser(ctx context.Context, peerUID uint32, claimedUserID string) (uuid.UUID, error) {
	if err := h.authz.VerifyInternal(ctx, peerUID, claimedUserID); err != nil {
		return uuid.UUID{}, err
	}
	return uuid.Parse(claimedUserID)
}

func toEntries(interactions []models.Interaction) []models.HistoryEntry {
	entries := make([]models.HistoryEntry, 0, len(interactions))
	for _, interaction := range interactions {
		entries = append(entries, interaction.ToEntry())
	}
	return entries
}

// requireAnyHistory mirrors the original HistoryInterface's rule: every
// read method raises HistoryNotAvailable if the user has no interactions
// at all, even if a subsequent filter could legitimately narrow to zero.
func (h *HistoryService) requireAnyHistory(ctx context.Context, userID uuid.UUID) ([]models.Interaction, error) {
	all, err := h.store.ListInteractionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, apperrors.New(apperrors.CodeHistoryNotAvailable, "no history available for user")
	}
	return all, nil
}

func (h *HistoryService) handleGetHistory(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	var args userIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid arguments")
	}
	userID, err := h.resolveUser(ctx, peerUID, args.UserID)
	if err != nil {
		return nil, err
	}
	all, err := h.requireAnyHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toEntries(all), nil
}

func (h *HistoryService) handleGetFirstConversation(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	var args userIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid arguments")
	}
	userID, err := h.resolveUser(ctx, peerUID, args.UserID)
	if err != nil {
		return nil, err
	}
	all, err := h.requireAnyHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toEntries(all[:1]), nil
}

func (h *HistoryService) handleGetLastConversation(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	var args userIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid arguments")
	}
	userID, err := h.resolveUser(ctx, peerUID, args.UserID)
	if err != nil {
		return nil, err
	}
	all, err := h.requireAnyHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toEntries(all[len(all)-1:]), nil
}

type filterArgs struct {
	UserID string `json:"user_id"`
	Filter string `json:"filter"`
}

func (h *HistoryService) handleGetFilteredConversation(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	var args filterArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid arguments")
	}
	userID, err := h.resolveUser(ctx, peerUID, args.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := h.requireAnyHistory(ctx, userID); err != nil {
		return nil, err
	}
	filtered, err := h.store.FilterInteractionsForUser(ctx, userID, args.Filter)
	if err != nil {
		return nil, err
	}
	return toEntries(filtered), nil
}

func (h *HistoryService) handleClearHistory(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	var args userIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid arguments")
	}
	userID, err := h.resolveUser(ctx, peerUID, args.UserID)
	if err != nil {
		return nil, err
	}
	if err := h.store.ClearInteractionsForUser(ctx, userID); err != nil {
		return nil, err
	}
	h.audit.HistoryCleared(ctx, args.UserID)
	return nil, nil
}

type writeHistoryArgs struct {
	ChatID   string `json:"chat_id"`
	UserID   string `json:"user_id"`
	Question string `json:"question"`
	Response string `json:"response"`
}

func (h *HistoryService) handleWriteHistory(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	var args writeHistoryArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid arguments")
	}
	if _, err := h.resolveUser(ctx, peerUID, args.UserID); err != nil {
		return nil, err
	}
	chatID, err := uuid.Parse(args.ChatID)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid chat id")
	}
	if _, err := h.store.InsertInteraction(ctx, chatID, args.Question, args.Response); err != nil {
		return nil, err
	}
	h.audit.HistoryWritten(ctx, args.UserID, args.ChatID)
	return nil, nil
}
