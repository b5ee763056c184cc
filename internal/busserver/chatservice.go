package busserver

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/rhel-lightspeed/command-line-assistant/internal/apperrors"
	"github.com/rhel-lightspeed/command-line-assistant/internal/audit"
	"github.com/rhel-lightspeed/command-line-assistant/internal/authz"
	"github.com/rhel-lightspeed/command-line-assistant/internal/backend"
	"github.com/rhel-lightspeed/command-line-assistant/internal/models"
	"github.com/rhel-lightspeed/command-line-assistant/internal/session"
	"github.com/rhel-lightspeed/command-line-assistant/internal/storage"
)

// ChatService implements the chat object's bus methods: listing, creating,
// deleting, and asking questions against a user's chats.
type ChatService struct {
	store    *storage.Store
	sessions *session.Service
	authz    *authz.Authorizer
	backend  *backend.Client
	audit    *audit.Logger
}

func NewChatService(store *storage.Store, sessions *session.Service, az *authz.Authorizer, be *backend.Client, al *audit.Logger) *ChatService {
	return &ChatService{store: store, sessions: sessions, authz: az, backend: be, audit: al}
}

// Register binds every chat method onto srv.
func (c *ChatService) Register(srv *Server) {
	srv.Register(ObjectChat, MethodGetAllChatFromUser, c.handleGetAllChatFromUser)
	srv.Register(ObjectChat, MethodDeleteAllChatForUser, c.handleDeleteAllChatForUser)
	srv.Register(ObjectChat, MethodDeleteChatForUser, c.handleDeleteChatForUser)
	srv.Register(ObjectChat, MethodGetLatestChatFromUser, c.handleGetLatestChatFromUser)
	srv.Register(ObjectChat, MethodGetChatId, c.handleGetChatId)
	srv.Register(ObjectChat, MethodCreateChat, c.handleCreateChat)
	srv.Register(ObjectChat, MethodAskQuestion, c.handleAskQuestion)
	srv.Register(ObjectChat, MethodIsAllowed, c.handleIsAllowed)
}

type userIDArgs struct {
	UserID string `json:"user_id"`
}

func (c *ChatService) resolveUser(ctx context.Context, peerUID uint32, claimedUserID string) (uuid.UUID, error) {
	if err := c.authz.VerifyInternal(ctx, peerUID, claimedUserID); err != nil {
		return uuid.UUID{}, err
	}
	return uuid.Parse(claimedUserID)
}

func (c *ChatService) handleGetAllChatFromUser(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	var args userIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid arguments")
	}
	userID, err := c.resolveUser(ctx, peerUID, args.UserID)
	if err != nil {
		return nil, err
	}

	chats, err := c.store.ListLiveChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries := make([]models.ChatEntry, 0, len(chats))
	for _, chat := range chats {
		entries = append(entries, chat.ToEntry())
	}
	return entries, nil
}

func (c *ChatService) handleDeleteAllChatForUser(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	var args userIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid arguments")
	}
	userID, err := c.resolveUser(ctx, peerUID, args.UserID)
	if err != nil {
		return nil, err
	}
	if err := c.store.SoftDeleteAllChats(ctx, userID); err != nil {
		return nil, err
	}
	c.audit.ChatDeleted(ctx, args.UserID, "all")
	return nil, nil
}

type deleteChatArgs struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

func (c *ChatService) handleDeleteChatForUser(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	var args deleteChatArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid arguments")
	}
	userID, err := c.resolveUser(ctx, peerUID, args.UserID)
	if err != nil {
		return nil, err
	}
	chat, err := c.store.FindChatByName(ctx, userID, args.Name)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeChatNotFound, "chat not found")
	}
	if err := c.store.SoftDeleteChat(ctx, userID, chat.ID); err != nil {
		return nil, err
	}
	c.audit.ChatDeleted(ctx, args.UserID, chat.ID.String())
	return nil, nil
}

func (c *ChatService) handleGetLatestChatFromUser(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	var args userIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid arguments")
	}
	userID, err := c.resolveUser(ctx, peerUID, args.UserID)
	if err != nil {
		return nil, err
	}
	chat, err := c.store.LatestChat(ctx, userID)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeChatNotFound, "no chats found for user")
	}
	return chat.ID.String(), nil
}

func (c *ChatService) handleGetChatId(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	var args deleteChatArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid arguments")
	}
	userID, err := c.resolveUser(ctx, peerUID, args.UserID)
	if err != nil {
		return nil, err
	}
	chat, err := c.store.FindChatByName(ctx, userID, args.Name)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeChatNotFound, "chat not found")
	}
	return chat.ID.String(), nil
}

type createChatArgs struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c *ChatService) handleCreateChat(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	var args createChatArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid arguments")
	}
	userID, err := c.resolveUser(ctx, peerUID, args.UserID)
	if err != nil {
		return nil, err
	}
	chat, err := c.store.CreateChat(ctx, userID, args.Name, args.Description)
	if err != nil {
		return nil, err
	}
	return chat.ID.String(), nil
}

type askQuestionArgs struct {
	ChatID  string          `json:"chat_id"`
	UserID  string          `json:"user_id"`
	Message models.Question `json:"message_input"`
}

func (c *ChatService) handleAskQuestion(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	var args askQuestionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid arguments")
	}
	userID, err := c.resolveUser(ctx, peerUID, args.UserID)
	if err != nil {
		return nil, err
	}
	chatID, err := uuid.Parse(args.ChatID)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeValueError, "invalid chat id")
	}
	if _, err := c.store.FindChatByID(ctx, userID, chatID); err != nil {
		return nil, apperrors.New(apperrors.CodeChatNotFound, "chat not found")
	}

	answer, err := c.backend.Submit(ctx, args.Message)
	if err != nil {
		return nil, err
	}

	c.audit.QueryExecuted(ctx, args.UserID, args.Message.Message, answer)

	// The interaction itself is not written here: WriteHistory is a
	// separate bus call so a client crash or disconnect between receiving
	// the answer and persisting it never loses the question/response pair
	// silently inside AskQuestion.
	return models.Response{Message: answer}, nil
}

// handleIsAllowed is a no-auth liveness probe: it always returns true and is
// never itself used for authorization decisions.
func (c *ChatService) handleIsAllowed(ctx context.Context, peerUID uint32, raw json.RawMessage) (interface{}, error) {
	return true, nil
}
