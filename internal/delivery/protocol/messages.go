// Package protocol defines the newline-delimited JSON wire format.
package protocol

import (
	"time"

	"chat/internal/domain/entity"
	domainerrors "chat/internal/domain/errors"
)

// Client to server frame types.
const (
	TypeRegister    = "register"
	TypeLogin       = "login"
	TypeSendMessage = "send_message"
	TypeGetHistory  = "get_history"
	TypeLogout      = "logout"
)

// Server to client frame types.
const (
	TypeRegisterResponse = "register_response"
	TypeLoginResponse    = "login_response"
	TypeNewMessage       = "new_message"
	TypeHistoryResponse  = "history_response"
	TypeLogoutResponse   = "logout_response"
	TypeError            = "error"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is one parsed inbound frame. Raw holds the full JSON document so
// handlers can decode the fields of their own request type.
type Envelope struct {
	Type string
	Raw  []byte
}

// RegisterRequest is the body of a register frame.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the body of a login frame. Token replaces the password
// pair when a client resumes with a token from an earlier login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

// SendMessageRequest is the body of a send_message frame. Sender is accepted
// for compatibility and ignored.
type SendMessageRequest struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// GetHistoryRequest is the body of a get_history frame.
type GetHistoryRequest struct {
	Limit *int `json:"limit"`
}

type RegisterResponse struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	UserID  *int64 `json:"user_id,omitempty"`
	Message string `json:"message,omitempty"`
}

type LoginResponse struct {
	Type     string `json:"type"`
	Status   string `json:"status"`
	UserID   *int64 `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
	// RFC 3339 UTC expiry of Token, set only when Token is.
	TokenExpiresAt string `json:"token_expires_at,omitempty"`
	Message        string `json:"message,omitempty"`
}

// MessageItem is one chat message as it appears on the wire.
type MessageItem struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type NewMessage struct {
	Type string `json:"type"`
	MessageItem
}

type HistoryResponse struct {
	Type     string        `json:"type"`
	Messages []MessageItem `json:"messages"`
}

type LogoutResponse struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// ErrorFrame reports a protocol or request error. Code is stable; Message is
// for humans.
type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewRegisterSuccess(userID int64) *RegisterResponse {
	return &RegisterResponse{
		Type:    TypeRegisterResponse,
		Status:  StatusSuccess,
		UserID:  &userID,
		Message: "User registered successfully",
	}
}

func NewRegisterError(message string) *RegisterResponse {
	return &RegisterResponse{Type: TypeRegisterResponse, Status: StatusError, Message: message}
}

func NewLoginSuccess(user *entity.User, token string, expiresAt time.Time) *LoginResponse {
	userID := user.ID
	resp := &LoginResponse{
		Type:     TypeLoginResponse,
		Status:   StatusSuccess,
		UserID:   &userID,
		Username: user.Username,
	}
	if token != "" {
		resp.Token = token
		resp.TokenExpiresAt = expiresAt.UTC().Format(time.RFC3339)
	}

	return resp
}

func NewLoginError(message string) *LoginResponse {
	return &LoginResponse{Type: TypeLoginResponse, Status: StatusError, Message: message}
}

func toItem(msg *entity.Message) MessageItem {
	return MessageItem{
		Sender:    msg.Sender,
		Message:   msg.Text,
		Timestamp: msg.FormattedTimestamp(),
	}
}

func NewMessageFrame(msg *entity.Message) *NewMessage {
	return &NewMessage{Type: TypeNewMessage, MessageItem: toItem(msg)}
}

// NewHistoryResponse keeps the given order; an empty history encodes as [].
func NewHistoryResponse(messages []*entity.Message) *HistoryResponse {
	items := make([]MessageItem, 0, len(messages))
	for _, msg := range messages {
		items = append(items, toItem(msg))
	}

	return &HistoryResponse{Type: TypeHistoryResponse, Messages: items}
}

func NewLogoutSuccess() *LogoutResponse {
	return &LogoutResponse{Type: TypeLogoutResponse, Status: StatusSuccess}
}

// NewErrorFrame renders err with its client-safe code and message.
func NewErrorFrame(err error) *ErrorFrame {
	appErr := domainerrors.From(err)
	if appErr == nil {
		appErr = domainerrors.ErrInternalError
	}

	return &ErrorFrame{Type: TypeError, Code: appErr.ErrorCode(), Message: appErr.Message()}
}
