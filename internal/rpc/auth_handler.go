package rpc

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitplus/internal/auth"
	"github.com/mmynk/splitplus/internal/models"
)

// AuthHandler implements splitplus.v1.AuthService.
type AuthHandler struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(authenticator auth.Authenticator, jwtManager *auth.JWTManager) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		jwtManager:    jwtManager,
	}
}

// Register creates a new user account and signs them in.
func (h *AuthHandler) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error) {
	slog.Info("Register request", "username", req.Msg.Username)
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	user, err := h.authenticator.Register(ctx, req.Msg.Username, req.Msg.Password)
	if err != nil {
		slog.Warn("Registration failed", "username", req.Msg.Username, "error", err)
		return nil, toConnectError(err)
	}

	resp, err := h.session(user)
	if err != nil {
		return nil, err
	}
	slog.Info("User registered", "user_id", user.ID, "username", user.Username)
	return resp, nil
}

// Login authenticates a user and returns a session token.
func (h *AuthHandler) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error) {
	slog.Info("Login request", "username", req.Msg.Username)
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	user, err := h.authenticator.Authenticate(ctx, req.Msg.Username, req.Msg.Password)
	if err != nil {
		slog.Warn("Login failed", "username", req.Msg.Username, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	resp, err := h.session(user)
	if err != nil {
		return nil, err
	}
	slog.Info("User logged in", "user_id", user.ID)
	return resp, nil
}

func (h *AuthHandler) session(user *models.User) (*connect.Response[AuthResponse], error) {
	token, err := h.jwtManager.Generate(user)
	if err != nil {
		slog.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&AuthResponse{Token: token, User: toUserView(user)}), nil
}
