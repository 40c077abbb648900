package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/phuocduongts/storefront/internal/models"
)

type AuthService struct {
	c *Client
}

// AuthResult is what login and registration hand back.
type AuthResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	BirthDate string `json:"birthDate,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Role      string `json:"role"`
	Status    int    `json:"status"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type ResetPasswordRequest struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verificationCode"`
	NewPassword      string `json:"newPassword"`
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	var res AuthResult
	body := map[string]string{"username": username, "password": password}
	if err := s.c.post(ctx, "auth/login", body, &res); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if res.Token == "" {
		return nil, fmt.Errorf("login: %w", &APIError{Status: http.StatusOK, Message: "login response carried no token"})
	}
	return &res, nil
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	var res AuthResult
	if err := s.c.post(ctx, "auth/register", req, &res); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &res, nil
}

// Me returns the user the bearer token in ctx belongs to.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := s.c.get(ctx, "auth/me", nil, &u); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &u, nil
}

// Update sends the account fields as the "user" JSON part, the way the
// backend expects it next to an optional image part.
func (s *AuthService) Update(ctx context.Context, u models.User) (*models.User, error) {
	var out models.User
	req := Request{Method: http.MethodPut, Path: "auth/update", Body: u, JSONPart: "user"}
	if err := s.c.Do(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return &out, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if err := s.c.post(ctx, "auth/change-password", req, nil); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if err := s.c.post(ctx, "auth/forgot-password", map[string]string{"email": email}, nil); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := s.c.post(ctx, "auth/reset-password", req, nil); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}
