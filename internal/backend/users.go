package backend

import (
	"context"
	"fmt"

	"github.com/phuocduongts/storefront/internal/models"
)

type UserService struct {
	*Resource[models.User]
	c *Client
}

// AdminLogin exchanges admin credentials for a bearer token. The backend
// returns the bare token; callers fetch the user with Auth.Me.
func (s *UserService) AdminLogin(ctx context.Context, username, password string) (string, error) {
	var token string
	body := map[string]string{"username": username, "password": password}
	if err := s.c.post(ctx, "users/admin/login", body, &token); err != nil {
		return "", fmt.Errorf("admin login: %w", err)
	}
	return token, nil
}

func (s *UserService) ChangePassword(ctx context.Context, id int64, req ChangePasswordRequest) error {
	if err := s.c.post(ctx, fmt.Sprintf("users/%d/change-password", id), req, nil); err != nil {
		return fmt.Errorf("change password of user %d: %w", id, err)
	}
	return nil
}
