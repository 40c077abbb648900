package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/phuocduongts/storefront/internal/models"
)

type PostService struct {
	*Resource[models.Post]
	c *Client
}

func (s *PostService) ByTopic(ctx context.Context, topicID int64) ([]models.Post, error) {
	var items []models.Post
	if err := s.c.get(ctx, fmt.Sprintf("posts/topic/%d", topicID), nil, &items); err != nil {
		return nil, fmt.Errorf("list posts of topic %d: %w", topicID, err)
	}
	return items, nil
}

func (s *PostService) Search(ctx context.Context, title string) ([]models.Post, error) {
	var items []models.Post
	if err := s.c.get(ctx, "posts/search", url.Values{"title": {title}}, &items); err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return items, nil
}

// ContactService does not follow the shared lifecycle: its actions hang off
// the id ("contacts/{id}/trash").
type ContactService struct {
	c *Client
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (s *ContactService) Submit(ctx context.Context, req ContactRequest) error {
	if err := s.c.post(ctx, "contacts", req, nil); err != nil {
		return fmt.Errorf("submit contact: %w", err)
	}
	return nil
}

func (s *ContactService) List(ctx context.Context) ([]models.Contact, error) {
	var items []models.Contact
	if err := s.c.get(ctx, "contacts", nil, &items); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return items, nil
}

func (s *ContactService) Unread(ctx context.Context) ([]models.Contact, error) {
	var items []models.Contact
	if err := s.c.get(ctx, "contacts/unread", nil, &items); err != nil {
		return nil, fmt.Errorf("list unread contacts: %w", err)
	}
	return items, nil
}

func (s *ContactService) Get(ctx context.Context, id int64) (*models.Contact, error) {
	var c models.Contact
	if err := s.c.get(ctx, fmt.Sprintf("contacts/%d", id), nil, &c); err != nil {
		return nil, fmt.Errorf("get contact %d: %w", id, err)
	}
	return &c, nil
}

func (s *ContactService) MarkRead(ctx context.Context, id int64) error {
	return s.action(ctx, id, "read")
}

func (s *ContactService) MoveToTrash(ctx context.Context, id int64) error {
	return s.action(ctx, id, "trash")
}

func (s *ContactService) Restore(ctx context.Context, id int64) error {
	return s.action(ctx, id, "restore")
}

func (s *ContactService) Delete(ctx context.Context, id int64) error {
	if err := s.c.delete(ctx, fmt.Sprintf("contacts/%d", id), nil); err != nil {
		return fmt.Errorf("delete contact %d: %w", id, err)
	}
	return nil
}

func (s *ContactService) action(ctx context.Context, id int64, verb string) error {
	if err := s.c.put(ctx, fmt.Sprintf("contacts/%d/%s", id, verb), nil, nil, nil); err != nil {
		return fmt.Errorf("%s contact %d: %w", verb, id, err)
	}
	return nil
}
