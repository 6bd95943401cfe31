package service

import (
	"context"
	"fmt"

	"marketplace/internal/models"
)

//// Users

// UpsertUser stores the display name shown when a conversation is opened.
func (s *Service) UpsertUser(ctx context.Context, userId, displayName string) (models.User, error) {
	var err error
	user := models.User{}

	if user.Id, err = requireText("userId", userId, models.MaxIdLen); err != nil {
		return user, fmt.Errorf("service.Service.UpsertUser: %w", err)
	}
	if user.DisplayName, err = requireText("displayName", displayName, models.MaxNameLen); err != nil {
		return user, fmt.Errorf("service.Service.UpsertUser: %w", err)
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err = s.repo.UpsertUser(ctx, user)
	if err != nil {
		return user, s.storeErr("UpsertUser", err)
	}
	return user, nil
}
