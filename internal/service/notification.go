package service

import (
	"context"
	"fmt"

	"github.com/Kerhoff/ResidentHub/internal/models"
)

// ListNotifications returns the actor's newest notifications
func (s *Service) ListNotifications(ctx context.Context, actor Actor, unreadOnly bool) ([]*models.Notification, error) {
	list, err := s.Notifications.ListByResident(ctx, actor.ResidentID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	if list == nil {
		list = []*models.Notification{}
	}
	return list, nil
}

// SetNotificationRead flags one of the actor's notifications read or unread
func (s *Service) SetNotificationRead(ctx context.Context, actor Actor, id int64, read bool) error {
	if err := s.Notifications.SetRead(ctx, id, actor.ResidentID, read); err != nil {
		return fmt.Errorf("failed to update notification %d: %w", id, translate(err))
	}
	return nil
}

// MarkAllNotificationsRead flags every unread notification of the actor and returns how many changed
func (s *Service) MarkAllNotificationsRead(ctx context.Context, actor Actor) (int64, error) {
	n, err := s.Notifications.MarkAllRead(ctx, actor.ResidentID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}
