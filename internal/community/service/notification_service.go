package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nuvemautoma/hot-class/internal/community/domain"
	"github.com/nuvemautoma/hot-class/internal/community/dto"
	"github.com/nuvemautoma/hot-class/pkg/constant"
)

const notificationPageSize = 50

type NotificationService struct {
	repo    domain.NotificationRepository
	actions ActionRecorder
	now     func() time.Time
}

func NewNotificationService(repo domain.NotificationRepository, actions ActionRecorder) *NotificationService {
	return &NotificationService{repo: repo, actions: actions, now: time.Now}
}

func toNotificationOutput(n *domain.Notification) dto.NotificationOutput {
	return dto.NotificationOutput{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Icon:      n.Icon,
		Broadcast: n.UserID == nil,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func (s *NotificationService) List(ctx context.Context, userID string, limit int) (*dto.NotificationListOutput, error) {
	if limit <= 0 || limit > notificationPageSize {
		limit = notificationPageSize
	}

	notifications, err := s.repo.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.NotificationOutput, 0, len(notifications))
	for i := range notifications {
		out = append(out, toNotificationOutput(&notifications[i]))
	}
	return &dto.NotificationListOutput{Notifications: out, Unread: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func (s *NotificationService) Send(ctx context.Context, actorID string, input dto.NotificationInput) (*dto.NotificationOutput, error) {
	n := &domain.Notification{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(input.Title),
		Message:   strings.TrimSpace(input.Message),
		Icon:      input.Icon,
		CreatedAt: s.now(),
	}
	if input.UserID != "" {
		target := input.UserID
		n.UserID = &target
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, err
	}

	s.actions.RecordAction(ctx, actorID, constant.ActionSendNotice, input.UserID, n.ID)
	out := toNotificationOutput(n)
	return &out, nil
}

func (s *NotificationService) Delete(ctx context.Context, actorID, id string) error {
	if err := s.repo.DeleteNotification(ctx, id); err != nil {
		return err
	}
	s.actions.RecordAction(ctx, actorID, constant.ActionDeleteNotice, "", id)
	return nil
}
