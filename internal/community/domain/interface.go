package domain

//go:generate mockgen -destination=../../mocks/mock_community_repositories.go -package=mocks github.com/nuvemautoma/hot-class/internal/community/domain GroupRepository,NotificationRepository

import "context"

type GroupRepository interface {
	ListGroups(ctx context.Context, filter GroupFilter) ([]Group, error)
	GetGroup(ctx context.Context, id string) (*Group, error)
	CreateGroup(ctx context.Context, group *Group) error
	UpdateGroup(ctx context.Context, group *Group) error
	DeleteGroup(ctx context.Context, id string) error
	CountGroups(ctx context.Context) (int, error)
}

type NotificationRepository interface {
	// ListForUser returns broadcasts and notifications addressed to userID, newest first.
	ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	CreateNotification(ctx context.Context, n *Notification) error
	DeleteNotification(ctx context.Context, id string) error
	MarkRead(ctx context.Context, userID, notificationID string) error
}
