package service

import (
	"context"

	authdto "github.com/nuvemautoma/hot-class/internal/auth/dto"
	"github.com/nuvemautoma/hot-class/internal/community/dto"
)

const dashboardRecentNotifications = 5

type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*authdto.ProfileOutput, error)
}

type SlotUsageReader interface {
	Usage(ctx context.Context, userID string) (*authdto.SlotUsage, error)
}

// DashboardService assembles the member home screen.
type DashboardService struct {
	profiles      ProfileReader
	slots         SlotUsageReader
	groups        *GroupService
	notifications *NotificationService
}

func NewDashboardService(profiles ProfileReader, slots SlotUsageReader, groups *GroupService,
	notifications *NotificationService) *DashboardService {
	return &DashboardService{
		profiles:      profiles,
		slots:         slots,
		groups:        groups,
		notifications: notifications,
	}
}

func (s *DashboardService) Get(ctx context.Context, userID string) (*dto.DashboardOutput, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	usage, err := s.slots.Usage(ctx, userID)
	if err != nil {
		return nil, err
	}
	groups, err := s.groups.Count(ctx)
	if err != nil {
		return nil, err
	}
	notices, err := s.notifications.List(ctx, userID, dashboardRecentNotifications)
	if err != nil {
		return nil, err
	}

	return &dto.DashboardOutput{
		Profile:             profile,
		Devices:             *usage,
		Groups:              groups,
		UnreadNotifications: notices.Unread,
		Recent:              notices.Notifications,
	}, nil
}
