package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	authdto "github.com/nuvemautoma/hot-class/internal/auth/dto"
	"github.com/nuvemautoma/hot-class/internal/community/domain"
	"github.com/nuvemautoma/hot-class/internal/community/dto"
	"github.com/nuvemautoma/hot-class/internal/community/service"
	autherror "github.com/nuvemautoma/hot-class/internal/errors"
	"github.com/nuvemautoma/hot-class/internal/mocks"
	"github.com/nuvemautoma/hot-class/pkg/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedAction struct {
	actorID, action, target, details string
}

type actionLog struct {
	entries []recordedAction
}

func (l *actionLog) RecordAction(_ context.Context, actorID, action, targetUserID, details string) {
	l.entries = append(l.entries, recordedAction{actorID, action, targetUserID, details})
}

func TestGroupService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockGroupRepository(ctrl)
	s := service.NewGroupService(repo, &actionLog{})

	t.Run("normalizes the filter", func(t *testing.T) {
		repo.EXPECT().ListGroups(gomock.Any(), domain.GroupFilter{Platform: "whatsapp", Query: "vip"}).
			Return([]domain.Group{{ID: "group-1", Name: "VIP", Platform: "whatsapp", Link: "https://chat.whatsapp.com/x"}}, nil)

		groups, err := s.List(context.Background(), " WhatsApp ", " vip ")
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.True(t, groups[0].HasLink)
	})

	t.Run("unknown platform yields nothing", func(t *testing.T) {
		groups, err := s.List(context.Background(), "discord", "")
		require.NoError(t, err)
		assert.Empty(t, groups)
	})
}

func TestGroupService_JoinLink(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockGroupRepository(ctrl)
	s := service.NewGroupService(repo, &actionLog{})

	repo.EXPECT().GetGroup(gomock.Any(), "group-1").Return(&domain.Group{ID: "group-1", Link: "https://t.me/+abc"}, nil)
	link, err := s.JoinLink(context.Background(), "group-1")
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+abc", link)

	repo.EXPECT().GetGroup(gomock.Any(), "group-2").Return(&domain.Group{ID: "group-2"}, nil)
	_, err = s.JoinLink(context.Background(), "group-2")
	assert.ErrorIs(t, err, autherror.ErrGroupLinkMissing)

	repo.EXPECT().GetGroup(gomock.Any(), "missing").Return(nil, autherror.ErrGroupNotFound)
	_, err = s.JoinLink(context.Background(), "missing")
	assert.ErrorIs(t, err, autherror.ErrGroupNotFound)
}

func TestGroupService_Writes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockGroupRepository(ctrl)
	actions := &actionLog{}
	s := service.NewGroupService(repo, actions)
	input := dto.GroupInput{Name: " Turma VIP ", Platform: constant.PlatformTelegram, Link: "https://t.me/+abc"}

	var created *domain.Group
	repo.EXPECT().CreateGroup(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, g *domain.Group) error {
			created = g
			return nil
		})

	out, err := s.Create(context.Background(), "admin-1", input)
	require.NoError(t, err)
	assert.Equal(t, "Turma VIP", out.Name)
	require.NotNil(t, created)

	repo.EXPECT().GetGroup(gomock.Any(), created.ID).Return(created, nil)
	repo.EXPECT().UpdateGroup(gomock.Any(), gomock.Any()).Return(nil)

	input.Name = "Turma Premium"
	updated, err := s.Update(context.Background(), "admin-1", created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Turma Premium", updated.Name)

	repo.EXPECT().DeleteGroup(gomock.Any(), created.ID).Return(nil)
	require.NoError(t, s.Delete(context.Background(), "admin-1", created.ID))

	repo.EXPECT().DeleteGroup(gomock.Any(), "missing").Return(autherror.ErrGroupNotFound)
	assert.ErrorIs(t, s.Delete(context.Background(), "admin-1", "missing"), autherror.ErrGroupNotFound)

	require.Len(t, actions.entries, 3)
	assert.Equal(t, constant.ActionCreateGroup, actions.entries[0].action)
	assert.Equal(t, constant.ActionUpdateGroup, actions.entries[1].action)
	assert.Equal(t, constant.ActionDeleteGroup, actions.entries[2].action)
}

func TestNotificationService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockNotificationRepository(ctrl)
	s := service.NewNotificationService(repo, &actionLog{})
	target := "user-1"

	repo.EXPECT().ListForUser(gomock.Any(), "user-1", 50).Return([]domain.Notification{
		{ID: "n-2", Title: "Para você", UserID: &target},
		{ID: "n-1", Title: "Geral", Read: true},
	}, nil)
	repo.EXPECT().CountUnread(gomock.Any(), "user-1").Return(1, nil)

	out, err := s.List(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Len(t, out.Notifications, 2)
	assert.False(t, out.Notifications[0].Broadcast)
	assert.True(t, out.Notifications[1].Broadcast)
	assert.Equal(t, 1, out.Unread)
}

func TestNotificationService_Send(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockNotificationRepository(ctrl)
	actions := &actionLog{}
	s := service.NewNotificationService(repo, actions)

	t.Run("broadcast", func(t *testing.T) {
		repo.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, n *domain.Notification) error {
				assert.Nil(t, n.UserID)
				return nil
			})

		out, err := s.Send(context.Background(), "admin-1", dto.NotificationInput{Title: " Aviso "})
		require.NoError(t, err)
		assert.True(t, out.Broadcast)
		assert.Equal(t, "Aviso", out.Title)
	})

	t.Run("targeted", func(t *testing.T) {
		repo.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, n *domain.Notification) error {
				require.NotNil(t, n.UserID)
				assert.Equal(t, "9b2f7c1e-8d4a-4f7e-9a51-0c6b3d2e1f00", *n.UserID)
				return nil
			})

		out, err := s.Send(context.Background(), "admin-1", dto.NotificationInput{
			Title: "Aviso", UserID: "9b2f7c1e-8d4a-4f7e-9a51-0c6b3d2e1f00",
		})
		require.NoError(t, err)
		assert.False(t, out.Broadcast)
	})

	t.Run("store error", func(t *testing.T) {
		repo.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).Return(errors.New("db error"))

		_, err := s.Send(context.Background(), "admin-1", dto.NotificationInput{Title: "Aviso"})
		assert.Error(t, err)
	})

	assert.Len(t, actions.entries, 2)
}

type fakeProfiles struct{ err error }

func (f fakeProfiles) GetProfile(_ context.Context, userID string) (*authdto.ProfileOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &authdto.ProfileOutput{ID: userID, Name: "Aluna", CreatedAt: time.Now()}, nil
}

type fakeSlots struct{}

func (fakeSlots) Usage(context.Context, string) (*authdto.SlotUsage, error) {
	return &authdto.SlotUsage{Used: 2, Max: 3}, nil
}

func TestDashboardService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	groupRepo := mocks.NewMockGroupRepository(ctrl)
	noticeRepo := mocks.NewMockNotificationRepository(ctrl)
	groups := service.NewGroupService(groupRepo, &actionLog{})
	notices := service.NewNotificationService(noticeRepo, &actionLog{})

	t.Run("aggregates the member home screen", func(t *testing.T) {
		s := service.NewDashboardService(fakeProfiles{}, fakeSlots{}, groups, notices)

		groupRepo.EXPECT().CountGroups(gomock.Any()).Return(4, nil)
		noticeRepo.EXPECT().ListForUser(gomock.Any(), "user-1", 5).Return([]domain.Notification{{ID: "n-1"}}, nil)
		noticeRepo.EXPECT().CountUnread(gomock.Any(), "user-1").Return(1, nil)

		out, err := s.Get(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", out.Profile.ID)
		assert.Equal(t, authdto.SlotUsage{Used: 2, Max: 3}, out.Devices)
		assert.Equal(t, 4, out.Groups)
		assert.Equal(t, 1, out.UnreadNotifications)
		assert.Len(t, out.Recent, 1)
	})

	t.Run("profile error", func(t *testing.T) {
		s := service.NewDashboardService(fakeProfiles{err: autherror.ErrUserNotFound}, fakeSlots{}, groups, notices)

		_, err := s.Get(context.Background(), "user-1")
		assert.ErrorIs(t, err, autherror.ErrUserNotFound)
	})
}
