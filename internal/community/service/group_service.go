package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nuvemautoma/hot-class/internal/community/domain"
	"github.com/nuvemautoma/hot-class/internal/community/dto"
	autherror "github.com/nuvemautoma/hot-class/internal/errors"
	"github.com/nuvemautoma/hot-class/pkg/constant"
)

// ActionRecorder writes to the admin audit log. Implementations swallow failures.
type ActionRecorder interface {
	RecordAction(ctx context.Context, actorID, action, targetUserID, details string)
}

type GroupService struct {
	repo    domain.GroupRepository
	actions ActionRecorder
	now     func() time.Time
}

func NewGroupService(repo domain.GroupRepository, actions ActionRecorder) *GroupService {
	return &GroupService{repo: repo, actions: actions, now: time.Now}
}

func toGroupOutput(g *domain.Group) dto.GroupOutput {
	return dto.GroupOutput{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Icon:        g.Icon,
		Platform:    g.Platform,
		HasLink:     g.Link != "",
		CreatedAt:   g.CreatedAt,
	}
}

// List filters by platform (whatsapp, telegram or empty for both) and a
// case-insensitive search term.
func (s *GroupService) List(ctx context.Context, platform, query string) ([]dto.GroupOutput, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform != "" && platform != constant.PlatformWhatsApp && platform != constant.PlatformTelegram {
		return []dto.GroupOutput{}, nil
	}

	groups, err := s.repo.ListGroups(ctx, domain.GroupFilter{Platform: platform, Query: strings.TrimSpace(query)})
	if err != nil {
		return nil, err
	}

	out := make([]dto.GroupOutput, 0, len(groups))
	for i := range groups {
		out = append(out, toGroupOutput(&groups[i]))
	}
	return out, nil
}

func (s *GroupService) Get(ctx context.Context, id string) (*dto.GroupOutput, error) {
	g, err := s.repo.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toGroupOutput(g)
	return &out, nil
}

// JoinLink returns the invite link. Links are only handed to signed-in members.
func (s *GroupService) JoinLink(ctx context.Context, id string) (string, error) {
	g, err := s.repo.GetGroup(ctx, id)
	if err != nil {
		return "", err
	}
	if g.Link == "" {
		return "", autherror.ErrGroupLinkMissing
	}
	return g.Link, nil
}

func (s *GroupService) Count(ctx context.Context) (int, error) {
	return s.repo.CountGroups(ctx)
}

func (s *GroupService) Create(ctx context.Context, actorID string, input dto.GroupInput) (*dto.GroupOutput, error) {
	now := s.now()
	g := &domain.Group{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Icon:        input.Icon,
		Link:        strings.TrimSpace(input.Link),
		Platform:    input.Platform,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateGroup(ctx, g); err != nil {
		return nil, err
	}

	s.actions.RecordAction(ctx, actorID, constant.ActionCreateGroup, "", g.ID)
	out := toGroupOutput(g)
	return &out, nil
}

func (s *GroupService) Update(ctx context.Context, actorID, id string, input dto.GroupInput) (*dto.GroupOutput, error) {
	g, err := s.repo.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}

	g.Name = strings.TrimSpace(input.Name)
	g.Description = strings.TrimSpace(input.Description)
	g.Icon = input.Icon
	g.Link = strings.TrimSpace(input.Link)
	g.Platform = input.Platform
	g.UpdatedAt = s.now()

	if err := s.repo.UpdateGroup(ctx, g); err != nil {
		return nil, err
	}

	s.actions.RecordAction(ctx, actorID, constant.ActionUpdateGroup, "", g.ID)
	out := toGroupOutput(g)
	return &out, nil
}

func (s *GroupService) Delete(ctx context.Context, actorID, id string) error {
	if err := s.repo.DeleteGroup(ctx, id); err != nil {
		return err
	}
	s.actions.RecordAction(ctx, actorID, constant.ActionDeleteGroup, "", id)
	return nil
}
