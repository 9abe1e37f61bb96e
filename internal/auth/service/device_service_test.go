package service_test

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/nuvemautoma/hot-class/config"
	"github.com/nuvemautoma/hot-class/internal/auth/domain"
	"github.com/nuvemautoma/hot-class/internal/auth/dto"
	"github.com/nuvemautoma/hot-class/internal/auth/service"
	autherror "github.com/nuvemautoma/hot-class/internal/errors"
	"github.com/nuvemautoma/hot-class/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const unlockPassword = "Desbloqueio#2024"

// memoryDevices is an in-memory DeviceRepository keyed by user id.
type memoryDevices struct {
	mu     sync.Mutex
	ips    map[string][]domain.AuthorizedIP
	grants map[string]int
}

func newMemoryDevices() *memoryDevices {
	return &memoryDevices{ips: map[string][]domain.AuthorizedIP{}, grants: map[string]int{}}
}

func (m *memoryDevices) ListAuthorizedIPs(_ context.Context, userID string) ([]domain.AuthorizedIP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuthorizedIP(nil), m.ips[userID]...), nil
}

func (m *memoryDevices) CountExtraSlotGrants(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.grants[userID], nil
}

func (m *memoryDevices) InsertAuthorizedIP(_ context.Context, ip *domain.AuthorizedIP) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.ips[ip.UserID] {
		if rec.IPAddress == ip.IPAddress {
			return false, nil
		}
	}
	m.ips[ip.UserID] = append(m.ips[ip.UserID], *ip)
	return true, nil
}

func (m *memoryDevices) InsertExtraSlotGrant(_ context.Context, grant *domain.ExtraSlotGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[grant.UserID]++
	return nil
}

func (m *memoryDevices) DeleteAuthorizedIP(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.ips[userID] {
		if rec.ID == id {
			m.ips[userID] = append(m.ips[userID][:i], m.ips[userID][i+1:]...)
			return nil
		}
	}
	return autherror.ErrDeviceNotFound
}

func unlockHash(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(unlockPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newDeviceService(t *testing.T, repo domain.DeviceRepository, policy string) *service.DeviceService {
	t.Helper()
	return service.NewDeviceService(repo, &config.Config{
		BaseDeviceSlots:    3,
		UnlockPasswordHash: unlockHash(t),
		UnknownIPPolicy:    policy,
	})
}

var (
	ipA = netip.MustParseAddr("203.0.113.1")
	ipB = netip.MustParseAddr("203.0.113.2")
	ipC = netip.MustParseAddr("203.0.113.3")
	ipD = netip.MustParseAddr("203.0.113.4")
)

func TestMaxSlots(t *testing.T) {
	assert.Equal(t, 3, service.MaxSlots(3, 0))
	assert.Equal(t, 5, service.MaxSlots(3, 2))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "known", service.OutcomeKnown.String())
	assert.Equal(t, "recorded", service.OutcomeRecorded.String())
	assert.Equal(t, "unknown_ip", service.OutcomeUnknownIP.String())
	assert.Equal(t, "denied", service.OutcomeDenied.String())
}

func TestDeviceService_Authorize_FillsBaseSlotsThenDenies(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryDevices()
	s := newDeviceService(t, repo, config.UnknownIPAllow)

	for i, ip := range []netip.Addr{ipA, ipB, ipC} {
		decision, err := s.Authorize(ctx, "user-1", ip)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeRecorded, decision.Outcome)
		assert.True(t, decision.Allowed())
		assert.Equal(t, i+1, decision.Slots.Used)
		assert.Equal(t, 3, decision.Slots.Max)
	}

	decision, err := s.Authorize(ctx, "user-1", ipD)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeDenied, decision.Outcome)
	assert.False(t, decision.Allowed())
	assert.Equal(t, 3, decision.Slots.Used)

	ips, _ := repo.ListAuthorizedIPs(ctx, "user-1")
	require.Len(t, ips, 3)
	for _, rec := range ips {
		assert.False(t, rec.IsExtraSlot)
	}
}

func TestDeviceService_Authorize_KnownIPIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryDevices()
	s := newDeviceService(t, repo, config.UnknownIPAllow)

	for _, ip := range []netip.Addr{ipA, ipB, ipC} {
		_, err := s.Authorize(ctx, "user-1", ip)
		require.NoError(t, err)
	}
	before, _ := repo.ListAuthorizedIPs(ctx, "user-1")

	for i := 0; i < 3; i++ {
		decision, err := s.Authorize(ctx, "user-1", ipB)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeKnown, decision.Outcome)
	}

	after, _ := repo.ListAuthorizedIPs(ctx, "user-1")
	assert.Equal(t, before, after)
}

func TestDeviceService_Authorize_MappedAddressMatchesKnownIP(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryDevices()
	s := newDeviceService(t, repo, config.UnknownIPAllow)

	_, err := s.Authorize(ctx, "user-1", ipA)
	require.NoError(t, err)

	decision, err := s.Authorize(ctx, "user-1", netip.AddrFrom16(ipA.As16()))
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeKnown, decision.Outcome)
}

func TestDeviceService_BlockedUserRecoversWithUnlock(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryDevices()
	s := newDeviceService(t, repo, config.UnknownIPAllow)

	for _, ip := range []netip.Addr{ipA, ipB, ipC} {
		_, err := s.Authorize(ctx, "user-1", ip)
		require.NoError(t, err)
	}

	decision, err := s.Authorize(ctx, "user-1", ipD)
	require.NoError(t, err)
	require.Equal(t, service.OutcomeDenied, decision.Outcome)

	usage, err := s.UnlockExtraSlot(ctx, "user-1", unlockPassword)
	require.NoError(t, err)
	assert.Equal(t, 3, usage.Used)
	assert.Equal(t, 4, usage.Max)

	decision, err = s.Authorize(ctx, "user-1", ipD)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeRecorded, decision.Outcome)
	assert.Equal(t, 4, decision.Slots.Used)
	assert.Equal(t, 4, decision.Slots.Max)

	ips, _ := repo.ListAuthorizedIPs(ctx, "user-1")
	require.Len(t, ips, 4)
	assert.Equal(t, ipD.String(), ips[3].IPAddress)
	assert.True(t, ips[3].IsExtraSlot)
}

func TestDeviceService_UnlockExtraSlot_WrongPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockDeviceRepository(ctrl)
	s := newDeviceService(t, mockRepo, config.UnknownIPAllow)

	mockRepo.EXPECT().InsertExtraSlotGrant(gomock.Any(), gomock.Any()).Times(0)

	usage, err := s.UnlockExtraSlot(context.Background(), "user-1", "palpite")

	assert.ErrorIs(t, err, autherror.ErrUnlockRejected)
	assert.Nil(t, usage)
}

func TestDeviceService_UnlockExtraSlot_DisabledWithoutSecret(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockDeviceRepository(ctrl)
	s := service.NewDeviceService(mockRepo, &config.Config{})

	_, err := s.UnlockExtraSlot(context.Background(), "user-1", "")

	assert.ErrorIs(t, err, autherror.ErrUnlockRejected)
}

func TestDeviceService_Authorize_UnknownIP(t *testing.T) {
	tests := []struct {
		name    string
		policy  string
		outcome service.Outcome
		allowed bool
	}{
		{name: "allow policy lets the sign-in through", policy: config.UnknownIPAllow, outcome: service.OutcomeUnknownIP, allowed: true},
		{name: "deny policy blocks the sign-in", policy: config.UnknownIPDeny, outcome: service.OutcomeDenied, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			// Usage is read for the response; nothing is recorded.
			mockRepo := mocks.NewMockDeviceRepository(ctrl)
			mockRepo.EXPECT().ListAuthorizedIPs(gomock.Any(), "user-1").
				Return([]domain.AuthorizedIP{{ID: "1", IPAddress: ipA.String()}, {ID: "2", IPAddress: ipB.String()}}, nil)
			mockRepo.EXPECT().CountExtraSlotGrants(gomock.Any(), "user-1").Return(1, nil)
			mockRepo.EXPECT().InsertAuthorizedIP(gomock.Any(), gomock.Any()).Times(0)
			s := newDeviceService(t, mockRepo, tt.policy)

			decision, err := s.Authorize(context.Background(), "user-1", netip.Addr{})

			require.NoError(t, err)
			assert.Equal(t, tt.outcome, decision.Outcome)
			assert.Equal(t, tt.allowed, decision.Allowed())
			assert.Equal(t, dto.SlotUsage{Used: 2, Max: 4}, decision.Slots)
		})
	}
}

func TestDeviceService_Deny(t *testing.T) {
	repo := newMemoryDevices()
	s := newDeviceService(t, repo, config.UnknownIPAllow)
	_, err := s.Authorize(context.Background(), "user-1", ipA)
	require.NoError(t, err)

	decision, err := s.Deny(context.Background(), "user-1")

	require.NoError(t, err)
	assert.False(t, decision.Allowed())
	assert.Equal(t, dto.SlotUsage{Used: 1, Max: 3}, decision.Slots)
	ips, _ := repo.ListAuthorizedIPs(context.Background(), "user-1")
	assert.Len(t, ips, 1)
}

func TestDeviceService_Authorize_ConcurrentInsertIsAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockDeviceRepository(ctrl)
	s := newDeviceService(t, mockRepo, config.UnknownIPAllow)

	mockRepo.EXPECT().ListAuthorizedIPs(gomock.Any(), "user-1").Return(nil, nil)
	mockRepo.EXPECT().CountExtraSlotGrants(gomock.Any(), "user-1").Return(0, nil)
	mockRepo.EXPECT().InsertAuthorizedIP(gomock.Any(), gomock.Any()).Return(false, nil)

	decision, err := s.Authorize(context.Background(), "user-1", ipA)

	require.NoError(t, err)
	assert.Equal(t, service.OutcomeKnown, decision.Outcome)
}

func TestDeviceService_Authorize_ExtraFlagFollowsBaseQuota(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockDeviceRepository(ctrl)
	s := newDeviceService(t, mockRepo, config.UnknownIPAllow)

	existing := []domain.AuthorizedIP{
		{ID: "1", UserID: "user-1", IPAddress: ipA.String()},
		{ID: "2", UserID: "user-1", IPAddress: ipB.String()},
		{ID: "3", UserID: "user-1", IPAddress: ipC.String()},
	}
	mockRepo.EXPECT().ListAuthorizedIPs(gomock.Any(), "user-1").Return(existing, nil)
	mockRepo.EXPECT().CountExtraSlotGrants(gomock.Any(), "user-1").Return(2, nil)
	mockRepo.EXPECT().InsertAuthorizedIP(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ip *domain.AuthorizedIP) (bool, error) {
			assert.True(t, ip.IsExtraSlot)
			assert.Equal(t, ipD.String(), ip.IPAddress)
			return true, nil
		})

	decision, err := s.Authorize(context.Background(), "user-1", ipD)

	require.NoError(t, err)
	assert.Equal(t, service.OutcomeRecorded, decision.Outcome)
	assert.Equal(t, 4, decision.Slots.Used)
	assert.Equal(t, 5, decision.Slots.Max)
}

func TestDeviceService_Authorize_StoreErrors(t *testing.T) {
	storeErr := errors.New("connection reset")

	t.Run("list fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := mocks.NewMockDeviceRepository(ctrl)
		s := newDeviceService(t, mockRepo, config.UnknownIPAllow)
		mockRepo.EXPECT().ListAuthorizedIPs(gomock.Any(), "user-1").Return(nil, storeErr)

		_, err := s.Authorize(context.Background(), "user-1", ipA)
		assert.ErrorIs(t, err, storeErr)
	})

	t.Run("insert fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := mocks.NewMockDeviceRepository(ctrl)
		s := newDeviceService(t, mockRepo, config.UnknownIPAllow)
		mockRepo.EXPECT().ListAuthorizedIPs(gomock.Any(), "user-1").Return(nil, nil)
		mockRepo.EXPECT().CountExtraSlotGrants(gomock.Any(), "user-1").Return(0, nil)
		mockRepo.EXPECT().InsertAuthorizedIP(gomock.Any(), gomock.Any()).Return(false, storeErr)

		_, err := s.Authorize(context.Background(), "user-1", ipA)
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestDeviceService_ListDevices(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryDevices()
	s := newDeviceService(t, repo, config.UnknownIPAllow)

	for _, ip := range []netip.Addr{ipA, ipB} {
		_, err := s.Authorize(ctx, "user-1", ip)
		require.NoError(t, err)
	}

	out, err := s.ListDevices(ctx, "user-1", ipB)
	require.NoError(t, err)
	require.Len(t, out.Devices, 2)
	assert.Equal(t, ipA.String(), out.Devices[0].IPAddress)
	assert.False(t, out.Devices[0].Current)
	assert.True(t, out.Devices[1].Current)
	assert.Equal(t, 2, out.Slots.Used)
	assert.Equal(t, 3, out.Slots.Max)
}

func TestDeviceService_RemoveDeviceFreesSlot(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryDevices()
	s := newDeviceService(t, repo, config.UnknownIPAllow)

	for _, ip := range []netip.Addr{ipA, ipB, ipC} {
		_, err := s.Authorize(ctx, "user-1", ip)
		require.NoError(t, err)
	}
	ips, _ := repo.ListAuthorizedIPs(ctx, "user-1")

	require.NoError(t, s.RemoveDevice(ctx, "user-1", ips[0].ID))

	decision, err := s.Authorize(ctx, "user-1", ipD)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeRecorded, decision.Outcome)

	assert.ErrorIs(t, s.RemoveDevice(ctx, "user-1", "missing"), autherror.ErrDeviceNotFound)
}
