package service

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/nuvemautoma/hot-class/config"
	"github.com/nuvemautoma/hot-class/internal/auth/domain"
	"github.com/nuvemautoma/hot-class/internal/auth/dto"
	autherror "github.com/nuvemautoma/hot-class/internal/errors"
	"github.com/nuvemautoma/hot-class/pkg/constant"
	"golang.org/x/crypto/bcrypt"
)

type Outcome int

const (
	// OutcomeKnown means the IP already held a slot.
	OutcomeKnown Outcome = iota
	// OutcomeRecorded means a free slot was consumed by the IP.
	OutcomeRecorded
	// OutcomeUnknownIP means no IP was available and the policy let the sign-in through.
	OutcomeUnknownIP
	OutcomeDenied
)

func (o Outcome) String() string {
	switch o {
	case OutcomeKnown:
		return "known"
	case OutcomeRecorded:
		return "recorded"
	case OutcomeUnknownIP:
		return "unknown_ip"
	case OutcomeDenied:
		return "denied"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

type Decision struct {
	Outcome Outcome
	IP      netip.Addr
	Slots   dto.SlotUsage
}

func (d Decision) Allowed() bool {
	return d.Outcome != OutcomeDenied
}

// MaxSlots is the only place the per-user quota is computed.
func MaxSlots(baseSlots, extraGrants int) int {
	return baseSlots + extraGrants
}

// DeviceService decides which client IPs may hold a session for an account.
type DeviceService struct {
	repo            domain.DeviceRepository
	baseSlots       int
	unlockHash      []byte
	unknownIPPolicy string
	now             func() time.Time
}

func NewDeviceService(repo domain.DeviceRepository, cfg *config.Config) *DeviceService {
	base := cfg.BaseDeviceSlots
	if base <= 0 {
		base = constant.BaseDeviceSlots
	}
	policy := cfg.UnknownIPPolicy
	if policy == "" {
		policy = config.UnknownIPAllow
	}

	return &DeviceService{
		repo:            repo,
		baseSlots:       base,
		unlockHash:      []byte(cfg.UnlockPasswordHash),
		unknownIPPolicy: policy,
		now:             time.Now,
	}
}

// Authorize checks ip against the user's slots. A new IP is recorded while
// slots remain; a known IP is always allowed. An invalid ip means the address
// could not be resolved and the unknown-IP policy applies.
func (s *DeviceService) Authorize(ctx context.Context, userID string, ip netip.Addr) (Decision, error) {
	if !ip.IsValid() {
		usage, err := s.Usage(ctx, userID)
		if err != nil {
			return Decision{}, err
		}
		if s.unknownIPPolicy == config.UnknownIPDeny {
			log.Warnf("device check denied for user %s: client ip unknown", userID)
			return Decision{Outcome: OutcomeDenied, Slots: *usage}, nil
		}
		log.Warnf("device check skipped for user %s: client ip unknown", userID)
		return Decision{Outcome: OutcomeUnknownIP, Slots: *usage}, nil
	}

	ip = ip.Unmap()
	addr := ip.String()

	ips, maxSlots, err := s.slotState(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	used := len(ips)

	for _, rec := range ips {
		if rec.IPAddress == addr {
			return Decision{Outcome: OutcomeKnown, IP: ip, Slots: dto.SlotUsage{Used: used, Max: maxSlots}}, nil
		}
	}

	if used >= maxSlots {
		log.Infof("device limit reached for user %s: ip %s denied (%d/%d)", userID, addr, used, maxSlots)
		return Decision{Outcome: OutcomeDenied, IP: ip, Slots: dto.SlotUsage{Used: used, Max: maxSlots}}, nil
	}

	rec := &domain.AuthorizedIP{
		ID:          uuid.NewString(),
		UserID:      userID,
		IPAddress:   addr,
		IsExtraSlot: used >= s.baseSlots,
		CreatedAt:   s.now(),
	}
	inserted, err := s.repo.InsertAuthorizedIP(ctx, rec)
	if err != nil {
		return Decision{}, err
	}

	slots := dto.SlotUsage{Used: used + 1, Max: maxSlots}
	if !inserted {
		// Recorded concurrently by another sign-in from the same address.
		return Decision{Outcome: OutcomeKnown, IP: ip, Slots: slots}, nil
	}

	log.Infof("recorded ip %s for user %s (%d/%d, extra=%t)", addr, userID, slots.Used, maxSlots, rec.IsExtraSlot)
	return Decision{Outcome: OutcomeRecorded, IP: ip, Slots: slots}, nil
}

// Deny refuses a sign-in whose request address cannot be trusted, whatever
// the unknown-IP policy says. Nothing is written.
func (s *DeviceService) Deny(ctx context.Context, userID string) (Decision, error) {
	usage, err := s.Usage(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Outcome: OutcomeDenied, Slots: *usage}, nil
}

// UnlockExtraSlot redeems the shared unlock password for one extra slot.
func (s *DeviceService) UnlockExtraSlot(ctx context.Context, userID, password string) (*dto.SlotUsage, error) {
	if len(s.unlockHash) == 0 || bcrypt.CompareHashAndPassword(s.unlockHash, []byte(password)) != nil {
		log.Warnf("rejected extra slot unlock for user %s", userID)
		return nil, autherror.ErrUnlockRejected
	}
	return s.GrantExtraSlot(ctx, userID)
}

// GrantExtraSlot adds one slot without a password check.
func (s *DeviceService) GrantExtraSlot(ctx context.Context, userID string) (*dto.SlotUsage, error) {
	grant := &domain.ExtraSlotGrant{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: s.now(),
	}
	if err := s.repo.InsertExtraSlotGrant(ctx, grant); err != nil {
		return nil, err
	}

	usage, err := s.Usage(ctx, userID)
	if err != nil {
		return nil, err
	}
	log.Infof("extra slot granted to user %s (%d/%d)", userID, usage.Used, usage.Max)
	return usage, nil
}

func (s *DeviceService) Usage(ctx context.Context, userID string) (*dto.SlotUsage, error) {
	ips, maxSlots, err := s.slotState(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.SlotUsage{Used: len(ips), Max: maxSlots}, nil
}

// ListDevices returns the user's authorized IPs in slot order. current, when
// valid, marks the caller's own address.
func (s *DeviceService) ListDevices(ctx context.Context, userID string, current netip.Addr) (*dto.DeviceListOutput, error) {
	ips, maxSlots, err := s.slotState(ctx, userID)
	if err != nil {
		return nil, err
	}

	currentAddr := ""
	if current.IsValid() {
		currentAddr = current.Unmap().String()
	}

	devices := make([]dto.DeviceOutput, 0, len(ips))
	for _, rec := range ips {
		devices = append(devices, dto.DeviceOutput{
			ID:          rec.ID,
			IPAddress:   rec.IPAddress,
			IsExtraSlot: rec.IsExtraSlot,
			Current:     rec.IPAddress == currentAddr,
			CreatedAt:   rec.CreatedAt,
		})
	}

	return &dto.DeviceListOutput{
		Devices: devices,
		Slots:   dto.SlotUsage{Used: len(ips), Max: maxSlots},
	}, nil
}

func (s *DeviceService) RemoveDevice(ctx context.Context, userID, deviceID string) error {
	return s.repo.DeleteAuthorizedIP(ctx, userID, deviceID)
}

func (s *DeviceService) slotState(ctx context.Context, userID string) ([]domain.AuthorizedIP, int, error) {
	ips, err := s.repo.ListAuthorizedIPs(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load authorized ips: %w", err)
	}
	grants, err := s.repo.CountExtraSlotGrants(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load extra slots: %w", err)
	}
	return ips, MaxSlots(s.baseSlots, grants), nil
}
