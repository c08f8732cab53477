package chests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lombarde1/backtunder/internal/model"
	"github.com/lombarde1/backtunder/internal/store"
)

var ErrInvalidChestNumber = errors.New("invalid chest number")
var ErrDepositRequired = errors.New("deposit required before opening chests")

// ChestStore persists the per-user chest rows. OpenChest must flip the
// opened flag conditionally on it being unopened, together with the bonus
// transaction insert and balance credit, as one atomic unit.
type ChestStore interface {
	InitChests(ctx context.Context, userID uuid.UUID) ([]model.RewardChest, error)
	ListChests(ctx context.Context, userID uuid.UUID) ([]model.RewardChest, error)
	GetChest(ctx context.Context, userID uuid.UUID, chestNumber int) (*model.RewardChest, error)
	OpenChest(ctx context.Context, chest *model.RewardChest, tr *model.Transaction) (float64, error)
	ChestCounts(ctx context.Context) ([]store.ChestCount, error)
	UsersWithChests(ctx context.Context) (int, error)
}

// Ledger is the slice of the user/transaction store the chest workflow
// needs.
type Ledger interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	HasCompletedDeposit(ctx context.Context, userID uuid.UUID) (bool, error)
	CountUsers(ctx context.Context) (int, error)
}

// Service is the sole authority allowed to open a chest and disburse its
// reward.
type Service struct {
	chests ChestStore
	ledger Ledger
}

func NewService(chests ChestStore, ledger Ledger) *Service {
	return &Service{chests: chests, ledger: ledger}
}

type ChestView struct {
	ID          uuid.UUID  `json:"id"`
	ChestNumber int        `json:"chestNumber"`
	Opened      bool       `json:"opened"`
	OpenedAt    *time.Time `json:"openedAt,omitempty"`
	BonusAmount float64    `json:"bonusAmount"`
	ExtraAmount float64    `json:"extraAmount"`
	CanOpen     bool       `json:"canOpen"`
}

func viewOf(chest model.RewardChest, hasDeposit bool) ChestView {
	bonus, extra := model.RewardFor(chest.ChestNumber)
	return ChestView{
		ID:          chest.ID,
		ChestNumber: chest.ChestNumber,
		Opened:      chest.Opened,
		OpenedAt:    chest.OpenedAt,
		BonusAmount: bonus,
		ExtraAmount: extra,
		CanOpen:     !chest.Opened && hasDeposit,
	}
}

// Initialize creates the user's three chests. Fails with
// store.ErrChestsInitialized when they already exist.
func (s *Service) Initialize(ctx context.Context, userID uuid.UUID) ([]ChestView, error) {
	created, err := s.chests.InitChests(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]ChestView, 0, len(created))
	for _, chest := range created {
		views = append(views, viewOf(chest, false))
	}
	return views, nil
}

type ListResult struct {
	HasDeposit bool
	Chests     []ChestView
}

// ListForUser returns the user's chests ordered by number, creating them
// first when absent. The read-that-may-write fallback is deliberate: the
// frontend never calls initialize explicitly.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) (*ListResult, error) {
	hasDeposit, err := s.ledger.HasCompletedDeposit(ctx, userID)
	if err != nil {
		return nil, err
	}

	chests, err := s.ensureInitialized(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]ChestView, 0, len(chests))
	for _, chest := range chests {
		views = append(views, viewOf(chest, hasDeposit))
	}
	return &ListResult{HasDeposit: hasDeposit, Chests: views}, nil
}

func (s *Service) ensureInitialized(ctx context.Context, userID uuid.UUID) ([]model.RewardChest, error) {
	chests, err := s.chests.ListChests(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(chests) > 0 {
		return chests, nil
	}

	chests, err = s.chests.InitChests(ctx, userID)
	if errors.Is(err, store.ErrChestsInitialized) {
		// Lost the race against a concurrent first read.
		return s.chests.ListChests(ctx, userID)
	}
	return chests, err
}

type TransactionSummary struct {
	ID     uuid.UUID             `json:"id"`
	Amount float64               `json:"amount"`
	Type   model.TransactionType `json:"type"`
}

type OpenedChest struct {
	ChestNumber int        `json:"chestNumber"`
	Opened      bool       `json:"opened"`
	OpenedAt    *time.Time `json:"openedAt"`
	BonusAmount float64    `json:"bonusAmount"`
	ExtraAmount float64    `json:"extraAmount"`
	TotalAmount float64    `json:"totalAmount"`
}

type OpenResult struct {
	Chest       OpenedChest
	NewBalance  float64
	Transaction TransactionSummary
}

// Open executes the unlock workflow: deposit gate, chest and user lookups,
// then the atomic payout (bonus transaction + balance credit + opened flip).
func (s *Service) Open(ctx context.Context, userID uuid.UUID, chestNumber int) (*OpenResult, error) {
	if !model.ValidChestNumber(chestNumber) {
		return nil, ErrInvalidChestNumber
	}

	hasDeposit, err := s.ledger.HasCompletedDeposit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !hasDeposit {
		return nil, ErrDepositRequired
	}

	chest, err := s.chests.GetChest(ctx, userID, chestNumber)
	if err != nil {
		return nil, err
	}
	if chest.Opened {
		return nil, store.ErrChestAlreadyOpened
	}

	// The credit runs against the stored row, but a vanished user should
	// surface as not-found rather than a store failure.
	if _, err := s.ledger.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	bonus, extra := model.RewardFor(chestNumber)
	total := bonus + extra

	var description string
	if extra > 0 {
		description = fmt.Sprintf("Baú %d - Bônus de R$ %.0f + Prêmio especial de R$ %.0f", chestNumber, bonus, extra)
	} else {
		description = fmt.Sprintf("Baú %d - Bônus de R$ %.0f", chestNumber, bonus)
	}

	tr := &model.Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          model.TypeBonus,
		Amount:        total,
		Status:        model.StatusCompleted,
		PaymentMethod: model.MethodSystem,
		Metadata: map[string]any{
			"source":      "REWARD_CHEST",
			"chestNumber": chestNumber,
			"bonusAmount": bonus,
			"extraAmount": extra,
			"description": description,
		},
		CreatedAt: time.Now().UTC(),
	}

	newBalance, err := s.chests.OpenChest(ctx, chest, tr)
	if err != nil {
		return nil, err
	}

	return &OpenResult{
		Chest: OpenedChest{
			ChestNumber: chest.ChestNumber,
			Opened:      chest.Opened,
			OpenedAt:    chest.OpenedAt,
			BonusAmount: bonus,
			ExtraAmount: extra,
			TotalAmount: total,
		},
		NewBalance: newBalance,
		Transaction: TransactionSummary{
			ID:     tr.ID,
			Amount: tr.Amount,
			Type:   tr.Type,
		},
	}, nil
}

type ChestNumberStats struct {
	ChestNumber           int     `json:"chestNumber"`
	TotalChests           int     `json:"totalChests"`
	OpenedChests          int     `json:"openedChests"`
	TotalBonusDistributed float64 `json:"totalBonusDistributed"`
}

type StatsReport struct {
	TotalUsers      int                `json:"totalUsers"`
	UsersWithChests int                `json:"usersWithChests"`
	ChestStats      []ChestNumberStats `json:"chestStats"`
}

// Stats aggregates chest counts per number. Paid-out totals are derived from
// the reward schedule, so they cannot drift from what Open disburses.
func (s *Service) Stats(ctx context.Context) (*StatsReport, error) {
	counts, err := s.chests.ChestCounts(ctx)
	if err != nil {
		return nil, err
	}

	stats := make([]ChestNumberStats, 0, len(counts))
	for _, c := range counts {
		bonus, extra := model.RewardFor(c.ChestNumber)
		stats = append(stats, ChestNumberStats{
			ChestNumber:           c.ChestNumber,
			TotalChests:           c.Total,
			OpenedChests:          c.Opened,
			TotalBonusDistributed: float64(c.Opened) * (bonus + extra),
		})
	}

	totalUsers, err := s.ledger.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	usersWithChests, err := s.chests.UsersWithChests(ctx)
	if err != nil {
		return nil, err
	}

	return &StatsReport{
		TotalUsers:      totalUsers,
		UsersWithChests: usersWithChests,
		ChestStats:      stats,
	}, nil
}
