package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lombarde1/backtunder/internal/logging"
	"github.com/lombarde1/backtunder/internal/model"
)

var ErrInvalidAmount = errors.New("deposit amount must be positive")
var ErrInvalidStatus = errors.New("resolution status must be terminal")

// Ledger is the slice of the store the deposit flow needs.
type Ledger interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	CreateTransaction(ctx context.Context, tr *model.Transaction) error
	ResolveDeposit(ctx context.Context, id uuid.UUID, status model.TransactionStatus) (*model.Transaction, error)
}

// Notifier reports payment lifecycle events. Calls must be best effort: the
// service dispatches them in goroutines and never waits on the outcome.
type Notifier interface {
	PaymentInitiated(tr *model.Transaction, user *model.User, tracking model.TrackingParams)
	PaymentResolved(tr *model.Transaction, user *model.User, tracking model.TrackingParams)
}

type Service struct {
	ledger   Ledger
	notifier Notifier
}

func NewService(ledger Ledger, notifier Notifier) *Service {
	return &Service{ledger: ledger, notifier: notifier}
}

type DepositResult struct {
	Transaction *model.Transaction
	PixCode     string
}

// CreateDeposit registers a PENDING PIX deposit and reports the generated
// instrument to the attribution partner.
func (s *Service) CreateDeposit(ctx context.Context, userID uuid.UUID, amount float64, tracking model.TrackingParams) (*DepositResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	user, err := s.ledger.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	pixCode := newPixCode()
	tr := &model.Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          model.TypeDeposit,
		Amount:        amount,
		Status:        model.StatusPending,
		PaymentMethod: model.MethodPix,
		Metadata: map[string]any{
			"pixCode":  pixCode,
			"tracking": tracking,
		},
		CreatedAt: time.Now().UTC(),
	}

	if err := s.ledger.CreateTransaction(ctx, tr); err != nil {
		return nil, err
	}

	go s.notifier.PaymentInitiated(tr, user, tracking)

	logging.Logg.Info("Deposit created", "user", userID, "transaction", tr.ID, "amount", amount)
	return &DepositResult{Transaction: tr, PixCode: pixCode}, nil
}

// ResolveDeposit applies the gateway's verdict to a pending deposit. Only
// terminal statuses are accepted.
func (s *Service) ResolveDeposit(ctx context.Context, id uuid.UUID, status model.TransactionStatus) (*model.Transaction, error) {
	switch status {
	case model.StatusCompleted, model.StatusFailed, model.StatusCancelled:
	default:
		return nil, ErrInvalidStatus
	}

	tr, err := s.ledger.ResolveDeposit(ctx, id, status)
	if err != nil {
		return nil, err
	}

	user, err := s.ledger.GetUserByID(ctx, tr.UserID)
	if err != nil {
		// The deposit is already resolved; attribution just misses this one.
		logging.Logg.Warn("Deposit resolved for unknown user", "transaction", id, "error", err)
		return tr, nil
	}

	go s.notifier.PaymentResolved(tr, user, trackingFromMetadata(tr.Metadata))

	return tr, nil
}

func trackingFromMetadata(metadata map[string]any) model.TrackingParams {
	var tracking model.TrackingParams
	raw, ok := metadata["tracking"]
	if !ok {
		return tracking
	}
	b, err := json.Marshal(raw)
	if err != nil {
		logging.Logg.Warn("Unreadable tracking metadata", "error", err)
		return tracking
	}
	if err := json.Unmarshal(b, &tracking); err != nil {
		logging.Logg.Warn("Malformed tracking metadata", "error", err)
	}
	return tracking
}

func newPixCode() string {
	return fmt.Sprintf("PIX-%s", strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")))
}
