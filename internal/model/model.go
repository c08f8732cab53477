package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserInactive  UserStatus = "inactive"
	UserSuspended UserStatus = "suspended"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	CPF          string     `json:"cpf"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	Balance      float64    `json:"balance"`
	Location     string     `json:"location"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type TransactionType string

const (
	TypeDeposit    TransactionType = "DEPOSIT"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypeBet        TransactionType = "BET"
	TypeWin        TransactionType = "WIN"
	TypeBonus      TransactionType = "BONUS"
	TypeRefund     TransactionType = "REFUND"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
	StatusCancelled TransactionStatus = "CANCELLED"
)

type PaymentMethod string

const (
	MethodPix    PaymentMethod = "PIX"
	MethodSystem PaymentMethod = "SYSTEM"
)

// Transaction is an immutable financial record. The only permitted mutation
// after insert is the PENDING -> terminal status resolution of a deposit.
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	UserID        uuid.UUID         `json:"userId"`
	Type          TransactionType   `json:"type"`
	Amount        float64           `json:"amount"`
	Status        TransactionStatus `json:"status"`
	PaymentMethod PaymentMethod     `json:"paymentMethod"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// RewardChest is one of the three bonus slots of a user. Amounts are not
// stored on the row: the schedule is RewardFor(ChestNumber).
type RewardChest struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"userId"`
	ChestNumber   int        `json:"chestNumber"`
	Opened        bool       `json:"opened"`
	OpenedAt      *time.Time `json:"openedAt,omitempty"`
	TransactionID *uuid.UUID `json:"transactionId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// TrackingParams carries the marketing attribution values captured at
// deposit time. Empty fields are omitted from outbound payloads.
type TrackingParams struct {
	Src         string `json:"src,omitempty"`
	Sck         string `json:"sck,omitempty"`
	UTMSource   string `json:"utm_source,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
	IP          string `json:"ip,omitempty"`
}

func (t TrackingParams) HasAny() bool {
	return t.Src != "" || t.Sck != "" || t.UTMSource != "" || t.UTMCampaign != "" ||
		t.UTMMedium != "" || t.UTMContent != "" || t.UTMTerm != ""
}
