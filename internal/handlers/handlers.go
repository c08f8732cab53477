package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lombarde1/backtunder/internal/auth"
	"github.com/lombarde1/backtunder/internal/chests"
	"github.com/lombarde1/backtunder/internal/config"
	"github.com/lombarde1/backtunder/internal/model"
	"github.com/lombarde1/backtunder/internal/payments"
	"github.com/lombarde1/backtunder/internal/store"
	"github.com/lombarde1/backtunder/internal/utmify"
)

// UserStore is the slice of the Ledger Store the HTTP surface uses directly.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context, filter store.UserFilter) ([]model.User, int, error)
	UpdateUser(ctx context.Context, user *model.User) error
	UpdateProfile(ctx context.Context, id uuid.UUID, name, email, location string) (*model.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type ChestService interface {
	Initialize(ctx context.Context, userID uuid.UUID) ([]chests.ChestView, error)
	ListForUser(ctx context.Context, userID uuid.UUID) (*chests.ListResult, error)
	Open(ctx context.Context, userID uuid.UUID, chestNumber int) (*chests.OpenResult, error)
	Stats(ctx context.Context) (*chests.StatsReport, error)
}

type PaymentService interface {
	CreateDeposit(ctx context.Context, userID uuid.UUID, amount float64, tracking model.TrackingParams) (*payments.DepositResult, error)
	ResolveDeposit(ctx context.Context, id uuid.UUID, status model.TransactionStatus) (*model.Transaction, error)
}

type Server struct {
	Config   config.Config
	Store    *store.Database
	Users    UserStore
	Chests   ChestService
	Payments PaymentService
}

func NewServer(cfg config.Config) (*Server, error) {
	var s store.Database
	if err := s.NewStorage(cfg.DBDsn); err != nil {
		return nil, err
	}

	notifier := utmify.New(cfg.UtmifyURL, cfg.UtmifyToken)
	return &Server{
		Config:   cfg,
		Store:    &s,
		Users:    &s,
		Chests:   chests.NewService(&s, &s),
		Payments: payments.NewService(&s, notifier),
	}, nil
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	CPF      string `json:"cpf"`
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Formato de requisição inválido")
		return
	}
	if req.Username == "" || req.Password == "" {
		fail(w, http.StatusBadRequest, "Usuário e senha são obrigatórios")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		handleError(w, err)
		return
	}

	user := &model.User{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		Name:         req.Name,
		Phone:        req.Phone,
		CPF:          req.CPF,
		Role:         model.RoleUser,
		Status:       model.UserActive,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Users.CreateUser(r.Context(), user); err != nil {
		handleError(w, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Role, s.Config.JWTSecret)
	if err != nil {
		handleError(w, err)
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	ok(w, http.StatusCreated, map[string]any{
		"message": "Usuário registrado com sucesso",
		"token":   token,
		"user":    user,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Formato de requisição inválido")
		return
	}

	user, err := s.Users.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		fail(w, http.StatusUnauthorized, "Usuário ou senha inválidos")
		return
	}
	if err := auth.CheckPass(user.PasswordHash, req.Password); err != nil {
		fail(w, http.StatusUnauthorized, "Usuário ou senha inválidos")
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Role, s.Config.JWTSecret)
	if err != nil {
		handleError(w, err)
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	ok(w, http.StatusOK, map[string]any{
		"message": "Login realizado com sucesso",
		"token":   token,
		"user":    user,
	})
}
