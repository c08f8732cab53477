package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/lombarde1/backtunder/internal/middleware"
	"github.com/lombarde1/backtunder/internal/model"
	"github.com/lombarde1/backtunder/internal/store"
)

// ListUsers is the admin listing with paging and phone/username/name search.
func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	filter := store.UserFilter{
		Page:   page,
		Limit:  limit,
		Search: query.Get("search"),
	}
	switch status := model.UserStatus(query.Get("status")); status {
	case model.UserActive, model.UserInactive, model.UserSuspended:
		filter.Status = status
	}

	users, total, err := s.Users.ListUsers(r.Context(), filter)
	if err != nil {
		handleError(w, err)
		return
	}

	ok(w, http.StatusOK, map[string]any{
		"count":       len(users),
		"total":       total,
		"pages":       int(math.Ceil(float64(total) / float64(limit))),
		"currentPage": page,
		"users":       users,
	})
}

func userIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		fail(w, http.StatusBadRequest, "ID de usuário inválido")
		return
	}

	user, err := s.Users.GetUserByID(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"user": user})
}

type adminUpdateRequest struct {
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	CPF      string   `json:"cpf"`
	Status   string   `json:"status"`
	Role     string   `json:"role"`
	Balance  *float64 `json:"balance"`
	Location string   `json:"location"`
}

// UpdateUser is the admin edit: any provided field replaces the stored one,
// and the balance changes only when explicitly sent.
func (s *Server) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		fail(w, http.StatusBadRequest, "ID de usuário inválido")
		return
	}

	var req adminUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Formato de requisição inválido")
		return
	}

	user, err := s.Users.GetUserByID(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	if req.FullName != "" {
		user.Name = req.FullName
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.CPF != "" {
		user.CPF = req.CPF
	}
	if req.Status != "" {
		user.Status = model.UserStatus(req.Status)
	}
	if req.Role != "" {
		user.Role = model.Role(req.Role)
	}
	if req.Location != "" {
		user.Location = req.Location
	}
	if req.Balance != nil {
		if *req.Balance < 0 {
			fail(w, http.StatusBadRequest, "Saldo não pode ser negativo")
			return
		}
		user.Balance = *req.Balance
	}

	if err := s.Users.UpdateUser(r.Context(), user); err != nil {
		handleError(w, err)
		return
	}

	ok(w, http.StatusOK, map[string]any{
		"message": "Usuário atualizado com sucesso",
		"user":    user,
	})
}

func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		fail(w, http.StatusBadRequest, "ID de usuário inválido")
		return
	}

	if err := s.Users.DeleteUser(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"message": "Usuário removido com sucesso"})
}

func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r)
	if err != nil {
		fail(w, http.StatusUnauthorized, "Não autorizado")
		return
	}

	user, err := s.Users.GetUserByID(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"data": user})
}

type profileUpdateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Location string `json:"location"`
}

// UpdateProfile lets the caller change name, email and location; nothing
// else is editable through the self-service path.
func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r)
	if err != nil {
		fail(w, http.StatusUnauthorized, "Não autorizado")
		return
	}

	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Formato de requisição inválido")
		return
	}

	user, err := s.Users.GetUserByID(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	if req.Name == "" {
		req.Name = user.Name
	}
	if req.Email == "" {
		req.Email = user.Email
	}
	if req.Location == "" {
		req.Location = user.Location
	}

	updated, err := s.Users.UpdateProfile(r.Context(), userID, req.Name, req.Email, req.Location)
	if err != nil {
		handleError(w, err)
		return
	}

	ok(w, http.StatusOK, map[string]any{
		"message": "Perfil atualizado com sucesso",
		"data":    updated,
	})
}
