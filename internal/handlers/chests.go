package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/lombarde1/backtunder/internal/chests"
	"github.com/lombarde1/backtunder/internal/middleware"
)

func (s *Server) InitializeChests(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r)
	if err != nil {
		fail(w, http.StatusUnauthorized, "Não autorizado")
		return
	}

	views, err := s.Chests.Initialize(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	ok(w, http.StatusCreated, map[string]any{
		"message": "Baús de recompensa inicializados com sucesso",
		"chests":  views,
	})
}

func (s *Server) GetChests(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r)
	if err != nil {
		fail(w, http.StatusUnauthorized, "Não autorizado")
		return
	}

	res, err := s.Chests.ListForUser(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	ok(w, http.StatusOK, map[string]any{
		"hasDeposit": res.HasDeposit,
		"chests":     res.Chests,
	})
}

func (s *Server) OpenChest(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r)
	if err != nil {
		fail(w, http.StatusUnauthorized, "Não autorizado")
		return
	}

	chestNumber, err := strconv.Atoi(chi.URLParam(r, "chestNumber"))
	if err != nil {
		handleError(w, chests.ErrInvalidChestNumber)
		return
	}

	res, err := s.Chests.Open(r.Context(), userID, chestNumber)
	if err != nil {
		handleError(w, err)
		return
	}

	ok(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Parabéns! Você abriu o baú %d e ganhou R$ %.0f de bônus!",
			res.Chest.ChestNumber, res.Chest.BonusAmount),
		"chest":       res.Chest,
		"newBalance":  res.NewBalance,
		"transaction": res.Transaction,
	})
}

func (s *Server) ChestStats(w http.ResponseWriter, r *http.Request) {
	report, err := s.Chests.Stats(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"stats": report})
}
