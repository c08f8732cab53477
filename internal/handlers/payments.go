package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/lombarde1/backtunder/internal/middleware"
	"github.com/lombarde1/backtunder/internal/model"
)

type depositRequest struct {
	Amount         float64              `json:"amount"`
	TrackingParams model.TrackingParams `json:"trackingParams"`
}

func (s *Server) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r)
	if err != nil {
		fail(w, http.StatusUnauthorized, "Não autorizado")
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Requisição inválida")
		return
	}

	res, err := s.Payments.CreateDeposit(r.Context(), userID, req.Amount, req.TrackingParams)
	if err != nil {
		handleError(w, err)
		return
	}

	ok(w, http.StatusCreated, map[string]any{
		"transactionId": res.Transaction.ID,
		"pixCode":       res.PixCode,
		"amount":        res.Transaction.Amount,
		"status":        res.Transaction.Status,
	})
}

type webhookRequest struct {
	TransactionID string                  `json:"transactionId"`
	Status        model.TransactionStatus `json:"status"`
}

func (s *Server) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Requisição inválida")
		return
	}

	id, err := uuid.Parse(req.TransactionID)
	if err != nil {
		fail(w, http.StatusBadRequest, "ID de transação inválido")
		return
	}

	tr, err := s.Payments.ResolveDeposit(r.Context(), id, req.Status)
	if err != nil {
		handleError(w, err)
		return
	}

	ok(w, http.StatusOK, map[string]any{
		"transactionId": tr.ID,
		"status":        tr.Status,
	})
}
