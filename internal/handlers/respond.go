package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lombarde1/backtunder/internal/chests"
	"github.com/lombarde1/backtunder/internal/logging"
	"github.com/lombarde1/backtunder/internal/payments"
	"github.com/lombarde1/backtunder/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// ok writes the success envelope with the given payload keys merged in.
func ok(w http.ResponseWriter, status int, body map[string]any) {
	if body == nil {
		body = map[string]any{}
	}
	body["success"] = true
	writeJSON(w, status, body)
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

// handleError translates domain errors into the response envelope. Anything
// unrecognized is an internal failure: logged, never exposed.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chests.ErrInvalidChestNumber):
		fail(w, http.StatusBadRequest, "Número do baú inválido. Deve ser 1, 2 ou 3")
	case errors.Is(err, chests.ErrDepositRequired):
		fail(w, http.StatusForbidden, "Você precisa fazer pelo menos um depósito para abrir os baús de recompensa")
	case errors.Is(err, store.ErrChestsInitialized):
		fail(w, http.StatusBadRequest, "Baús de recompensa já foram inicializados para este usuário")
	case errors.Is(err, store.ErrChestAlreadyOpened):
		fail(w, http.StatusBadRequest, "Este baú já foi aberto")
	case errors.Is(err, store.ErrChestNotFound):
		fail(w, http.StatusNotFound, "Baú não encontrado")
	case errors.Is(err, store.ErrUserNotFound):
		fail(w, http.StatusNotFound, "Usuário não encontrado")
	case errors.Is(err, store.ErrDuplicate):
		fail(w, http.StatusBadRequest, "Nome de usuário já está em uso")
	case errors.Is(err, store.ErrPhoneTaken):
		fail(w, http.StatusBadRequest, "Telefone já está em uso")
	case errors.Is(err, store.ErrTransactionNotFound):
		fail(w, http.StatusNotFound, "Transação não encontrada")
	case errors.Is(err, store.ErrTransactionNotPending):
		fail(w, http.StatusBadRequest, "Transação já foi processada")
	case errors.Is(err, payments.ErrInvalidAmount):
		fail(w, http.StatusBadRequest, "Valor de depósito inválido")
	case errors.Is(err, payments.ErrInvalidStatus):
		fail(w, http.StatusBadRequest, "Status de pagamento inválido")
	default:
		logging.Logg.Error("Unhandled error", "error", err)
		fail(w, http.StatusInternalServerError, "Erro interno do servidor")
	}
}
