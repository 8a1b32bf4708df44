package http

import (
	"net/http"
	"strconv"

	"tally/internal/core"
	"tally/internal/ledger"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.engine.BudgetsWithSpent(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeBody(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := parseBudgetAmount(req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	budget, err := s.engine.CreateBudget(r.Context(), req.Category, amount)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, budget)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	var req budgetRequest
	if err := decodeBody(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := parseBudgetAmount(req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	budget, err := s.engine.UpdateBudget(r.Context(), id, req.Category, amount)
	if err != nil {
		if ledger.NotFound(err) {
			writeError(w, http.StatusNotFound, "budget not found")
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	if err := s.engine.DeleteBudget(r.Context(), id); err != nil {
		if ledger.NotFound(err) {
			writeError(w, http.StatusNotFound, "budget not found")
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseBudgetAmount(req budgetRequest) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(req.Amount.String())
	if err != nil {
		return core.Money{}, &core.ValidationError{Field: "amount", Err: err}
	}
	return core.Money{Cents: cents}, nil
}
