package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/infra/logging"
	"creator-monetization/internal/infra/metrics"
	"creator-monetization/internal/usecase"
)

type tipRequest struct {
	Amount             int64  `json:"amount"`
	RecipientCreatorID string `json:"recipient_creator_id"`
	IdempotencyKey     string `json:"idempotency_key"`
}

type giftRequest struct {
	GiftID             string `json:"gift_id"`
	Quantity           int    `json:"quantity"`
	RecipientCreatorID string `json:"recipient_creator_id"`
	IdempotencyKey     string `json:"idempotency_key"`
}

type commissionRequest struct {
	// Percent nil clears the commission.
	Percent *int `json:"percent"`
}

func revenueResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrNotFound):
		return "rejected"
	default:
		return "error"
	}
}

func (s *Server) handleSendTip(w http.ResponseWriter, r *http.Request) {
	var req tipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}
	res, err := s.revenueUC.SendTip(r.Context(), usecase.TipInput{
		SessionID:          chi.URLParam(r, "sessionID"),
		SenderID:           logging.UserID(r.Context()),
		Amount:             req.Amount,
		RecipientCreatorID: req.RecipientCreatorID,
		IdempotencyKey:     req.IdempotencyKey,
	})
	if err != nil {
		metrics.IncRevenueEvent("tip", revenueResult(err), 0)
		writeError(w, r, s.log, err)
		return
	}
	metrics.IncRevenueEvent("tip", "ok", req.Amount)
	writeJSON(w, http.StatusCreated, toTip(res))
}

func (s *Server) handleSendGift(w http.ResponseWriter, r *http.Request) {
	var req giftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}
	res, err := s.revenueUC.SendGift(r.Context(), usecase.GiftInput{
		SessionID:          chi.URLParam(r, "sessionID"),
		SenderID:           logging.UserID(r.Context()),
		GiftID:             req.GiftID,
		Quantity:           req.Quantity,
		RecipientCreatorID: req.RecipientCreatorID,
		IdempotencyKey:     req.IdempotencyKey,
	})
	if err != nil {
		metrics.IncRevenueEvent("gift", revenueResult(err), 0)
		writeError(w, r, s.log, err)
		return
	}
	var spent int64
	if res.SenderDebit != nil {
		spent = -res.SenderDebit.Amount
	}
	metrics.IncRevenueEvent("gift", "ok", spent)
	writeJSON(w, http.StatusCreated, giftResponse{
		SenderDebit: toTransaction(res.SenderDebit), RecipientCredit: toTransaction(res.RecipientCredit),
	})
}

func (s *Server) handleSetCommission(w http.ResponseWriter, r *http.Request) {
	var req commissionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	err := s.revenueUC.SetSessionCommission(r.Context(), logging.UserID(r.Context()), chi.URLParam(r, "sessionID"), req.Percent)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListGifts(w http.ResponseWriter, r *http.Request) {
	gifts, err := s.revenueUC.ListGifts(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]giftCatalogItem, 0, len(gifts))
	for _, g := range gifts {
		out = append(out, giftCatalogItem{ID: g.ID, Name: g.Name, CoinCost: g.CoinCost})
	}
	writeJSON(w, http.StatusOK, map[string]any{"gifts": out})
}
