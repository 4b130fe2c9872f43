package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/infra/logging"
	"creator-monetization/internal/infra/metrics"
	"creator-monetization/internal/usecase"
)

type tierRequest struct {
	Tier          int      `json:"tier"`
	Name          string   `json:"name"`
	PricePerMonth int64    `json:"price_per_month"`
	Benefits      []string `json:"benefits"`
	IsActive      *bool    `json:"is_active"`
}

type subscribeRequest struct {
	CreatorID string `json:"creator_id"`
	TierID    string `json:"tier_id"`
}

type autoRenewRequest struct {
	AutoRenew bool `json:"auto_renew"`
}

func (s *Server) handleGetTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := s.subUC.GetCreatorTiers(r.Context(), chi.URLParam(r, "creatorID"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]tierResponse, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, toTier(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tiers": out})
}

// handleUpsertTier edits the caller's own catalog.
func (s *Server) handleUpsertTier(w http.ResponseWriter, r *http.Request) {
	var req tierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	tier, err := s.subUC.UpsertTier(r.Context(), logging.UserID(r.Context()), usecase.TierInput{
		Tier:          model.TierLevel(req.Tier),
		Name:          req.Name,
		PricePerMonth: req.PricePerMonth,
		Benefits:      req.Benefits,
		IsActive:      req.IsActive,
	})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTier(tier))
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	sub, err := s.subUC.Subscribe(r.Context(), logging.UserID(r.Context()), req.CreatorID, req.TierID)
	if err != nil {
		metrics.IncRevenueEvent("subscription", revenueResult(err), 0)
		writeError(w, r, s.log, err)
		return
	}
	metrics.IncRevenueEvent("subscription", "ok", sub.TotalPaid)
	writeJSON(w, http.StatusCreated, toSubscription(sub))
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subUC.ListUserSubscriptions(r.Context(), logging.UserID(r.Context()))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubscription(sub))
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": out})
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subUC.CancelSubscription(r.Context(), logging.UserID(r.Context()), chi.URLParam(r, "subscriptionID"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscription(sub))
}

func (s *Server) handleToggleAutoRenew(w http.ResponseWriter, r *http.Request) {
	var req autoRenewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	sub, err := s.subUC.ToggleAutoRenew(r.Context(), logging.UserID(r.Context()), chi.URLParam(r, "subscriptionID"), req.AutoRenew)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscription(sub))
}
