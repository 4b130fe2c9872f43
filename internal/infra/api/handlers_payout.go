package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/infra/logging"
	"creator-monetization/internal/infra/metrics"
)

type payoutRequest struct {
	Amount int64  `json:"amount"`
	Method string `json:"method"`
}

func (s *Server) handleGetPayee(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "true"
	acc, err := s.payoutUC.SyncPayeeStatus(r.Context(), logging.UserID(r.Context()), force)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayee(acc))
}

func (s *Server) handleRegistrationLink(w http.ResponseWriter, r *http.Request) {
	acc, err := s.payoutUC.GetRegistrationLink(r.Context(), logging.UserID(r.Context()))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayee(acc))
}

// handleRequestPayout holds the coins, then submits to the provider. A failed
// submission leaves the payout pending and is reported in submit_error.
func (s *Server) handleRequestPayout(w http.ResponseWriter, r *http.Request) {
	var req payoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	creatorID := logging.UserID(r.Context())
	p, err := s.payoutUC.RequestPayout(r.Context(), creatorID, req.Amount, req.Method)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	metrics.IncPayout(string(p.Status), p.Amount)

	submitted, err := s.payoutUC.SubmitPayout(r.Context(), p.ID)
	if err != nil {
		l := logging.With(r.Context(), s.log)
		l.Warn().Err(err).Str("payout_id", p.ID).Msg("payout submission failed")
		resp := toPayout(p)
		resp.SubmitError = err.Error()
		var pe *domain.ProviderError
		if errors.As(err, &pe) {
			resp.SubmitError = "payout provider rejected the request"
		}
		writeJSON(w, http.StatusAccepted, resp)
		return
	}
	metrics.IncPayout(string(submitted.Status), submitted.Amount)
	writeJSON(w, http.StatusCreated, toPayout(submitted))
}

func (s *Server) handleCancelPayout(w http.ResponseWriter, r *http.Request) {
	p, err := s.payoutUC.CancelPayout(r.Context(), logging.UserID(r.Context()), chi.URLParam(r, "payoutID"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	metrics.IncPayout(string(p.Status), p.Amount)
	writeJSON(w, http.StatusOK, toPayout(p))
}

func (s *Server) handleListPayouts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20, 100)
	list, err := s.payoutUC.ListPayouts(r.Context(), logging.UserID(r.Context()), limit)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]payoutResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPayout(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"payouts": out})
}

// handlePayoutWebhook verifies and applies a provider event. Unknown payments are
// acknowledged so the provider stops retrying.
func (s *Server) handlePayoutWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		metrics.IncPayoutWebhook("bad_request")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "unreadable body"})
		return
	}
	err = s.payoutUC.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	switch {
	case err == nil:
		metrics.IncPayoutWebhook("ok")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, domain.ErrInvalidSignature):
		metrics.IncPayoutWebhook("invalid_signature")
		writeError(w, r, s.log, err)
	case errors.Is(err, domain.ErrValidation):
		metrics.IncPayoutWebhook("bad_request")
		writeError(w, r, s.log, err)
	default:
		metrics.IncPayoutWebhook("error")
		writeError(w, r, s.log, err)
	}
}
