package api

import (
	"net/http"

	"creator-monetization/internal/infra/logging"
)

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.ledgerUC.GetWallet(r.Context(), logging.UserID(r.Context()))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toWallet(wallet))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 200)
	offset := queryInt(r, "offset", 0, 0)
	txs, err := s.ledgerUC.ListTransactions(r.Context(), logging.UserID(r.Context()), limit, offset)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]*transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransaction(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out, "limit": limit, "offset": offset})
}
