package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	red "creator-monetization/internal/infra/redis"
	"creator-monetization/internal/usecase"
)

// SignatureHeader carries the provider's HMAC over the raw webhook body.
const SignatureHeader = "X-Payout-Signature"

type Config struct {
	RequestTimeout time.Duration
	RateLimit      int
	RateWindow     time.Duration
}

type Server struct {
	ledgerUC  usecase.LedgerUseCase
	revenueUC usecase.RevenueUseCase
	subUC     usecase.SubscriptionUseCase
	payoutUC  usecase.PayoutUseCase
	auth      *Authenticator
	limiter   red.Limiter
	cfg       Config
	log       *zerolog.Logger
}

func NewServer(
	ledgerUC usecase.LedgerUseCase,
	revenueUC usecase.RevenueUseCase,
	subUC usecase.SubscriptionUseCase,
	payoutUC usecase.PayoutUseCase,
	auth *Authenticator,
	limiter red.Limiter,
	cfg Config,
	logger *zerolog.Logger,
) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 30
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	l := logger.With().Str("component", "http").Logger()
	return &Server{
		ledgerUC:  ledgerUC,
		revenueUC: revenueUC,
		subUC:     subUC,
		payoutUC:  payoutUC,
		auth:      auth,
		limiter:   limiter,
		cfg:       cfg,
		log:       &l,
	}
}

// Routes builds the full router: health, metrics, provider webhook and the
// authenticated /api/v1 surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log), Timeout(s.cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/webhooks/payout", s.handlePayoutWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware())
		RegisterAPIV1(r, s)
	})
	return r
}

func RegisterAPIV1(r chi.Router, s *Server) {
	limited := func(action string) func(http.Handler) http.Handler {
		return RateLimit(s.limiter, action, s.cfg.RateLimit, s.cfg.RateWindow, s.log)
	}

	r.Get("/wallet", s.handleGetWallet)
	r.Get("/wallet/transactions", s.handleListTransactions)

	r.Get("/gifts", s.handleListGifts)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.With(limited("tip")).Post("/tips", s.handleSendTip)
		r.With(limited("tip")).Post("/gifts", s.handleSendGift)
		r.Put("/commission", s.handleSetCommission)
	})

	r.Get("/creators/{creatorID}/tiers", s.handleGetTiers)
	r.Put("/tiers", s.handleUpsertTier)

	r.Get("/subscriptions", s.handleListSubscriptions)
	r.Post("/subscriptions", s.handleSubscribe)
	r.Post("/subscriptions/{subscriptionID}/cancel", s.handleCancelSubscription)
	r.Put("/subscriptions/{subscriptionID}/auto-renew", s.handleToggleAutoRenew)

	r.Get("/payee", s.handleGetPayee)
	r.Post("/payee/registration-link", s.handleRegistrationLink)
	r.Get("/payouts", s.handleListPayouts)
	r.With(limited("payout")).Post("/payouts", s.handleRequestPayout)
	r.Post("/payouts/{payoutID}/cancel", s.handleCancelPayout)
}
