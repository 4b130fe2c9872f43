package api

import (
	"time"

	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/usecase"
)

type walletResponse struct {
	UserID      string    `json:"user_id"`
	Balance     int64     `json:"balance"`
	HeldBalance int64     `json:"held_balance"`
	Available   int64     `json:"available"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toWallet(w *model.Wallet) walletResponse {
	return walletResponse{
		UserID: w.UserID, Balance: w.Balance, HeldBalance: w.HeldBalance,
		Available: w.Available(), UpdatedAt: w.UpdatedAt,
	}
}

type transactionResponse struct {
	ID                   string    `json:"id"`
	Amount               int64     `json:"amount"`
	Type                 string    `json:"type"`
	Status               string    `json:"status"`
	Description          string    `json:"description,omitempty"`
	RelatedTransactionID *string   `json:"related_transaction_id,omitempty"`
	BalanceAfter         int64     `json:"balance_after"`
	CreatedAt            time.Time `json:"created_at"`
}

func toTransaction(t *model.Transaction) *transactionResponse {
	if t == nil {
		return nil
	}
	return &transactionResponse{
		ID: t.ID, Amount: t.Amount, Type: string(t.Type), Status: string(t.Status),
		Description: t.Description, RelatedTransactionID: t.RelatedTransactionID,
		BalanceAfter: t.BalanceAfter, CreatedAt: t.CreatedAt,
	}
}

type tipResponse struct {
	NewBalance  int64                `json:"new_balance"`
	HostCredit  *transactionResponse `json:"host_credit,omitempty"`
	GuestCredit *transactionResponse `json:"guest_credit,omitempty"`
}

func toTip(r *usecase.TipResult) tipResponse {
	return tipResponse{NewBalance: r.NewBalance, HostCredit: toTransaction(r.HostCredit), GuestCredit: toTransaction(r.GuestCredit)}
}

type giftResponse struct {
	SenderDebit     *transactionResponse `json:"sender_debit"`
	RecipientCredit *transactionResponse `json:"recipient_credit"`
}

type giftCatalogItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	CoinCost int64  `json:"coin_cost"`
}

type tierResponse struct {
	ID              string   `json:"id"`
	CreatorID       string   `json:"creator_id"`
	Tier            int      `json:"tier"`
	Name            string   `json:"name"`
	PricePerMonth   int64    `json:"price_per_month"`
	Benefits        []string `json:"benefits"`
	IsActive        bool     `json:"is_active"`
	SubscriberCount int      `json:"subscriber_count"`
}

func toTier(t *model.SubscriptionTier) tierResponse {
	benefits := t.Benefits
	if benefits == nil {
		benefits = []string{}
	}
	return tierResponse{
		ID: t.ID, CreatorID: t.CreatorID, Tier: int(t.Tier), Name: t.Name, PricePerMonth: t.PricePerMonth,
		Benefits: benefits, IsActive: t.IsActive, SubscriberCount: t.SubscriberCount,
	}
}

type subscriptionResponse struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	CreatorID          string     `json:"creator_id"`
	TierID             string     `json:"tier_id"`
	Status             string     `json:"status"`
	StartedAt          time.Time  `json:"started_at"`
	ExpiresAt          time.Time  `json:"expires_at"`
	NextBillingAt      time.Time  `json:"next_billing_at"`
	AutoRenew          bool       `json:"auto_renew"`
	FailedPaymentCount int        `json:"failed_payment_count"`
	TotalPaid          int64      `json:"total_paid"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
}

func toSubscription(s *model.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID: s.ID, UserID: s.UserID, CreatorID: s.CreatorID, TierID: s.TierID, Status: string(s.Status),
		StartedAt: s.StartedAt, ExpiresAt: s.ExpiresAt, NextBillingAt: s.NextBillingAt,
		AutoRenew: s.AutoRenew, FailedPaymentCount: s.FailedPaymentCount, TotalPaid: s.TotalPaid,
		CancelledAt: s.CancelledAt,
	}
}

type payeeResponse struct {
	Status            string     `json:"status"`
	PreferredCurrency string     `json:"preferred_currency,omitempty"`
	PayoutMethods     []string   `json:"payout_methods"`
	RegistrationLink  *string    `json:"registration_link,omitempty"`
	LinkExpiresAt     *time.Time `json:"link_expires_at,omitempty"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
}

func toPayee(a *model.PayeeAccount) payeeResponse {
	methods := a.PayoutMethods
	if methods == nil {
		methods = []string{}
	}
	return payeeResponse{
		Status: string(a.PayeeStatus), PreferredCurrency: a.PreferredCurrency, PayoutMethods: methods,
		RegistrationLink: a.RegistrationLink, LinkExpiresAt: a.LinkExpiresAt, LastSyncedAt: a.LastSyncedAt,
	}
}

type payoutResponse struct {
	ID                string     `json:"id"`
	Amount            int64      `json:"amount"`
	Status            string     `json:"status"`
	PayoutMethod      string     `json:"payout_method"`
	Currency          string     `json:"currency,omitempty"`
	FiatAmountMinor   int64      `json:"fiat_amount_minor,omitempty"`
	ExternalReference *string    `json:"external_reference,omitempty"`
	FailureReason     *string    `json:"failure_reason,omitempty"`
	SubmitError       string     `json:"submit_error,omitempty"`
	SubmittedAt       *time.Time `json:"submitted_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toPayout(p *model.PayoutRequest) payoutResponse {
	return payoutResponse{
		ID: p.ID, Amount: p.Amount, Status: string(p.Status), PayoutMethod: p.PayoutMethod,
		Currency: p.Meta.Currency, FiatAmountMinor: p.Meta.FiatAmountMinor,
		ExternalReference: p.ExternalReference, FailureReason: p.FailureReason,
		SubmittedAt: p.SubmittedAt, CompletedAt: p.CompletedAt, CreatedAt: p.CreatedAt,
	}
}
