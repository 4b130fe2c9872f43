package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/domain/ports/adapter"
	"creator-monetization/internal/domain/ports/repository"
)

// Compile-time check
var _ PayoutUseCase = (*payoutUC)(nil)

type PayoutConfig struct {
	// Currency is the settlement currency sent to the provider.
	Currency string
	// MinorUnitPerCoin converts coins to settlement minor units (1 => 1 coin = 0.01 USD).
	MinorUnitPerCoin int64
	MinPayoutCoins   int64
	DefaultMethod    string
	SyncStaleAfter   time.Duration
	RedirectURL      string
	ConflictRetries  int
}

func (c PayoutConfig) withDefaults() PayoutConfig {
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.MinorUnitPerCoin <= 0 {
		c.MinorUnitPerCoin = 1
	}
	if c.MinPayoutCoins <= 0 {
		c.MinPayoutCoins = 1
	}
	if c.DefaultMethod == "" {
		c.DefaultMethod = "bank_transfer"
	}
	if c.SyncStaleAfter <= 0 {
		c.SyncStaleAfter = 5 * time.Minute
	}
	return c
}

// ToMinor converts a coin amount into settlement currency minor units.
func (c PayoutConfig) ToMinor(coins int64) int64 { return coins * c.MinorUnitPerCoin }

type ReconcileSummary struct {
	Checked   int
	Finalized int
	Errors    int
}

type PayoutUseCase interface {
	GetRegistrationLink(ctx context.Context, creatorID string) (*model.PayeeAccount, error)
	// SyncPayeeStatus refreshes the cached payee status when stale or forced.
	// Provider failures fall back to the cached account.
	SyncPayeeStatus(ctx context.Context, creatorID string, force bool) (*model.PayeeAccount, error)

	RequestPayout(ctx context.Context, creatorID string, amount int64, method string) (*model.PayoutRequest, error)
	SubmitPayout(ctx context.Context, payoutID string) (*model.PayoutRequest, error)
	CancelPayout(ctx context.Context, creatorID, payoutID string) (*model.PayoutRequest, error)
	ReconcilePayout(ctx context.Context, payoutID string) (*model.PayoutRequest, error)
	ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (*ReconcileSummary, error)
	ListPayouts(ctx context.Context, creatorID string, limit int) ([]*model.PayoutRequest, error)

	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

type payoutUC struct {
	tm       repository.TransactionManager
	ledger   LedgerUseCase
	payouts  repository.PayoutRepository
	payees   repository.PayeeRepository
	provider adapter.PayoutProvider
	notifier adapter.Notifier
	cfg      PayoutConfig
	log      *zerolog.Logger
}

func NewPayoutUseCase(
	tm repository.TransactionManager,
	ledger LedgerUseCase,
	payouts repository.PayoutRepository,
	payees repository.PayeeRepository,
	provider adapter.PayoutProvider,
	notifier adapter.Notifier,
	cfg PayoutConfig,
	logger *zerolog.Logger,
) *payoutUC {
	l := logger.With().Str("component", "payout").Str("provider", provider.Name()).Logger()
	return &payoutUC{
		tm:       tm,
		ledger:   ledger,
		payouts:  payouts,
		payees:   payees,
		provider: provider,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
		log:      &l,
	}
}

// -----------------------------
// Payee registration
// -----------------------------

func (u *payoutUC) GetRegistrationLink(ctx context.Context, creatorID string) (*model.PayeeAccount, error) {
	acc, err := u.payees.FindByCreatorID(ctx, nil, creatorID)
	if errors.Is(err, domain.ErrNotFound) {
		now := time.Now()
		acc = &model.PayeeAccount{
			CreatorID:         creatorID,
			PayeeID:           creatorID,
			PayeeStatus:       model.PayeeStatusNotRegistered,
			PreferredCurrency: u.cfg.Currency,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
	} else if err != nil {
		return nil, err
	}
	if acc.IsActive() {
		return nil, domain.NewValidationError("payee", "payout account is already active")
	}

	link, err := u.provider.GenerateRegistrationLink(ctx, acc.PayeeID, u.cfg.RedirectURL)
	if err != nil {
		u.log.Warn().Err(err).Str("creator_id", creatorID).Msg("registration link request failed")
		return nil, err
	}

	now := time.Now()
	acc.PayeeStatus = model.PayeeStatusPending
	acc.RegistrationLink = &link.Link
	acc.LinkExpiresAt = &link.ExpiresAt
	acc.UpdatedAt = now
	if err := u.payees.Save(ctx, nil, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (u *payoutUC) SyncPayeeStatus(ctx context.Context, creatorID string, force bool) (*model.PayeeAccount, error) {
	acc, err := u.payees.FindByCreatorID(ctx, nil, creatorID)
	if errors.Is(err, domain.ErrNotFound) {
		return &model.PayeeAccount{CreatorID: creatorID, PayeeStatus: model.PayeeStatusNotRegistered}, nil
	}
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if !force && !acc.SyncDue(now, u.cfg.SyncStaleAfter) {
		return acc, nil
	}

	res, err := u.provider.GetPayeeStatus(ctx, acc.PayeeID)
	if err != nil {
		u.log.Warn().Err(err).Str("creator_id", creatorID).Msg("payee status sync failed, serving cached status")
		return acc, nil
	}
	st, err := model.ParseProviderPayeeStatus(res.Status)
	if err != nil {
		u.log.Error().Err(err).Str("creator_id", creatorID).Msg("payee status sync returned unknown status")
		return acc, nil
	}

	acc.PayeeStatus = st
	acc.PayoutMethods = res.PayoutMethods
	acc.LastSyncedAt = &now
	acc.UpdatedAt = now
	if err := u.payees.Save(ctx, nil, acc); err != nil {
		u.log.Error().Err(err).Str("creator_id", creatorID).Msg("persist synced payee status")
	}
	return acc, nil
}

// -----------------------------
// Payout lifecycle
// -----------------------------

func (u *payoutUC) RequestPayout(ctx context.Context, creatorID string, amount int64, method string) (*model.PayoutRequest, error) {
	if amount < u.cfg.MinPayoutCoins {
		return nil, domain.NewValidationError("amount", fmt.Sprintf("must be at least %d coins", u.cfg.MinPayoutCoins))
	}
	acc, err := u.payees.FindByCreatorID(ctx, nil, creatorID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if !acc.IsActive() {
		return nil, domain.NewValidationError("payee", "payout account is not active")
	}
	if method == "" {
		method = u.cfg.DefaultMethod
		if len(acc.PayoutMethods) > 0 {
			method = acc.PayoutMethods[0]
		}
	}

	var out *model.PayoutRequest
	err = runInTx(ctx, u.tm, u.cfg.ConflictRetries+1, u.log, "request_payout", func(ctx context.Context, tx repository.Tx) error {
		now := time.Now()
		p := &model.PayoutRequest{
			ID:           uuid.NewString(),
			CreatorID:    creatorID,
			Amount:       amount,
			Status:       model.PayoutStatusPending,
			PayoutMethod: method,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		h, err := u.ledger.PlaceHold(ctx, tx, creatorID, amount, model.HoldPurposePayout, p.ID)
		if err != nil {
			return err
		}
		p.Meta = model.PayoutMetadata{
			HoldID:           h.ID,
			Currency:         u.cfg.Currency,
			FiatAmountMinor:  u.cfg.ToMinor(amount),
			MinorUnitPerCoin: u.cfg.MinorUnitPerCoin,
		}
		if err := u.payouts.Save(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("creator_id", creatorID).Str("payout_id", out.ID).Int64("amount", amount).Msg("payout requested")
	return out, nil
}

func (u *payoutUC) SubmitPayout(ctx context.Context, payoutID string) (*model.PayoutRequest, error) {
	p, err := u.payouts.FindByID(ctx, nil, payoutID)
	if err != nil {
		return nil, err
	}
	if p.Status != model.PayoutStatusPending && p.Status != model.PayoutStatusProcessing {
		return nil, domain.NewValidationError("status", "payout is already "+string(p.Status))
	}
	if p.ProviderPaymentID != nil {
		return p, nil
	}
	acc, err := u.payees.FindByCreatorID(ctx, nil, p.CreatorID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if !acc.IsActive() {
		return nil, domain.NewValidationError("payee", "payout account is not active")
	}

	// the reference is stored before the provider call so a retry after a
	// timeout sends the same one and the provider can dedupe
	if p.ExternalReference == nil {
		p, err = u.assignReference(ctx, payoutID)
		if err != nil {
			return nil, err
		}
	}

	res, err := u.provider.SubmitPayout(ctx, adapter.SubmitPayoutRequest{
		PayeeID:           acc.PayeeID,
		AmountMinor:       u.cfg.ToMinor(p.Amount),
		Currency:          u.cfg.Currency,
		ClientReferenceID: *p.ExternalReference,
		Method:            p.PayoutMethod,
	})
	if err != nil {
		if !domain.IsTransientProviderError(err) {
			// the provider will never pay this one out, so the coins go back to the creator
			u.log.Warn().Err(err).Str("payout_id", p.ID).Msg("payout submission rejected, releasing hold")
			return u.finalize(ctx, payoutID, "", model.PaymentOutcomeFailed, "rejected", "rejected by payout provider")
		}
		u.log.Warn().Err(err).Str("payout_id", p.ID).Msg("payout submission outcome unknown, will reconcile")
		return u.markSubmitted(ctx, payoutID, "", "")
	}
	return u.markSubmitted(ctx, payoutID, res.PaymentID, res.Status)
}

func (u *payoutUC) assignReference(ctx context.Context, payoutID string) (*model.PayoutRequest, error) {
	var out *model.PayoutRequest
	err := runInTx(ctx, u.tm, u.cfg.ConflictRetries+1, u.log, "assign_payout_reference", func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payouts.FindByID(ctx, tx, payoutID)
		if err != nil {
			return err
		}
		if p.ExternalReference == nil {
			ref := "po_" + ulid.Make().String()
			p.ExternalReference = &ref
			p.UpdatedAt = time.Now()
			if err := u.payouts.Save(ctx, tx, p); err != nil {
				return err
			}
		}
		out = p
		return nil
	})
	return out, err
}

// markSubmitted moves the payout to processing. An empty paymentID means the
// provider outcome is unknown. A provider that answers with a terminal status
// right away is finalized in the same transaction.
func (u *payoutUC) markSubmitted(ctx context.Context, payoutID, paymentID, rawStatus string) (*model.PayoutRequest, error) {
	var (
		out      *model.PayoutRequest
		finished bool
	)
	err := runInTx(ctx, u.tm, u.cfg.ConflictRetries+1, u.log, "mark_payout_submitted", func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payouts.FindByID(ctx, tx, payoutID)
		if err != nil {
			return err
		}
		out = p
		if p.Status.IsTerminal() {
			return nil
		}
		now := time.Now()
		p.Status = model.PayoutStatusProcessing
		p.SubmittedAt = &now
		p.UpdatedAt = now
		if paymentID != "" {
			p.ProviderPaymentID = &paymentID
		}
		if rawStatus != "" {
			p.ProviderStatus = &rawStatus
			outcome, err := model.ParseProviderPaymentStatus(rawStatus)
			if err != nil {
				u.log.Error().Err(err).Str("payout_id", p.ID).Msg("submission returned unknown status")
			} else if outcome != model.PaymentOutcomeInFlight {
				finished, err = u.applyOutcome(ctx, tx, p, outcome, rawStatus, "")
				return err
			}
		}
		return u.payouts.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	if finished {
		u.notifyOutcome(out)
	}
	u.log.Info().Str("payout_id", out.ID).Str("status", string(out.Status)).Msg("payout submitted")
	return out, nil
}

func (u *payoutUC) CancelPayout(ctx context.Context, creatorID, payoutID string) (*model.PayoutRequest, error) {
	var out *model.PayoutRequest
	err := runInTx(ctx, u.tm, u.cfg.ConflictRetries+1, u.log, "cancel_payout", func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payouts.FindByID(ctx, tx, payoutID)
		if err != nil {
			return err
		}
		if p.CreatorID != creatorID {
			return domain.ErrForbidden
		}
		if p.Status != model.PayoutStatusPending || p.ExternalReference != nil {
			return domain.NewValidationError("status", "only unsubmitted payouts can be cancelled")
		}
		if _, err := u.ledger.ReleaseHold(ctx, tx, p.Meta.HoldID); err != nil {
			return err
		}
		now := time.Now()
		reason := "cancelled by creator"
		p.Status = model.PayoutStatusCancelled
		p.FailureReason = &reason
		p.UpdatedAt = now
		if err := u.payouts.Save(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *payoutUC) ReconcilePayout(ctx context.Context, payoutID string) (*model.PayoutRequest, error) {
	p, err := u.payouts.FindByID(ctx, nil, payoutID)
	if err != nil {
		return nil, err
	}
	switch {
	case p.Status == model.PayoutStatusPending && p.ExternalReference != nil:
		// reference stored but the submission never recorded an outcome
		return u.SubmitPayout(ctx, payoutID)
	case p.Status != model.PayoutStatusProcessing:
		return p, nil
	}
	if p.ProviderPaymentID == nil {
		return u.SubmitPayout(ctx, payoutID)
	}

	res, err := u.provider.GetPaymentStatus(ctx, *p.ProviderPaymentID)
	if err != nil {
		u.log.Warn().Err(err).Str("payout_id", p.ID).Msg("payment status poll failed")
		return p, err
	}
	outcome, err := model.ParseProviderPaymentStatus(res.Status)
	if err != nil {
		u.log.Error().Err(err).Str("payout_id", p.ID).Msg("payment status poll returned unknown status")
		return p, err
	}
	return u.finalize(ctx, payoutID, "", outcome, res.Status, res.FailureReason)
}

func (u *payoutUC) ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (*ReconcileSummary, error) {
	stale, err := u.payouts.ListUnsettledOlderThan(ctx, nil, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, err
	}
	sum := &ReconcileSummary{}
	for _, p := range stale {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		sum.Checked++
		out, err := u.ReconcilePayout(ctx, p.ID)
		if err != nil {
			sum.Errors++
			continue
		}
		if out.Status.IsTerminal() {
			sum.Finalized++
		}
	}
	return sum, nil
}

func (u *payoutUC) ListPayouts(ctx context.Context, creatorID string, limit int) ([]*model.PayoutRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return u.payouts.ListByCreator(ctx, nil, creatorID, limit)
}

// -----------------------------
// Webhooks
// -----------------------------

func (u *payoutUC) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !u.provider.VerifyWebhookSignature(body, signature) {
		u.log.Error().Int("body_len", len(body)).Msg("webhook signature rejected")
		return domain.ErrInvalidSignature
	}
	var ev adapter.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return domain.NewValidationError("body", "malformed webhook payload")
	}

	switch ev.EventType {
	case adapter.WebhookEventPaymentStatus:
		return u.handlePaymentEvent(ctx, ev)
	case adapter.WebhookEventPayeeStatus:
		return u.handlePayeeEvent(ctx, ev)
	default:
		u.log.Warn().Str("event_type", ev.EventType).Msg("ignoring unsupported webhook event")
		return nil
	}
}

func (u *payoutUC) handlePaymentEvent(ctx context.Context, ev adapter.WebhookEvent) error {
	outcome, err := model.ParseProviderPaymentStatus(ev.Status)
	if err != nil {
		u.log.Error().Err(err).Str("payment_id", ev.PaymentID).Msg("webhook carried unknown payment status")
		return domain.NewValidationError("status", err.Error())
	}

	p, err := u.lookupPayout(ctx, ev)
	if errors.Is(err, domain.ErrNotFound) {
		u.log.Info().Str("payment_id", ev.PaymentID).Str("client_reference_id", ev.ClientReferenceID).
			Msg("webhook for unknown payment ignored")
		return nil
	}
	if err != nil {
		return err
	}

	_, err = u.finalize(ctx, p.ID, ev.PaymentID, outcome, ev.Status, ev.FailureReason)
	return err
}

func (u *payoutUC) lookupPayout(ctx context.Context, ev adapter.WebhookEvent) (*model.PayoutRequest, error) {
	if ev.PaymentID != "" {
		p, err := u.payouts.FindByProviderPaymentID(ctx, nil, ev.PaymentID)
		if !errors.Is(err, domain.ErrNotFound) || ev.ClientReferenceID == "" {
			return p, err
		}
	}
	if ev.ClientReferenceID != "" {
		return u.payouts.FindByExternalReference(ctx, nil, ev.ClientReferenceID)
	}
	return nil, domain.ErrNotFound
}

func (u *payoutUC) handlePayeeEvent(ctx context.Context, ev adapter.WebhookEvent) error {
	st, err := model.ParseProviderPayeeStatus(ev.Status)
	if err != nil {
		u.log.Error().Err(err).Str("payee_id", ev.PayeeID).Msg("webhook carried unknown payee status")
		return domain.NewValidationError("status", err.Error())
	}
	acc, err := u.payees.FindByPayeeID(ctx, nil, ev.PayeeID)
	if errors.Is(err, domain.ErrNotFound) {
		u.log.Info().Str("payee_id", ev.PayeeID).Msg("webhook for unknown payee ignored")
		return nil
	}
	if err != nil {
		return err
	}
	now := time.Now()
	acc.PayeeStatus = st
	acc.LastSyncedAt = &now
	acc.UpdatedAt = now
	if err := u.payees.Save(ctx, nil, acc); err != nil {
		return err
	}
	u.log.Info().Str("creator_id", acc.CreatorID).Str("payee_status", string(st)).Msg("payee status updated")
	return nil
}

// finalize applies a provider outcome to a payout under its row lock.
// Repeated deliveries of a terminal status are no-ops.
func (u *payoutUC) finalize(ctx context.Context, payoutID, paymentID string, outcome model.PaymentOutcome, rawStatus, reason string) (*model.PayoutRequest, error) {
	var (
		out      *model.PayoutRequest
		finished bool
	)
	err := runInTx(ctx, u.tm, u.cfg.ConflictRetries+1, u.log, "finalize_payout", func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payouts.FindByID(ctx, tx, payoutID)
		if err != nil {
			return err
		}
		out = p
		if p.Status.IsTerminal() {
			finished = false
			return nil
		}
		if paymentID != "" && p.ProviderPaymentID == nil {
			p.ProviderPaymentID = &paymentID
		}
		finished, err = u.applyOutcome(ctx, tx, p, outcome, rawStatus, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	if finished {
		u.notifyOutcome(out)
	}
	return out, nil
}

// applyOutcome settles or releases the payout's hold and saves the payout.
// It reports whether the payout reached a terminal state.
func (u *payoutUC) applyOutcome(ctx context.Context, tx repository.Tx, p *model.PayoutRequest, outcome model.PaymentOutcome, rawStatus, reason string) (bool, error) {
	now := time.Now()
	p.ProviderStatus = &rawStatus
	p.UpdatedAt = now

	switch outcome {
	case model.PaymentOutcomeInFlight:
		p.Status = model.PayoutStatusProcessing
		return false, u.payouts.Save(ctx, tx, p)

	case model.PaymentOutcomeCompleted:
		meta := model.PayoutMeta{PayoutRequestID: p.ID, HoldID: p.Meta.HoldID}
		if p.ProviderPaymentID != nil {
			meta.ProviderPaymentID = *p.ProviderPaymentID
		}
		t, err := u.ledger.SettleHold(ctx, tx, p.Meta.HoldID, SettleInput{
			Type:           model.TransactionTypeCreatorPayout,
			IdempotencyKey: "payout:" + p.ID,
			Description:    "creator payout",
			Metadata:       meta,
		})
		if err != nil {
			return false, err
		}
		p.Status = model.PayoutStatusCompleted
		p.TransactionID = &t.ID
		p.CompletedAt = &now

	case model.PaymentOutcomeFailed, model.PaymentOutcomeCancelled:
		if _, err := u.ledger.ReleaseHold(ctx, tx, p.Meta.HoldID); err != nil {
			return false, err
		}
		p.Status = model.PayoutStatusFor(outcome)
		if reason == "" {
			reason = rawStatus
		}
		p.FailureReason = &reason

	default:
		return false, fmt.Errorf("unhandled payment outcome %q", outcome)
	}

	if err := u.payouts.Save(ctx, tx, p); err != nil {
		return false, err
	}
	u.log.Info().Str("payout_id", p.ID).Str("status", string(p.Status)).Str("provider_status", rawStatus).
		Msg("payout finalized")
	return true, nil
}

func (u *payoutUC) notifyOutcome(p *model.PayoutRequest) {
	n := adapter.Notification{
		RecipientID: p.CreatorID,
		Data:        map[string]string{"payout_id": p.ID, "status": string(p.Status)},
	}
	if p.Status == model.PayoutStatusCompleted {
		n.Kind = adapter.NotificationPayoutCompleted
		n.Title = "Payout completed"
		n.Body = fmt.Sprintf("Your payout of %d coins was sent.", p.Amount)
	} else {
		n.Kind = adapter.NotificationPayoutFailed
		n.Title = "Payout not completed"
		n.Body = fmt.Sprintf("Your payout of %d coins was returned to your balance.", p.Amount)
	}
	notifyAsync(u.notifier, u.log, n)
}
