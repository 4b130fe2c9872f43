package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/domain/ports/repository"
)

// Compile-time check
var _ RevenueUseCase = (*revenueUC)(nil)

type GiftInput struct {
	SessionID string
	SenderID  string
	GiftID    string
	Quantity  int
	// RecipientCreatorID names a guest creator; empty means the host.
	RecipientCreatorID string
	IdempotencyKey     string
}

type GiftResult struct {
	SenderDebit     *model.Transaction
	RecipientCredit *model.Transaction
}

type TipInput struct {
	SessionID          string
	SenderID           string
	Amount             int64
	RecipientCreatorID string
	IdempotencyKey     string
}

// TipResult reports the sender's balance after the tip and the credit legs
// that were actually written. HostCredit is nil when the host share was zero.
type TipResult struct {
	NewBalance  int64
	HostCredit  *model.Transaction
	GuestCredit *model.Transaction
}

type RevenueUseCase interface {
	SendGift(ctx context.Context, in GiftInput) (*GiftResult, error)
	SendTip(ctx context.Context, in TipInput) (*TipResult, error)
	// SetSessionCommission sets the percentage the host keeps from tips sent
	// to a guest. nil clears it.
	SetSessionCommission(ctx context.Context, hostID, sessionID string, percent *int) error
	ListGifts(ctx context.Context) ([]*model.Gift, error)
}

type revenueUC struct {
	tm       repository.TransactionManager
	ledger   LedgerUseCase
	sessions repository.LiveSessionRepository
	gifts    repository.GiftRepository
	attempts int
	log      *zerolog.Logger
}

func NewRevenueUseCase(
	tm repository.TransactionManager,
	ledger LedgerUseCase,
	sessions repository.LiveSessionRepository,
	gifts repository.GiftRepository,
	conflictRetries int,
	logger *zerolog.Logger,
) *revenueUC {
	l := logger.With().Str("component", "revenue_split").Logger()
	return &revenueUC{tm: tm, ledger: ledger, sessions: sessions, gifts: gifts, attempts: conflictRetries + 1, log: &l}
}

// SplitTip returns the host and guest shares of a tip under a commission percentage.
func SplitTip(amount int64, commissionPercent int) (host, guest int64) {
	host = amount * int64(commissionPercent) / 100
	return host, amount - host
}

func (u *revenueUC) SendGift(ctx context.Context, in GiftInput) (*GiftResult, error) {
	if in.Quantity < 1 {
		return nil, domain.NewValidationError("quantity", "must be at least 1")
	}
	s, err := u.liveSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	g, err := u.gifts.FindByID(ctx, nil, in.GiftID)
	if err != nil {
		return nil, err
	}
	if !g.IsActive {
		return nil, domain.NewValidationError("gift_id", "gift is not available")
	}

	recipient := s.HostID
	if in.RecipientCreatorID != "" {
		recipient = in.RecipientCreatorID
	}
	if recipient == in.SenderID {
		return nil, domain.NewValidationError("recipient", "cannot send a gift to yourself")
	}

	cost := g.CoinCost * int64(in.Quantity)
	meta := model.GiftMeta{
		SessionID:   s.ID,
		GiftID:      g.ID,
		Quantity:    in.Quantity,
		UnitCost:    g.CoinCost,
		SenderID:    in.SenderID,
		RecipientID: recipient,
	}

	var res *TransferResult
	err = runInTx(ctx, u.tm, u.attempts, u.log, "send_gift", func(ctx context.Context, tx repository.Tx) error {
		r, err := u.ledger.Transfer(ctx, tx, TransferInput{
			FromUserID:     in.SenderID,
			ToUserID:       recipient,
			Amount:         cost,
			DebitType:      model.TransactionTypeGift,
			CreditType:     model.TransactionTypeGiftEarnings,
			IdempotencyKey: in.IdempotencyKey,
			Description:    fmt.Sprintf("%d x %s", in.Quantity, g.Name),
			DebitMetadata:  meta,
			CreditMetadata: meta,
		})
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Info().Str("session_id", s.ID).Str("sender_id", in.SenderID).Str("recipient_id", recipient).
		Int64("amount", cost).Msg("gift sent")
	return &GiftResult{SenderDebit: res.Debit, RecipientCredit: res.Credit}, nil
}

func (u *revenueUC) SendTip(ctx context.Context, in TipInput) (*TipResult, error) {
	if in.Amount < 1 {
		return nil, domain.NewValidationError("amount", "must be at least 1")
	}
	s, err := u.liveSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	guest := ""
	if in.RecipientCreatorID != "" && in.RecipientCreatorID != s.HostID {
		guest = in.RecipientCreatorID
	}
	if in.SenderID == s.HostID || (guest != "" && in.SenderID == guest) {
		return nil, domain.NewValidationError("recipient", "cannot tip yourself")
	}

	// commission is read per tip; later changes never touch earlier tips
	hostAmount, guestAmount := in.Amount, int64(0)
	share := model.TipShareFull
	if guest != "" {
		hostAmount, guestAmount = 0, in.Amount
		if s.CommissionPercent != nil {
			hostAmount, guestAmount = SplitTip(in.Amount, *s.CommissionPercent)
			share = model.TipShareGuest
		}
	}

	var out *TipResult
	replayed := false
	err = runInTx(ctx, u.tm, u.attempts, u.log, "send_tip", func(ctx context.Context, tx repository.Tx) error {
		out, replayed = &TipResult{}, false
		sender, err := u.ledger.LockWallet(ctx, tx, in.SenderID)
		if err != nil {
			return err
		}
		if in.IdempotencyKey != "" {
			// a replay returns the legs written the first time, whatever the commission is now
			prev, ok, err := u.storedTip(ctx, tx, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if ok {
				replayed = true
				out = prev
				out.NewBalance = sender.Balance
				return nil
			}
		}
		if sender.Available() < in.Amount {
			return &domain.InsufficientBalanceError{
				Required:  in.Amount,
				Available: sender.Available(),
				Balance:   sender.Balance,
				Held:      sender.HeldBalance,
			}
		}

		if guestAmount > 0 {
			r, err := u.ledger.Transfer(ctx, tx, u.tipLeg(in, s, guest, guestAmount, share, ":guest"))
			if err != nil {
				return err
			}
			out.GuestCredit = r.Credit
		}
		if hostAmount > 0 {
			hostShare := model.TipShareFull
			if guest != "" {
				hostShare = model.TipShareHost
			}
			r, err := u.ledger.Transfer(ctx, tx, u.tipLeg(in, s, s.HostID, hostAmount, hostShare, ":host"))
			if err != nil {
				return err
			}
			out.HostCredit = r.Credit
		}

		w, err := u.ledger.LockWallet(ctx, tx, in.SenderID)
		if err != nil {
			return err
		}
		out.NewBalance = w.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		u.log.Info().Str("session_id", s.ID).Str("sender_id", in.SenderID).Msg("tip replayed")
		return out, nil
	}
	u.log.Info().Str("session_id", s.ID).Str("sender_id", in.SenderID).Str("guest_id", guest).
		Int64("host_amount", hostAmount).Int64("guest_amount", guestAmount).Msg("tip sent")
	return out, nil
}

func (u *revenueUC) tipLeg(in TipInput, s *model.LiveSession, recipient string, amount int64, share model.TipShare, suffix string) TransferInput {
	meta := model.TipMeta{
		SessionID:         s.ID,
		SenderID:          in.SenderID,
		RecipientID:       recipient,
		TotalAmount:       in.Amount,
		CommissionPercent: s.CommissionPercent,
		Share:             share,
	}
	key := ""
	if in.IdempotencyKey != "" {
		key = in.IdempotencyKey + suffix
	}
	return TransferInput{
		FromUserID:     in.SenderID,
		ToUserID:       recipient,
		Amount:         amount,
		DebitType:      model.TransactionTypeTip,
		CreditType:     model.TransactionTypeTipEarnings,
		IdempotencyKey: key,
		Description:    "tip",
		DebitMetadata:  meta,
		CreditMetadata: meta,
	}
}

// storedTip rebuilds the result of a tip already applied under key from its stored legs.
func (u *revenueUC) storedTip(ctx context.Context, tx repository.Tx, key string) (*TipResult, bool, error) {
	guest, guestOK, err := u.ledger.FindTransfer(ctx, tx, key+":guest")
	if err != nil {
		return nil, false, err
	}
	host, hostOK, err := u.ledger.FindTransfer(ctx, tx, key+":host")
	if err != nil {
		return nil, false, err
	}
	if !guestOK && !hostOK {
		return nil, false, nil
	}
	res := &TipResult{}
	if guestOK {
		res.GuestCredit = guest.Credit
	}
	if hostOK {
		res.HostCredit = host.Credit
	}
	return res, true, nil
}

func (u *revenueUC) SetSessionCommission(ctx context.Context, hostID, sessionID string, percent *int) error {
	if percent != nil && (*percent < 0 || *percent > 100) {
		return domain.NewValidationError("commission_percent", "must be between 0 and 100")
	}
	s, err := u.liveSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.HostID != hostID {
		return domain.ErrForbidden
	}
	if err := u.sessions.UpdateCommission(ctx, nil, sessionID, percent); err != nil {
		return err
	}
	ev := u.log.Info().Str("session_id", sessionID)
	if percent != nil {
		ev = ev.Int("commission_percent", *percent)
	}
	ev.Msg("session commission updated")
	return nil
}

func (u *revenueUC) ListGifts(ctx context.Context) ([]*model.Gift, error) {
	return u.gifts.ListActive(ctx, nil)
}

func (u *revenueUC) liveSession(ctx context.Context, id string) (*model.LiveSession, error) {
	s, err := u.sessions.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !s.IsLive() {
		return nil, domain.NewValidationError("session_id", "session is not live")
	}
	return s, nil
}
