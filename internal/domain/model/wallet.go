package model

import "time"

// Wallet is the per-user coin balance. HeldBalance is the part of Balance
// reserved for in-flight external processes; it is never spendable.
type Wallet struct {
	UserID      string
	Balance     int64
	HeldBalance int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewWallet(userID string) *Wallet {
	now := time.Now()
	return &Wallet{UserID: userID, CreatedAt: now, UpdatedAt: now}
}

// Available is what a debit may consume.
func (w *Wallet) Available() int64 { return w.Balance - w.HeldBalance }

// CanApply reports whether a signed delta keeps the available balance non-negative.
// Credits are always allowed.
func (w *Wallet) CanApply(delta int64) bool {
	if delta >= 0 {
		return true
	}
	return w.Available()+delta >= 0
}
