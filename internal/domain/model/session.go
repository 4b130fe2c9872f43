package model

import "time"

type LiveSessionStatus string

const (
	LiveSessionStatusLive  LiveSessionStatus = "live"
	LiveSessionStatusEnded LiveSessionStatus = "ended"
)

// LiveSession is the part of a live stream the revenue split needs: who hosts
// it and the commission the host keeps on tips sent to a guest creator.
type LiveSession struct {
	ID                string
	HostID            string
	Status            LiveSessionStatus
	CommissionPercent *int
	StartedAt         time.Time
	EndedAt           *time.Time
	UpdatedAt         time.Time
}

func (s *LiveSession) IsLive() bool { return s != nil && s.Status == LiveSessionStatusLive }

// Gift is a catalog item senders can buy for a creator during a session.
type Gift struct {
	ID       string
	Name     string
	CoinCost int64
	IsActive bool
}
