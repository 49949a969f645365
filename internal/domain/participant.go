package domain

import "time"

type Participant struct {
	ID          string
	WebRTCReady bool
	IsMuted     bool
	JoinedAt    time.Time
}

// RosterItem: то, что уходит клиентам. WebRTCReady наружу не отдаём.
type RosterItem struct {
	UserID  string `json:"userId"`
	IsMuted bool   `json:"isMuted"`
}

func (p Participant) RosterItem() RosterItem {
	return RosterItem{UserID: p.ID, IsMuted: p.IsMuted}
}
