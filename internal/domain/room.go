package domain

import "time"

// MaxParticipants: звонок строго на двоих.
const MaxParticipants = 2

type Room struct {
	ID        string
	CreatedAt time.Time
	// в порядке входа; первый вошедший инициирует offer
	Participants []Participant
}

func (r Room) Size() int { return len(r.Participants) }

func (r Room) IsEmpty() bool { return len(r.Participants) == 0 }

// Roster возвращает видимое клиентам представление участников.
func (r Room) Roster() []RosterItem {
	items := make([]RosterItem, 0, len(r.Participants))
	for _, p := range r.Participants {
		items = append(items, p.RosterItem())
	}
	return items
}

// Has сообщает, состоит ли участник в комнате.
func (r Room) Has(participantID string) bool {
	for _, p := range r.Participants {
		if p.ID == participantID {
			return true
		}
	}
	return false
}
