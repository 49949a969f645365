package signaling

// Session: состояние одного соединения в протоколе.
// Unjoined: roomID == ""; Joined: roomID != ""; Disconnected: closed.
type Session struct {
	peer   Peer
	roomID string
	closed bool
}

func (s *Session) ID() string { return s.peer.ID() }

func (s *Session) RoomID() string { return s.roomID }

func (s *Session) Joined() bool { return s.roomID != "" && !s.closed }
