package signaling

import "sync"

// Peer: живое соединение, адресуемое по SocketId.
type Peer interface {
	ID() string
	Send(msg Message) error
}

// Hub хранит живые соединения по id.
type Hub struct {
	mu    sync.RWMutex
	peers map[string]Peer
}

func NewHub() *Hub {
	return &Hub{peers: make(map[string]Peer)}
}

func (h *Hub) Add(p Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p.ID()] = p
}

// Remove убирает соединение, только если под этим id зарегистрирован именно p.
func (h *Hub) Remove(p Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.peers[p.ID()]; ok && cur == p {
		delete(h.peers, p.ID())
	}
}

func (h *Hub) Get(id string) (Peer, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.peers[id]
	return p, ok
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}
