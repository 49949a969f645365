// Package turn выдаёт клиентам список ICE-серверов с временными
// учётными данными TURN в формате TURN REST API (совместим с coturn
// use-auth-secret):
//
//	username   = <unix_expiry>:<prefix>:<session_id>
//	credential = base64(hmac_sha1(secret, username))
package turn

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

const (
	DefaultTTL    = 24 * time.Hour
	DefaultPrefix = "call"
)

var ErrNotConfigured = errors.New("no ice servers configured")

type Config struct {
	Secret         string
	TTL            time.Duration
	UsernamePrefix string
	URLs           []string // turn:/turns:
	STUNURLs       []string // stun:/stuns:
}

// Credentials отдаётся клиенту как готовый список для RTCPeerConnection.
type Credentials struct {
	ICEServers []webrtc.ICEServer
	TTL        time.Duration
	ExpiresAt  time.Time
}

type Provider struct {
	secret   []byte
	ttl      time.Duration
	prefix   string
	turnURLs []string
	stunURLs []string
	now      func() time.Time
}

type Option func(*Provider)

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(cfg Config, opts ...Option) (*Provider, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.UsernamePrefix == "" {
		cfg.UsernamePrefix = DefaultPrefix
	}
	if strings.Contains(cfg.UsernamePrefix, ":") {
		return nil, errors.New("turn: username prefix must not contain ':'")
	}
	if len(cfg.URLs) > 0 && cfg.Secret == "" {
		return nil, errors.New("turn: secret is required when turn urls are set")
	}
	for _, u := range cfg.URLs {
		if !hasScheme(u, "turn:", "turns:") {
			return nil, fmt.Errorf("turn: bad turn url %q", u)
		}
	}
	for _, u := range cfg.STUNURLs {
		if !hasScheme(u, "stun:", "stuns:") {
			return nil, fmt.Errorf("turn: bad stun url %q", u)
		}
	}

	p := &Provider{
		secret:   []byte(cfg.Secret),
		ttl:      cfg.TTL,
		prefix:   cfg.UsernamePrefix,
		turnURLs: cfg.URLs,
		stunURLs: cfg.STUNURLs,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Enabled: есть ли что отдавать клиентам.
func (p *Provider) Enabled() bool {
	return len(p.turnURLs) > 0 || len(p.stunURLs) > 0
}

// ICEServers собирает список серверов. Для пустого sessionID генерируется uuid.
func (p *Provider) ICEServers(sessionID string) (Credentials, error) {
	if !p.Enabled() {
		return Credentials{}, ErrNotConfigured
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if strings.Contains(sessionID, ":") {
		return Credentials{}, errors.New("turn: session id must not contain ':'")
	}

	expires := p.now().UTC().Add(p.ttl).Truncate(time.Second)
	out := Credentials{
		ICEServers: make([]webrtc.ICEServer, 0, 2),
		TTL:        p.ttl,
		ExpiresAt:  expires,
	}
	if len(p.stunURLs) > 0 {
		out.ICEServers = append(out.ICEServers, webrtc.ICEServer{URLs: p.stunURLs})
	}
	if len(p.turnURLs) > 0 {
		username := fmt.Sprintf("%d:%s:%s", expires.Unix(), p.prefix, sessionID)
		out.ICEServers = append(out.ICEServers, webrtc.ICEServer{
			URLs:           p.turnURLs,
			Username:       username,
			Credential:     sign(p.secret, username),
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}
	return out, nil
}

func sign(secret []byte, username string) string {
	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write([]byte(username))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func hasScheme(u string, schemes ...string) bool {
	u = strings.ToLower(strings.TrimSpace(u))
	for _, s := range schemes {
		if strings.HasPrefix(u, s) {
			return true
		}
	}
	return false
}
