package ratelimit

import "time"

// DefaultRules: лимиты по типам событий сигналинга.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"join-room":            {Max: 10, Window: time.Minute},
		"message":              {Max: 60, Window: time.Minute},
		"webrtc-offer":         {Max: 20, Window: time.Minute},
		"webrtc-answer":        {Max: 20, Window: time.Minute},
		"webrtc-ice-candidate": {Max: 200, Window: time.Minute},
		"mute-status-changed":  {Max: 60, Window: time.Minute},
		"webrtc-ready":         {Max: 10, Window: time.Minute},
	}
}
