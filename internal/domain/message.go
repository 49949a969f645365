package domain

import "time"

// MaxChatMessageLen: лимит длины текста в символах.
const MaxChatMessageLen = 1000

type ChatMessage struct {
	Text      string    `json:"text"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}
