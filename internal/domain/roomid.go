package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const roomIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// формат: abc-defg-hij
var (
	roomIDGroups  = [...]int{3, 4, 3}
	roomIDPattern = regexp.MustCompile(`^[a-z0-9]{3}-[a-z0-9]{4}-[a-z0-9]{3}$`)
)

// NewRoomID генерирует человекочитаемый идентификатор комнаты.
func NewRoomID() (string, error) {
	groups := make([]string, len(roomIDGroups))
	for i, n := range roomIDGroups {
		g, err := randomString(n)
		if err != nil {
			return "", fmt.Errorf("generate room id: %w", err)
		}
		groups[i] = g
	}
	return groups[0] + "-" + groups[1] + "-" + groups[2], nil
}

func ValidRoomID(id string) bool {
	return roomIDPattern.MatchString(id)
}

func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(roomIDAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = roomIDAlphabet[idx.Int64()]
	}
	return string(b), nil
}
