package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// DefaultEmojiPool is the configurable alias pool for leaderboard aliasing
// (spec.md §4.12, Open Question (b)).
var DefaultEmojiPool = []string{
	"🦊", "🐢", "🦉", "🐬", "🦋", "🐝", "🦔", "🐼", "🦓", "🐙",
}

// Alias derives an emoji+hex pseudonym from a user id, per spec.md §4.12:
// hash = SHA256(userId) hex; emoji(hash[0:1] mod |pool|) ∥ hash[1:7].
func Alias(userID string, pool []string) string {
	if len(pool) == 0 {
		pool = DefaultEmojiPool
	}
	sum := sha256.Sum256([]byte(userID))
	hexStr := hex.EncodeToString(sum[:])
	digit, _ := strconv.ParseInt(hexStr[0:1], 16, 64)
	idx := int(digit) % len(pool)
	return pool[idx] + hexStr[1:7]
}
