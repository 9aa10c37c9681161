package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// webAppDataKey is the domain-separation constant Telegram uses to derive the
// initData signing key from the bot token.
const webAppDataKey = "WebAppData"

// WebAppUser is the identity object carried in initData's `user` field.
type WebAppUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
}

// TelegramID returns the user id in the string form the rest of the system
// keys on.
func (u *WebAppUser) TelegramID() string {
	return strconv.FormatInt(u.ID, 10)
}

// Verify checks the initData signature against the bot token.
// Telegram signs the newline-joined `key=value` pairs (hash excluded) in
// lexicographical key order, using HMAC-SHA256 under a key derived as
// HMAC-SHA256("WebAppData", botToken). The provided hash is hex-encoded.
// Returns false on any malformed input; never panics.
func Verify(raw string, botToken string) bool {
	if raw == "" || botToken == "" {
		return false
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return false
	}

	given := values.Get("hash")
	if given == "" {
		return false
	}

	var keys []string
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		for _, v := range values[k] {
			parts = append(parts, k+"="+v)
		}
	}
	msg := strings.Join(parts, "\n")

	derived := hmac.New(sha256.New, []byte(webAppDataKey))
	_, _ = derived.Write([]byte(botToken))
	secret := derived.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(msg))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(given))
}

// ParseUser extracts the user object from initData without any signature
// check; the soft auth tier uses it standalone. Returns nil on any malformed
// input or when the object lacks an id or first name.
func ParseUser(raw string) *WebAppUser {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil
	}

	userJSON := values.Get("user")
	if userJSON == "" {
		return nil
	}

	var u WebAppUser
	if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
		return nil
	}
	if u.ID == 0 || strings.TrimSpace(u.FirstName) == "" {
		return nil
	}
	return &u
}

// AuthDate extracts the auth_date field (Unix seconds). Returns 0 when the
// field is absent or malformed; 0 is always treated as stale by Fresh.
func AuthDate(raw string) int64 {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Fresh reports whether an auth_date is within ttl of now. A non-positive
// auth_date is always stale.
func Fresh(authDateSeconds, ttlSeconds, nowSeconds int64) bool {
	return authDateSeconds > 0 && nowSeconds-authDateSeconds <= ttlSeconds
}
