package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"testing"
)

const testBotToken = "12345:TEST_TOKEN"

// signInitData produces a correctly signed initData string for the given
// fields, the way the platform does it.
func signInitData(values url.Values, botToken string) string {
	var keys []string
	for k := range values {
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

	derived := hmac.New(sha256.New, []byte("WebAppData"))
	derived.Write([]byte(botToken))
	secret := derived.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(msg))
	hash := hex.EncodeToString(mac.Sum(nil))

	signed := url.Values{}
	for k, vs := range values {
		for _, v := range vs {
			signed.Add(k, v)
		}
	}
	signed.Set("hash", hash)
	return signed.Encode()
}

func validValues() url.Values {
	return url.Values{
		"auth_date": {"1700000000"},
		"query_id":  {"AAabc123"},
		"user":      {`{"id":42,"first_name":"Ada","last_name":"Lovelace","username":"ada","photo_url":"https://t.me/a.jpg"}`},
	}
}

func TestVerify_RoundTrip(t *testing.T) {
	raw := signInitData(validValues(), testBotToken)
	if !Verify(raw, testBotToken) {
		t.Fatalf("expected valid signature")
	}
	if Verify(raw, "other:TOKEN") {
		t.Fatalf("expected failure under a different bot token")
	}
}

func TestVerify_FlippedSignatureCharacter(t *testing.T) {
	raw := signInitData(validValues(), testBotToken)
	values, _ := url.ParseQuery(raw)
	h := values.Get("hash")

	// Flip every position in turn; each must invalidate the signature.
	for i := 0; i < len(h); i++ {
		flipped := []byte(h)
		if flipped[i] == 'a' {
			flipped[i] = 'b'
		} else {
			flipped[i] = 'a'
		}
		values.Set("hash", string(flipped))
		if Verify(values.Encode(), testBotToken) {
			t.Fatalf("flipped hash char at %d still verified", i)
		}
	}
}

func TestVerify_TamperedFields(t *testing.T) {
	base := validValues()
	raw := signInitData(base, testBotToken)

	for key := range base {
		values, _ := url.ParseQuery(raw)
		values.Set(key, values.Get(key)+"x")
		if Verify(values.Encode(), testBotToken) {
			t.Fatalf("tampering %q after signing still verified", key)
		}
	}
}

func TestVerify_MalformedInputs(t *testing.T) {
	cases := []string{
		"",
		"hash=deadbeef",
		"auth_date=1700000000&user=%7B%7D", // no hash
		"%zz",                              // invalid escape
		"a=b&hash=",
	}
	for _, raw := range cases {
		if Verify(raw, testBotToken) {
			t.Fatalf("expected failure for %q", raw)
		}
	}
	if Verify(signInitData(validValues(), testBotToken), "") {
		t.Fatalf("expected failure with empty bot token")
	}
}

func TestParseUser(t *testing.T) {
	raw := signInitData(validValues(), testBotToken)
	u := ParseUser(raw)
	if u == nil {
		t.Fatalf("expected user")
	}
	if u.ID != 42 || u.FirstName != "Ada" || u.Username != "ada" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.TelegramID() != "42" {
		t.Fatalf("expected telegram id 42, got %q", u.TelegramID())
	}
}

func TestParseUser_Totality(t *testing.T) {
	// None of these may panic, and all must yield nil.
	cases := []string{
		"",
		"%zz",
		"user=",
		"user=notjson",
		"user=%7B%22id%22%3A0%2C%22first_name%22%3A%22x%22%7D",  // id 0
		"user=%7B%22id%22%3A42%7D",                              // no first_name
		"user=%7B%22id%22%3A42%2C%22first_name%22%3A%22%20%22%7D", // blank first_name
		"auth_date=1700000000&hash=deadbeef",                    // no user at all
		"user=%5B%5D",                                           // JSON array
	}
	for _, raw := range cases {
		if u := ParseUser(raw); u != nil {
			t.Fatalf("expected nil for %q, got %+v", raw, u)
		}
	}
}

func TestAuthDate(t *testing.T) {
	if got := AuthDate("auth_date=1700000000"); got != 1700000000 {
		t.Fatalf("expected 1700000000, got %d", got)
	}
	for _, raw := range []string{"", "auth_date=", "auth_date=abc", "%zz"} {
		if got := AuthDate(raw); got != 0 {
			t.Fatalf("expected 0 for %q, got %d", raw, got)
		}
	}
}

func TestFresh_Boundary(t *testing.T) {
	const now = int64(1700000000)
	const ttl = int64(86400)

	if !Fresh(now-ttl, ttl, now) {
		t.Fatalf("age exactly ttl must be fresh")
	}
	if Fresh(now-ttl-1, ttl, now) {
		t.Fatalf("age ttl+1 must be stale")
	}
	if Fresh(0, ttl, now) {
		t.Fatalf("zero auth_date must be stale")
	}
	if Fresh(-5, ttl, now) {
		t.Fatalf("negative auth_date must be stale")
	}
	if !Fresh(now+10, ttl, now) {
		t.Fatalf("slight clock skew into the future is tolerated")
	}
}
