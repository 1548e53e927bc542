package session

import "time"

// AccessRecord shadows the provider access token for one subject. Keyed
// session:<subjectID>:access, it lives exactly until the provider token's
// own expiry.
type AccessRecord struct {
	ProviderToken     string    `json:"providerToken"`
	ProviderExpiresAt time.Time `json:"providerExpiresAt"`
	// AccessHash is the one-way digest of the gateway access credential
	// issued against this record. The raw credential is never stored.
	AccessHash string `json:"accessHash"`
}

// RefreshRecord shadows the provider refresh token for one subject. Keyed
// session:<subjectID>:refresh. JTIHash pins the record to a single gateway
// refresh credential: rotation rewrites it, so a replayed credential can
// never match twice.
type RefreshRecord struct {
	ProviderRefreshToken string    `json:"providerRefreshToken"`
	ProviderExpiresAt    time.Time `json:"providerExpiresAt"`
	RefreshHash          string    `json:"refreshHash"`
	JTIHash              string    `json:"jtiHash"`
}
