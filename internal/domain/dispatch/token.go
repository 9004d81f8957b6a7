package dispatch

import "time"

// TokenPair is the OAuth credential issued by the dispatch identity service.
// A pair is always replaced as a whole.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ObtainedAt   time.Time
}

// Bearer returns the Authorization header value for the access token.
func (p *TokenPair) Bearer() string {
	return "Bearer " + p.AccessToken
}

// Clone returns a copy of the pair, or nil.
func (p *TokenPair) Clone() *TokenPair {
	if p == nil {
		return nil
	}

	cloned := *p

	return &cloned
}
