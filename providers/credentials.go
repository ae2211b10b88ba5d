package providers

import (
	"sync"
	"time"
)

// credentialCache holds a carrier auth token with its expiry. Each provider
// adapter owns one instance; refresh happens lazily before calls rather than
// through ambient global state.
type credentialCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// expirySlack is subtracted from the advertised TTL so a token is refreshed
// slightly before the carrier would reject it.
const expirySlack = 60 * time.Second

func (c *credentialCache) get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || time.Now().After(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

func (c *credentialCache) set(token string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = time.Now().Add(ttl - expirySlack)
}

func (c *credentialCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}
