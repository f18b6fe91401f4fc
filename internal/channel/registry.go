package channel

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// senderTTL bounds how long an idle delivery path is kept. Outbound-initiated
// sends fall back to building a fresh transport sender when the entry has
// lapsed, so expiry costs nothing beyond losing a web socket that went quiet.
const senderTTL = 24 * time.Hour

// Registry tracks the live sender for each (bot, user) pair. It is injected
// wherever outbound-initiated sends happen (the reminder job) instead of a
// process-wide singleton; handlers register a sender when a turn starts and
// the entry is replaced on the next turn, so lookups always see the most
// recent delivery path. Entries that go untouched for senderTTL are dropped,
// keeping the map bounded by recently active users rather than growing with
// every user ever seen.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
	now     func() time.Time
}

type registryEntry struct {
	sender  Sender
	expires time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]registryEntry),
		now:     time.Now,
	}
}

func registryKey(botID, userKey string) string {
	return botID + "|" + userKey
}

// Register records s as the live delivery path for its (bot, user) pair and
// sweeps out entries whose TTL has lapsed.
func (r *Registry) Register(s Sender) {
	now := r.now()

	r.mu.Lock()
	for key, entry := range r.entries {
		if now.After(entry.expires) {
			delete(r.entries, key)
		}
	}
	r.entries[registryKey(s.BotID(), s.UserKey())] = registryEntry{
		sender:  s,
		expires: now.Add(senderTTL),
	}
	r.mu.Unlock()

	log.Debug().
		Str("botId", s.BotID()).
		Str("userKey", s.UserKey()).
		Str("channel", string(s.Channel())).
		Msg("channel sender registered")
}

func (r *Registry) Unregister(botID, userKey string) {
	r.mu.Lock()
	delete(r.entries, registryKey(botID, userKey))
	r.mu.Unlock()
}

// Lookup returns the live sender for a pair, or nil when the user has no
// current delivery path. Lapsed entries count as absent.
func (r *Registry) Lookup(botID, userKey string) Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[registryKey(botID, userKey)]
	if !ok || r.now().After(entry.expires) {
		return nil
	}
	return entry.sender
}

// Size reports the number of unexpired entries.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	n := 0
	for _, entry := range r.entries {
		if !now.After(entry.expires) {
			n++
		}
	}
	return n
}
