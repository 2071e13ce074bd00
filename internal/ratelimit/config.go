package ratelimit

import (
	"sort"
	"strings"
	"time"
)

// Config is the per-tier sliding window policy.
type Config struct {
	// Limit is the maximum number of requests admitted per window.
	Limit int
	// Window is the sliding window span.
	Window time.Duration
	// KeyPrefix namespaces the redis keys for this tier.
	KeyPrefix string
}

// Result is the outcome of a single window check.
type Result struct {
	Limited   bool
	Remaining int
	ResetTime time.Time
	Current   int64
}

// Tier names resolved from request paths.
const (
	TierGeneral      = "general"
	TierAuth         = "auth"
	TierPayment      = "payment"
	TierSearch       = "search"
	TierModification = "modification"
	TierPOS          = "pos"
)

// Tier binds a policy name to its window config.
type Tier struct {
	Name   string
	Config Config
}

// Tiers resolves a request path to the applicable tier.
type Tiers struct {
	prefixes     []prefixRule
	fallback     Tier
	modification Tier
}

type prefixRule struct {
	prefix string
	tier   Tier
}

// DefaultTiers returns the static endpoint-class policies. Authentication
// and payment paths get the tightest windows, reads the loosest.
func DefaultTiers() *Tiers {
	general := Tier{Name: TierGeneral, Config: Config{Limit: 100, Window: time.Minute, KeyPrefix: "ratelimit:general"}}

	t := NewTiers(general)
	t.Add("/api/auth", Tier{Name: TierAuth, Config: Config{Limit: 10, Window: time.Minute, KeyPrefix: "ratelimit:auth"}})
	t.Add("/api/payments", Tier{Name: TierPayment, Config: Config{Limit: 20, Window: time.Minute, KeyPrefix: "ratelimit:payment"}})
	t.Add("/api/search", Tier{Name: TierSearch, Config: Config{Limit: 60, Window: time.Minute, KeyPrefix: "ratelimit:search"}})
	t.Add("/api/pos", Tier{Name: TierPOS, Config: Config{Limit: 120, Window: time.Minute, KeyPrefix: "ratelimit:pos"}})
	return t
}

// NewTiers builds an empty resolver with the given fallback tier. Write
// methods on unmatched paths fall under the modification tier.
func NewTiers(fallback Tier) *Tiers {
	return &Tiers{
		fallback: fallback,
		modification: Tier{
			Name:   TierModification,
			Config: Config{Limit: 40, Window: time.Minute, KeyPrefix: "ratelimit:modification"},
		},
	}
}

// SetModification overrides the write-method tier.
func (t *Tiers) SetModification(tier Tier) {
	t.modification = tier
}

// Add registers a path prefix rule. Longer prefixes win over shorter ones.
func (t *Tiers) Add(prefix string, tier Tier) {
	t.prefixes = append(t.prefixes, prefixRule{prefix: prefix, tier: tier})
	sort.SliceStable(t.prefixes, func(i, j int) bool {
		return len(t.prefixes[i].prefix) > len(t.prefixes[j].prefix)
	})
}

// Resolve returns the tier for a request path. Write methods on otherwise
// general paths map to the modification tier.
func (t *Tiers) Resolve(path, method string) Tier {
	path = strings.TrimSpace(path)
	for _, rule := range t.prefixes {
		if strings.HasPrefix(path, rule.prefix) {
			return rule.tier
		}
	}

	switch strings.ToUpper(method) {
	case "POST", "PUT", "PATCH", "DELETE":
		return t.modification
	}
	return t.fallback
}

// Fallback returns the general tier.
func (t *Tiers) Fallback() Tier {
	return t.fallback
}
