// Package river declares which rapid packets a handler is interested in.
//
// A River is an immutable list of rules. It matches a packet when every rule passes;
// evaluation stops at the first failing rule. Rules are pure, so their order only
// affects how early a miss is detected.
package river

import (
	"github.com/webitel/benefit-solver/internal/domain/packet"
)

type River struct {
	need  string
	rules []Rule
}

// New builds a River from rules.
func New(rules ...Rule) *River {
	return &River{rules: append([]Rule(nil), rules...)}
}

// NewNeed builds a River for an unsolved need of type behov. It requires behov in
// "@behov" and forbids "@løsning" before applying the extra rules.
func NewNeed(behov string, rules ...Rule) *River {
	base := []Rule{
		RequireContains(packet.KeyNeed, behov),
		Forbid(packet.KeySolution),
	}
	return &River{need: behov, rules: append(base, rules...)}
}

// Need returns the need type this River answers, or "" for a plain River.
func (r *River) Need() string { return r.need }

func (r *River) Matches(p *packet.Packet) bool {
	if p == nil {
		return false
	}
	for _, rule := range r.rules {
		if !rule.test(p) {
			return false
		}
	}
	return true
}

// Problems lists the names of all failing rules, for logging a packet that did not match.
func (r *River) Problems(p *packet.Packet) []string {
	var out []string
	for _, rule := range r.rules {
		if p == nil || !rule.test(p) {
			out = append(out, rule.name)
		}
	}
	return out
}
