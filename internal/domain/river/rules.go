package river

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/webitel/benefit-solver/internal/domain/packet"
)

// Rule is a named predicate over a packet.
type Rule struct {
	name string
	test func(*packet.Packet) bool
}

func (r Rule) String() string { return r.name }

// RequireKey passes when every key is present and not null.
func RequireKey(keys ...string) Rule {
	return Rule{
		name: "requireKey(" + strings.Join(keys, ",") + ")",
		test: func(p *packet.Packet) bool {
			for _, k := range keys {
				if !p.Has(k) {
					return false
				}
			}
			return true
		},
	}
}

// Forbid passes when every key is absent or null.
func Forbid(keys ...string) Rule {
	return Rule{
		name: "forbid(" + strings.Join(keys, ",") + ")",
		test: func(p *packet.Packet) bool {
			for _, k := range keys {
				if p.Has(k) {
					return false
				}
			}
			return true
		},
	}
}

// RequireContains passes when key equals value or is an array holding value.
func RequireContains(key, value string) Rule {
	return Rule{
		name: fmt.Sprintf("requireContains(%s,%s)", key, value),
		test: func(p *packet.Packet) bool { return p.Contains(key, value) },
	}
}

// RequireValue passes when key is a scalar whose text equals expected.
func RequireValue(key, expected string) Rule {
	return Rule{
		name: fmt.Sprintf("requireValue(%s,%s)", key, expected),
		test: func(p *packet.Packet) bool {
			v, ok := p.String(key)
			return ok && v == expected
		},
	}
}

// Require passes when key is present and accepted by fn.
func Require(key string, fn func(jsoniter.Any) bool) Rule {
	return Rule{
		name: "require(" + key + ")",
		test: func(p *packet.Packet) bool {
			v, ok := p.Lookup(key)
			return ok && fn(v)
		},
	}
}

// RequireDate passes when key holds a YYYY-MM-DD date.
func RequireDate(key string) Rule {
	return Rule{
		name: "requireDate(" + key + ")",
		test: func(p *packet.Packet) bool {
			_, err := p.Date(key)
			return err == nil
		},
	}
}
