// File: hook/marking.go
// Marking policy (C6) of spec.md §4.5: an ordered list of trigger
// patterns electing a function's detail-lane window for persistence.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package hook

import (
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
)

// CaseMode controls how a literal pattern is compared against a symbol.
type CaseMode int

const (
	// CaseSensitive requires an exact byte-for-byte match.
	CaseSensitive CaseMode = iota
	// CaseInsensitive folds both sides before comparing.
	CaseInsensitive
)

// Pattern is one trigger in the marking policy's ordered pattern list.
// Exactly one of Literal or Regex is meaningful, selected by IsRegex.
type Pattern struct {
	IsRegex bool
	Literal string
	Case    CaseMode
	Regex   string
}

// compiled is a Pattern plus its precomputed matcher: the literal text
// (compared with strings.EqualFold when Case == CaseInsensitive) or a
// cached *regexp.Regexp. Invalid regex patterns fall back to literal
// matching against the raw pattern text, per spec.md §4.5.
type compiled struct {
	src     Pattern
	literal string // pattern text as given; not case-folded
	re      *regexp.Regexp
}

// Policy evaluates a thread's marking patterns against observed symbol
// names and reports whether any one of them matched.
type Policy struct {
	mu       sync.RWMutex
	patterns []compiled

	// generation increments on every SetPatterns, letting a per-thread
	// symbol cache (lane.Set.Symbols) detect a stale cached verdict
	// without taking p.mu.
	generation atomic.Uint64
}

// NewPolicy compiles an ordered list of trigger patterns. Patterns whose
// regex fails to compile degrade to a literal match against Regex's raw
// text rather than being rejected outright.
func NewPolicy(patterns []Pattern) *Policy {
	p := &Policy{}
	p.SetPatterns(patterns)
	return p
}

// SetPatterns replaces the active pattern list, recompiling regexes.
// Used by configuration hot-reload (control.ConfigStore) to push updated
// marking rules without restarting the agent.
func (p *Policy) SetPatterns(patterns []Pattern) {
	compiledList := make([]compiled, 0, len(patterns))
	for _, pat := range patterns {
		c := compiled{src: pat}
		if pat.IsRegex {
			if re, err := regexp.Compile(pat.Regex); err == nil {
				c.re = re
			} else {
				c.literal = pat.Regex // fallback to literal match
			}
		} else {
			c.literal = pat.Literal
		}
		compiledList = append(compiledList, c)
	}
	p.mu.Lock()
	p.patterns = compiledList
	p.mu.Unlock()
	p.generation.Add(1)
}

// Generation reports the policy's current generation counter, bumped on
// every SetPatterns. Callers use it to invalidate a cached Matches
// verdict without holding p.mu.
func (p *Policy) Generation() uint64 { return p.generation.Load() }

// Matches reports whether symbol matches any configured pattern, in
// order, short-circuiting on the first hit.
func (p *Policy) Matches(symbol string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.patterns {
		if c.re != nil {
			if c.re.MatchString(symbol) {
				return true
			}
			continue
		}
		if c.src.IsRegex {
			// regex compile failed at SetPatterns time: exact literal fallback
			if symbol == c.literal {
				return true
			}
			continue
		}
		if c.src.Case == CaseInsensitive {
			if strings.EqualFold(symbol, c.src.Literal) {
				return true
			}
		} else if symbol == c.literal {
			return true
		}
	}
	return false
}
