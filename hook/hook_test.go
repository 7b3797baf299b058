// File: hook/hook_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package hook

import "testing"

func TestRegistryInternStableAndMonotonic(t *testing.T) {
	r := NewRegistry()
	id1 := r.Intern("/usr/lib/libfoo.dylib", "doWork")
	id2 := r.Intern("/usr/lib/libfoo.dylib", "doWork")
	if id1 != id2 {
		t.Fatalf("expected stable id across repeated intern: %d != %d", id1, id2)
	}
	id3 := r.Intern("/usr/lib/libfoo.dylib", "doOtherWork")
	mod1, ord1 := FunctionComponents(id1)
	mod3, ord3 := FunctionComponents(id3)
	if mod1 != mod3 {
		t.Fatalf("expected same module id for same module path")
	}
	if ord1 != 1 || ord3 != 2 {
		t.Fatalf("expected monotonically increasing ordinals, got %d then %d", ord1, ord3)
	}
}

func TestRegistryDistinctModulesDistinctIDs(t *testing.T) {
	r := NewRegistry()
	idA := r.Intern("/lib/a.so", "fn")
	idB := r.Intern("/lib/b.so", "fn")
	modA, _ := FunctionComponents(idA)
	modB, _ := FunctionComponents(idB)
	if modA == modB {
		t.Fatalf("expected different module ids for different module paths")
	}
}

func TestModuleIDNeverZero(t *testing.T) {
	if ModuleID("") == 0 {
		t.Fatalf("module id must never be zero")
	}
}

func TestExcludeSetDefaultsPresent(t *testing.T) {
	s := NewExcludeSet()
	if !s.Contains("malloc") {
		t.Fatalf("expected malloc to be excluded by default")
	}
	if s.Contains("myApplicationFunction") {
		t.Fatalf("unexpected exclusion of non-default symbol")
	}
}

func TestExcludeSetAddAndRehash(t *testing.T) {
	s := newExcludeSetSized(4)
	for i := 0; i < 100; i++ {
		s.Add(string(rune('a' + (i % 26))))
	}
	if s.Len() == 0 {
		t.Fatalf("expected symbols to be recorded across rehashes")
	}
	if !s.Contains("a") {
		t.Fatalf("expected 'a' to survive rehashing")
	}
}

func TestMarkingPolicyLiteralCaseInsensitive(t *testing.T) {
	p := NewPolicy([]Pattern{{Literal: "Connect", Case: CaseInsensitive}})
	if !p.Matches("connect") {
		t.Fatalf("expected case-insensitive literal match")
	}
	if p.Matches("disconnect") {
		t.Fatalf("unexpected match on unrelated symbol")
	}
}

func TestMarkingPolicyRegex(t *testing.T) {
	p := NewPolicy([]Pattern{{IsRegex: true, Regex: "^NS.*Error$"}})
	if !p.Matches("NSURLError") {
		t.Fatalf("expected regex match")
	}
	if p.Matches("NSURLResponse") {
		t.Fatalf("unexpected regex match")
	}
}

func TestMarkingPolicyInvalidRegexFallsBackToLiteral(t *testing.T) {
	p := NewPolicy([]Pattern{{IsRegex: true, Regex: "(unterminated"}})
	if !p.Matches("(unterminated") {
		t.Fatalf("expected literal fallback match on raw pattern text")
	}
}

func TestMarkingPolicySetPatternsReplaces(t *testing.T) {
	p := NewPolicy([]Pattern{{Literal: "foo"}})
	if !p.Matches("foo") {
		t.Fatalf("expected initial pattern to match")
	}
	p.SetPatterns([]Pattern{{Literal: "bar"}})
	if p.Matches("foo") {
		t.Fatalf("expected old pattern to no longer match after replacement")
	}
	if !p.Matches("bar") {
		t.Fatalf("expected new pattern to match")
	}
}
