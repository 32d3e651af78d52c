package rules

import "a11yminer/internal/data"

// Verdict is the outcome of one predicate: the first rule that matched, or
// Matched=false when none did.
type Verdict struct {
	Matched bool
	RuleID  string
	Reason  string
}

// Class is the classifier's final decision for a repository.
type Class string

const (
	ClassLibrary   Class = "library"
	ClassNotWebApp Class = "not-webapp"
	ClassWebApp    Class = "webapp"
)

type Decision struct {
	Class  Class
	RuleID string
	Reason string
}

// Accepted reports whether the repository passed the classifier gate.
func (d Decision) Accepted() bool {
	return d.Class == ClassWebApp
}

// Set is an ordered, immutable selection of rules.
type Set struct {
	library []Rule
	webapp  []Rule
}

func NewSet(rs ...Rule) *Set {
	sorted := append([]Rule(nil), rs...)
	sortRules(sorted)
	s := &Set{}
	for _, r := range sorted {
		switch r.Kind() {
		case KindLibrary:
			s.library = append(s.library, r)
		case KindWebApp:
			s.webapp = append(s.webapp, r)
		}
	}
	return s
}

// Rules returns the rules in evaluation order.
func (s *Set) Rules() []Rule {
	out := make([]Rule, 0, len(s.library)+len(s.webapp))
	out = append(out, s.library...)
	return append(out, s.webapp...)
}

func first(rs []Rule, d *data.Descriptor) Verdict {
	for _, r := range rs {
		if ok, reason := r.Evaluate(d); ok {
			return Verdict{Matched: true, RuleID: r.ID(), Reason: reason}
		}
	}
	return Verdict{}
}

func (s *Set) IsLibrary(d *data.Descriptor) Verdict {
	return first(s.library, d)
}

func (s *Set) IsWebApplication(d *data.Descriptor) Verdict {
	return first(s.webapp, d)
}

// Classify checks the library predicate first and short-circuits, so a
// repository matching both predicates is a library.
func (s *Set) Classify(d *data.Descriptor) Decision {
	if v := s.IsLibrary(d); v.Matched {
		return Decision{Class: ClassLibrary, RuleID: v.RuleID, Reason: v.Reason}
	}
	if v := s.IsWebApplication(d); v.Matched {
		return Decision{Class: ClassWebApp, RuleID: v.RuleID, Reason: v.Reason}
	}
	return Decision{Class: ClassNotWebApp}
}

// IsLibrary evaluates every registered library rule.
func IsLibrary(d *data.Descriptor) Verdict {
	return NewSet(List(KindLibrary)...).IsLibrary(d)
}

// IsWebApplication evaluates every registered web-application rule.
func IsWebApplication(d *data.Descriptor) Verdict {
	return NewSet(List(KindWebApp)...).IsWebApplication(d)
}

// Classify uses every registered rule.
func Classify(d *data.Descriptor) Decision {
	return NewSet(List("")...).Classify(d)
}
