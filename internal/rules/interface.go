package rules

import "a11yminer/internal/data"

// Kind says which predicate a rule contributes to.
type Kind string

const (
	KindLibrary Kind = "library"
	KindWebApp  Kind = "webapp"
)

// Rule is one named predicate of the classifier. Rules are pure: they only
// look at the descriptor and never call GitHub.
type Rule interface {
	ID() string
	Kind() Kind
	// Priority orders rules of the same kind; lower runs first.
	Priority() int
	Description() string

	// Evaluate reports whether the rule matches and, if so, a short reason
	// naming the signal that fired.
	Evaluate(d *data.Descriptor) (bool, string)
}
