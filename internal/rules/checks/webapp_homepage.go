package checks

import (
	"a11yminer/internal/data"
	"a11yminer/internal/rules"
)

// WebAppHomepageRule accepts any repository that declares a homepage, even
// with no other signal. Library rules run first, so a documented package
// with a docs site is still excluded.
type WebAppHomepageRule struct{}

func (r *WebAppHomepageRule) ID() string {
	return "webapp-homepage"
}

func (r *WebAppHomepageRule) Kind() rules.Kind {
	return rules.KindWebApp
}

func (r *WebAppHomepageRule) Priority() int {
	return 30
}

func (r *WebAppHomepageRule) Description() string {
	return "Repository declares a non-empty homepage URL."
}

func (r *WebAppHomepageRule) Evaluate(d *data.Descriptor) (bool, string) {
	if !d.HasHomepage() {
		return false, ""
	}
	return true, "homepage " + d.Homepage
}

func init() {
	rules.Register(&WebAppHomepageRule{})
}
