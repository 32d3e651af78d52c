package checks

import (
	"fmt"

	"a11yminer/internal/data"
	"a11yminer/internal/rules"
)

type WebAppKeywordRule struct{}

func (r *WebAppKeywordRule) ID() string {
	return "webapp-keyword"
}

func (r *WebAppKeywordRule) Kind() rules.Kind {
	return rules.KindWebApp
}

func (r *WebAppKeywordRule) Priority() int {
	return 10
}

func (r *WebAppKeywordRule) Description() string {
	return "Text contains a web-application keyword and no library/tool keyword."
}

func (r *WebAppKeywordRule) Evaluate(d *data.Descriptor) (bool, string) {
	text := d.Text()
	kw, ok := findTerm(text, webAppKeywords)
	if !ok {
		return false, ""
	}
	if _, lib := findTerm(text, nonAppKeywords); lib {
		return false, ""
	}
	return true, fmt.Sprintf("keyword %q", kw)
}

func init() {
	rules.Register(&WebAppKeywordRule{})
}
