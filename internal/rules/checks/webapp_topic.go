package checks

import (
	"fmt"
	"strings"

	"a11yminer/internal/data"
	"a11yminer/internal/rules"
)

type WebAppTopicRule struct{}

func (r *WebAppTopicRule) ID() string {
	return "webapp-topic"
}

func (r *WebAppTopicRule) Kind() rules.Kind {
	return rules.KindWebApp
}

func (r *WebAppTopicRule) Priority() int {
	return 20
}

func (r *WebAppTopicRule) Description() string {
	return "Repository topics include a web-application topic."
}

func (r *WebAppTopicRule) Evaluate(d *data.Descriptor) (bool, string) {
	if d == nil {
		return false, ""
	}
	for _, topic := range d.Topics {
		t := strings.ToLower(strings.TrimSpace(topic))
		for _, want := range webAppTopics {
			if t == want {
				return true, fmt.Sprintf("topic %q", t)
			}
		}
	}
	return false, ""
}

func init() {
	rules.Register(&WebAppTopicRule{})
}
