// Package classify assigns an urgency tier to a lead from its free-text
// description using deterministic keyword and length rules.
package classify

import (
	"strings"

	"github.com/zulandar/leadyard/internal/models"
)

// longDescriptionWords is the word count above which a description without
// keywords is considered WARM.
const longDescriptionWords = 20

// Rules holds the keyword lists used by Classify.
type Rules struct {
	Hot  []string
	Warm []string
}

// Classify applies r to a lead's service and description.
func (r Rules) Classify(service, description string) models.Tier {
	return Classify(service, description, r.Hot, r.Warm)
}

// Classify returns the tier for a lead. Rules are applied in order and the
// first match wins: a hot keyword, a warm keyword, more than 20 words,
// otherwise COLD. Matching is case-insensitive substring matching. service
// does not influence the current rule set.
func Classify(service, description string, hotKeywords, warmKeywords []string) models.Tier {
	text := strings.ToLower(description)

	if containsAny(text, hotKeywords) {
		return models.TierHot
	}
	if containsAny(text, warmKeywords) {
		return models.TierWarm
	}
	if len(strings.Fields(description)) > longDescriptionWords {
		return models.TierWarm
	}
	return models.TierCold
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
