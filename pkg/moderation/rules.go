package moderation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var inappropriateWords = []string{
	"spam", "scam", "fake", "bot", "hack", "phishing",
	"illegal", "stolen", "copyright", "trademark",
}

var adultKeywords = []string{
	"explicit", "nsfw", "adult", "mature", "sexual",
	"porn", "xxx", "nude", "naked",
}

var (
	linkRe    = regexp.MustCompile(`https?://[^\s]+`)
	specialRe = regexp.MustCompile(`[!@#$%^&*()_+={}\[\]|\\:";'<>?,./]`)
)

const (
	capsRatioLimit    = 0.7
	capsMinLength     = 10
	repeatRunLimit    = 5
	maxLinks          = 3
	specialRatioLimit = 0.3
)

// Check is the outcome of the rule set for one piece of text.
type Check struct {
	Appropriate bool     `json:"isAppropriate"`
	Reasons     []string `json:"reasons"`
}

// CheckContent runs every rule against content.
func CheckContent(content string) Check {
	var reasons []string
	lower := strings.ToLower(content)

	if found := containsAny(lower, inappropriateWords); len(found) > 0 {
		reasons = append(reasons, "Contains inappropriate words: "+strings.Join(found, ", "))
	}

	n := utf8.RuneCountInString(content)
	if n > capsMinLength {
		upper := 0
		for _, r := range content {
			if r >= 'A' && r <= 'Z' {
				upper++
			}
		}
		if float64(upper)/float64(n) > capsRatioLimit {
			reasons = append(reasons, "Contains excessive capitalization")
		}
	}

	if isSpam(content) {
		reasons = append(reasons, "Content appears to be spam")
	}

	if len(containsAny(lower, adultKeywords)) > 0 {
		reasons = append(reasons, "Contains adult content keywords")
	}

	return Check{Appropriate: len(reasons) == 0, Reasons: reasons}
}

func containsAny(lower string, words []string) []string {
	var found []string
	for _, w := range words {
		if strings.Contains(lower, w) {
			found = append(found, w)
		}
	}
	return found
}

func isSpam(content string) bool {
	if hasRepeatedRun(content, repeatRunLimit) {
		return true
	}
	if len(linkRe.FindAllStringIndex(content, -1)) > maxLinks {
		return true
	}
	special := len(specialRe.FindAllStringIndex(content, -1))
	return float64(special) > float64(utf8.RuneCountInString(content))*specialRatioLimit
}

// hasRepeatedRun reports whether any character (newlines excluded) repeats n times in a row.
func hasRepeatedRun(s string, n int) bool {
	var prev rune = -1
	run := 0
	for _, r := range s {
		if r == prev && r != '\n' {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

// Decision is a moderation verdict.
type Decision struct {
	Approved bool     `json:"isApproved"`
	Reasons  []string `json:"reasons"`
}

type ProfileInput struct {
	DisplayName string   `json:"displayName"`
	Bio         string   `json:"bio,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

func ModerateProfile(p ProfileInput) Decision {
	var reasons []string
	if c := CheckContent(p.DisplayName); !c.Appropriate {
		reasons = append(reasons, "Display name: "+strings.Join(c.Reasons, ", "))
	}
	if p.Bio != "" {
		if c := CheckContent(p.Bio); !c.Appropriate {
			reasons = append(reasons, "Bio: "+strings.Join(c.Reasons, ", "))
		}
	}
	var bad []string
	for _, cat := range p.Categories {
		if len(containsAny(strings.ToLower(cat), inappropriateWords)) > 0 {
			bad = append(bad, cat)
		}
	}
	if len(bad) > 0 {
		reasons = append(reasons, "Inappropriate categories: "+strings.Join(bad, ", "))
	}
	return Decision{Approved: len(reasons) == 0, Reasons: reasons}
}

func ModeratePost(content string) Decision {
	c := CheckContent(content)
	return Decision{Approved: c.Appropriate, Reasons: c.Reasons}
}

func ModerateComment(content string) Decision {
	c := CheckContent(content)
	return Decision{Approved: c.Appropriate, Reasons: c.Reasons}
}

// AutoDecision adds a confidence score to a verdict.
type AutoDecision struct {
	Decision
	Confidence float64 `json:"confidence"`
}

// AutoModerate is the rule-based stand-in for a scoring service.
func AutoModerate(content string) AutoDecision {
	c := CheckContent(content)
	conf := 0.9
	if c.Appropriate {
		conf = 0.8
	}
	return AutoDecision{Decision: Decision{Approved: c.Appropriate, Reasons: c.Reasons}, Confidence: conf}
}

// isBlank is used by report validation.
func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
