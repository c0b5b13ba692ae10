package businessflow

import (
	"math/rand"
	"regexp"
	"strings"

	"github.com/farhadmsg/blastline/models"
)

// ContentRenderer produces the final per-recipient message body. It is pure
// apart from the injected random source, so a fixed seed gives a fixed
// rendering.
type ContentRenderer struct {
	rng *rand.Rand
}

func NewContentRenderer(rng *rand.Rand) *ContentRenderer {
	return &ContentRenderer{rng: rng}
}

var (
	namePlaceholderRe = regexp.MustCompile(`\{\{\s*name\s*\}\}`)
	spinRe            = regexp.MustCompile(`\{([^{}|]*(?:\|[^{}|]*)+)\}`)
)

// Render applies, in order: {{name}} substitution, profanity masking, and
// spintax variation for SMS when the spinner is enabled. A recipient without
// a name gets their destination substituted instead. The returned body is
// what gets billed and sent; it is never re-rendered on retry.
func (r *ContentRenderer) Render(template string, recipient Recipient, channel models.MessageChannel, settings *models.PlatformSettings) string {
	name := recipient.Name
	if name == "" {
		name = recipient.Destination
	}
	body := namePlaceholderRe.ReplaceAllString(template, name)

	for _, word := range settings.ProfanityWords {
		body = maskWord(body, word)
	}

	if channel == models.MessageChannelSMS && settings.SpinnerEnabled {
		body = r.spin(body)
	}
	return body
}

// spin replaces every {a|b|c} group with one of its alternatives.
func (r *ContentRenderer) spin(body string) string {
	return spinRe.ReplaceAllStringFunc(body, func(group string) string {
		alts := strings.Split(group[1:len(group)-1], "|")
		return alts[r.rng.Intn(len(alts))]
	})
}

// maskWord replaces case-insensitive occurrences of word with asterisks of
// the same length.
func maskWord(body, word string) string {
	if word == "" {
		return body
	}
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(word))
	if err != nil {
		return body
	}
	return re.ReplaceAllString(body, strings.Repeat("*", len([]rune(word))))
}
