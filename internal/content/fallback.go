package content

import (
	"fmt"
	"strings"

	"github.com/jonathan/postcraft/internal/types"
)

var fallbackTemplates = map[types.PostType][]string{
	types.PostTypeTextURL: {
		"{theme} is what {company} is all about. {value} Tap the link to see more.",
		"Looking for {industry} done right? {value} Discover {company} at the link.",
		"New from {company}: a closer look at {theme}. {value} Find out more via the link.",
		"Why people choose {company}: {value} Learn more at the link.",
	},
	types.PostTypeTextImage: {
		"{theme}, the {company} way. {value}",
		"A glimpse of {theme} at {company}. {value}",
		"This is {company}. {value}",
		"Made for {audience}. {value}",
	},
	types.PostTypeTextVideo: {
		"Ever wondered how {company} does {theme}? Watch this. {value}",
		"60 seconds of {theme} with {company}. {value}",
		"Stop scrolling: this is what {industry} should look like. {value}",
		"Behind the scenes at {company}. {value}",
	},
}

// fallbackItem builds a deterministic post for a slot from the context alone.
// The same context, type and slot always produce the same post.
func fallbackItem(bc *types.BusinessContext, postType types.PostType, slot int) *postItem {
	templates := fallbackTemplates[postType]
	if len(templates) == 0 {
		templates = fallbackTemplates[types.PostTypeTextURL]
	}
	i := slot - 1

	company := strings.TrimSpace(bc.CompanyName)
	if company == "" {
		company = "our team"
	}
	theme := pick(bc.SuggestedThemes, i, "quality")
	value := pick(bc.ValuePropositions, i, "")
	if value == "" {
		value = pick(bc.CompetitiveAdvantages, i, fmt.Sprintf("Made with care by %s.", company))
	}
	if !strings.HasSuffix(value, ".") && !strings.HasSuffix(value, "!") && !strings.HasSuffix(value, "?") {
		value += "."
	}
	industry := strings.ToLower(strings.TrimSpace(bc.Industry))
	if industry == "" {
		industry = "local business"
	}
	audience := strings.TrimSpace(bc.TargetAudience)
	if audience == "" {
		audience = "you"
	}

	body := strings.NewReplacer(
		"{company}", company,
		"{theme}", strings.ToLower(theme),
		"{value}", value,
		"{industry}", industry,
		"{audience}", lowerFirst(audience),
	).Replace(templates[i%len(templates)])
	body = upperFirst(strings.Join(strings.Fields(body), " "))

	tags := bc.SuggestedTags
	if len(tags) > 5 {
		tags = tags[:5]
	}
	return &postItem{Body: body, Hashtags: append([]string(nil), tags...)}
}

func pick(values []string, i int, def string) string {
	if len(values) == 0 {
		return def
	}
	return strings.TrimSpace(values[i%len(values)])
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToLower(string(r[0])) + string(r[1:])
}
