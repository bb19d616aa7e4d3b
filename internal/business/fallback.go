package business

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/jonathan/postcraft/internal/types"
)

// FallbackConfidence is the confidence assigned to contexts derived without the service.
const FallbackConfidence = 0.2

var (
	wordPattern     = regexp.MustCompile(`[\p{L}][\p{L}'-]{2,}`)
	sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]`)
	hexColorPattern = regexp.MustCompile(`#[0-9A-Fa-f]{6}\b`)
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "our": true, "you": true, "your": true,
	"are": true, "was": true, "were": true, "this": true, "that": true, "from": true, "have": true,
	"has": true, "had": true, "will": true, "can": true, "all": true, "not": true, "but": true,
	"they": true, "their": true, "them": true, "its": true, "it's": true, "we're": true, "who": true,
	"what": true, "when": true, "where": true, "which": true, "while": true, "about": true,
	"more": true, "most": true, "than": true, "then": true, "into": true, "onto": true, "over": true,
	"just": true, "also": true, "been": true, "being": true, "every": true, "each": true, "very": true,
	"out": true, "off": true, "one": true, "two": true, "new": true, "get": true, "got": true,
	"make": true, "made": true, "like": true, "use": true, "used": true, "any": true, "some": true,
	"such": true, "only": true, "own": true, "same": true, "both": true, "there": true, "here": true,
	"how": true, "why": true, "these": true, "those": true, "would": true, "could": true, "should": true,
	"shop": true, "home": true, "menu": true, "cart": true, "login": true, "sign": true, "page": true,
	"website": true, "com": true, "www": true, "https": true, "http": true, "copyright": true,
	"rights": true, "reserved": true, "privacy": true, "policy": true, "terms": true,
}

// industryKeywords maps an industry to words that signal it.
var industryKeywords = []struct {
	industry string
	words    []string
}{
	{"Food & Beverage", []string{"coffee", "roaster", "roastery", "espresso", "bakery", "bread", "cafe", "restaurant", "kitchen", "menu", "tea", "wine", "beer", "brewery", "chocolate", "food"}},
	{"Beauty & Personal Care", []string{"skincare", "skin", "beauty", "salon", "cosmetics", "makeup", "hair", "spa", "nail"}},
	{"Fashion & Apparel", []string{"clothing", "apparel", "fashion", "dress", "shoes", "jewelry", "boutique", "wear"}},
	{"Health & Fitness", []string{"fitness", "gym", "yoga", "wellness", "health", "training", "nutrition", "pilates"}},
	{"Home & Garden", []string{"furniture", "decor", "garden", "plants", "candles", "ceramics", "pottery", "interior"}},
	{"Technology", []string{"software", "app", "saas", "platform", "cloud", "developer", "data", "ai", "api"}},
	{"Professional Services", []string{"consulting", "agency", "accounting", "legal", "law", "marketing", "design", "studio"}},
	{"Education", []string{"course", "courses", "school", "tutoring", "learning", "classes", "workshop"}},
	{"Travel & Hospitality", []string{"hotel", "travel", "tours", "resort", "booking", "vacation", "inn"}},
	{"Pets", []string{"pet", "pets", "dog", "dogs", "cat", "cats", "grooming", "vet"}},
}

// Fallback derives a context from raw material without the generative service.
// The result is deterministic for a given input and always flagged Fallback.
func Fallback(corpus string, sources []types.Source, titles []string) *types.BusinessContext {
	keywords := topKeywords(corpus, 8)
	industry := detectIndustry(corpus)

	themes := make([]string, 0, 6)
	for _, k := range keywords {
		if len(themes) == 4 {
			break
		}
		themes = append(themes, titleCase(k))
	}
	themes = append(themes, "Customer stories", "Behind the scenes")

	tags := make([]string, 0, len(keywords)+1)
	for _, k := range keywords {
		tags = append(tags, strings.ReplaceAll(strings.ToLower(k), "'", ""))
	}

	audience := "People looking for " + strings.ToLower(industry)
	if len(keywords) > 0 {
		audience = "People interested in " + strings.Join(keywords[:min(2, len(keywords))], " and ")
	}

	ctx := &types.BusinessContext{
		CompanyName:       guessCompanyName(corpus, sources, titles),
		Industry:          industry,
		TargetAudience:    audience,
		BrandVoice:        "Friendly, clear and approachable",
		BrandColors:       types.UniqueStrings(hexColorPattern.FindAllString(corpus, 3)),
		ValuePropositions: leadSentences(corpus, 3),
		SuggestedThemes:   types.UniqueStrings(themes),
		SuggestedTags:     normalizeTags(tags),
		ConfidenceScore:   FallbackConfidence,
		Sources:           sources,
		Fallback:          true,
	}
	ctx.CompetitiveAdvantages = []string{}
	return ctx
}

// topKeywords returns the n most frequent non-stopword words, ties broken by first appearance.
func topKeywords(text string, n int) []string {
	type entry struct {
		word  string
		count int
		first int
	}
	counts := map[string]*entry{}
	for i, w := range wordPattern.FindAllString(text, -1) {
		key := strings.ToLower(strings.Trim(w, "'-"))
		if len(key) < 3 || stopwords[key] {
			continue
		}
		if e, ok := counts[key]; ok {
			e.count++
		} else {
			counts[key] = &entry{word: key, count: 1, first: i}
		}
	}

	entries := make([]*entry, 0, len(counts))
	for _, e := range counts {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].first < entries[j].first
	})

	out := make([]string, 0, n)
	for _, e := range entries {
		if len(out) == n {
			break
		}
		out = append(out, e.word)
	}
	return out
}

func detectIndustry(text string) string {
	words := map[string]int{}
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		words[w]++
	}

	best, bestScore := "", 0
	for _, ik := range industryKeywords {
		score := 0
		for _, w := range ik.words {
			score += words[w]
		}
		if score > bestScore {
			best, bestScore = ik.industry, score
		}
	}
	if best == "" {
		return "Small Business"
	}
	return best
}

// guessCompanyName prefers a page title, then the first URL's host, then the opening words.
func guessCompanyName(corpus string, sources []types.Source, titles []string) string {
	for _, t := range titles {
		for _, sep := range []string{" | ", " - ", " – ", " — ", ": "} {
			if idx := strings.Index(t, sep); idx > 0 {
				t = t[:idx]
			}
		}
		if t = strings.TrimSpace(t); t != "" && len(t) <= 60 {
			return t
		}
	}

	for _, s := range sources {
		if s.Kind != types.SourceURL {
			continue
		}
		if u, err := url.Parse(s.Ref); err == nil && u.Hostname() != "" {
			host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
			label := strings.Split(host, ".")[0]
			if label != "" {
				return titleCase(strings.NewReplacer("-", " ", "_", " ").Replace(label))
			}
		}
	}

	// A run of capitalized words near the start usually names the business
	var name []string
	for _, w := range strings.Fields(firstLine(corpus)) {
		w = strings.Trim(w, ",.!?:;\"'()")
		if w == "" {
			continue
		}
		if r := []rune(w)[0]; unicode.IsUpper(r) {
			name = append(name, w)
			if len(name) == 4 {
				break
			}
			continue
		}
		if len(name) > 0 {
			break
		}
	}
	if len(name) > 0 {
		return strings.Join(name, " ")
	}
	return "Our Business"
}

func leadSentences(text string, n int) []string {
	out := []string{}
	for _, s := range sentencePattern.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		if len(s) < 20 || len(s) > 200 {
			continue
		}
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
