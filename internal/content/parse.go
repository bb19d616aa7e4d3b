package content

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/postcraft/internal/llm"
	"github.com/jonathan/postcraft/internal/schemas"
)

var (
	numberedItem   = regexp.MustCompile(`(?m)^\s*\**(\d+)[.)]\**\s*`)
	inlineHashtags = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
)

// postItem mirrors the post_item schema.
type postItem struct {
	Body             string            `json:"body"`
	Hashtags         []string          `json:"hashtags"`
	ProductURL       string            `json:"product_url"`
	PlatformVariants map[string]string `json:"platform_variants"`
}

// parseResult holds the items keyed by their slot number plus per-slot failures.
type parseResult struct {
	items  map[int]*postItem
	errors map[int]error
}

// parseItems splits a numbered-list response. Items numbered outside 1..count and
// repeated numbers after the first are ignored.
func parseItems(response string, count int) parseResult {
	res := parseResult{items: map[int]*postItem{}, errors: map[int]error{}}
	response = llm.CleanJSONBlock(response)

	locs := numberedItem.FindAllStringSubmatchIndex(response, -1)
	for i, loc := range locs {
		slot, err := strconv.Atoi(response[loc[2]:loc[3]])
		if err != nil || slot < 1 || slot > count {
			continue
		}
		if _, seen := res.items[slot]; seen {
			continue
		}
		if _, seen := res.errors[slot]; seen {
			continue
		}

		end := len(response)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		item, err := parseItem(slot, response[loc[1]:end])
		if err != nil {
			res.errors[slot] = err
			continue
		}
		res.items[slot] = item
	}
	return res
}

// parseItem decodes one item. Plain prose without a JSON object is accepted as the body.
func parseItem(slot int, segment string) (*postItem, error) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return nil, &ParseError{Slot: slot, Message: "empty item"}
	}

	if !strings.Contains(segment, "{") {
		body := strings.TrimSpace(inlineHashtags.ReplaceAllString(segment, ""))
		if body == "" {
			return nil, &ParseError{Slot: slot, Message: "item has no text"}
		}
		item := &postItem{Body: body}
		for _, m := range inlineHashtags.FindAllStringSubmatch(segment, -1) {
			item.Hashtags = append(item.Hashtags, m[1])
		}
		return item, nil
	}

	doc := llm.ExtractJSONObject(segment)
	if err := schemas.Validate(schemas.PostItem, []byte(doc)); err != nil {
		return nil, &ParseError{Slot: slot, Message: "item does not match the post schema", Cause: err}
	}

	var item postItem
	if err := json.Unmarshal([]byte(doc), &item); err != nil {
		return nil, &ParseError{Slot: slot, Message: "failed to decode item", Cause: err}
	}
	item.Body = strings.TrimSpace(item.Body)
	if item.Body == "" {
		return nil, &ParseError{Slot: slot, Message: "item body is empty"}
	}
	return &item, nil
}
