package fetcher

import (
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// RawArticle is a provider-native payload, optionally tagged with the
// sub-feed it came from. It exists only during a fetch cycle; the persisted
// article keeps a copy as its raw payload.
type RawArticle map[string]any

// String walks nested objects and returns the string value at the given key
// path, or "" when any segment is missing or not a string.
func (r RawArticle) String(keys ...string) string {
	var current any = map[string]any(r)
	for _, key := range keys {
		obj, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current = obj[key]
	}
	value, _ := current.(string)
	return value
}

// List returns the array value at the given key path as raw articles.
func (r RawArticle) List(keys ...string) []RawArticle {
	var current any = map[string]any(r)
	for _, key := range keys {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = obj[key]
	}
	return rawItems(current)
}

func rawItems(value any) []RawArticle {
	list, ok := value.([]any)
	if !ok {
		return nil
	}

	items := make([]RawArticle, 0, len(list))
	for _, entry := range list {
		if obj, ok := entry.(map[string]any); ok {
			items = append(items, RawArticle(obj))
		}
	}
	return items
}

// DeduplicateBy drops later items sharing a natural key with an earlier one;
// the first occurrence wins. Items with an empty key are dropped entirely.
func DeduplicateBy(items []RawArticle, key func(RawArticle) string) []RawArticle {
	seen := map[string]struct{}{}
	deduped := make([]RawArticle, 0, len(items))
	for _, item := range items {
		k := key(item)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		deduped = append(deduped, item)
	}
	return deduped
}

var timeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses a provider timestamp, falling back to the given instant
// when the value is empty or unparsable.
func ParseTime(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	for _, format := range timeFormats {
		if parsed, err := time.Parse(format, value); err == nil {
			return parsed
		}
	}
	return fallback
}

// SyntheticID builds a unique in-batch identifier for provider items that
// carry no natural id.
func SyntheticID(prefix string) string {
	return prefix + uuid.NewString()
}

// Capitalize upper-cases the first rune of a section slug for display.
func Capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// TextExcerpt strips markup from an HTML fragment and truncates the plain
// text to limit runes, appending an ellipsis marker when it was cut.
func TextExcerpt(body string, limit int) string {
	if body == "" {
		return ""
	}

	text := body
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
		text = doc.Text()
	}
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if limit > 0 && len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return text
}
