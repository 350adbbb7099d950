package service

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxBillSlugLength bounds bill slugs, which derive from long titles
const MaxBillSlugLength = 180

var icelandicLetters = strings.NewReplacer(
	"þ", "th", "Þ", "th",
	"ð", "d", "Ð", "d",
	"æ", "ae", "Æ", "ae",
	"ß", "ss",
)

// Slugify turns a name or title into a lower-case ASCII slug. Icelandic
// letters are transliterated, other diacritics dropped, and every run of
// other characters becomes a single dash.
func Slugify(s string) string {
	s = icelandicLetters.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)

	var b strings.Builder
	dash := false
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// TruncateSlug cuts a slug to at most n bytes without a trailing dash
func TruncateSlug(slug string, n int) string {
	if len(slug) <= n {
		return slug
	}
	return strings.TrimRight(slug[:n], "-")
}

// uniqueSlug returns base, or base with the first free -N suffix. With
// maxLen above 0 base is shortened so the suffixed slug stays within
// maxLen bytes. taken must exclude the entity being reconciled so it keeps
// its own slug.
func uniqueSlug(ctx context.Context, base string, maxLen int, taken func(ctx context.Context, slug string) (bool, error)) (string, error) {
	if base == "" {
		base = "n-a"
	}
	if maxLen > 0 {
		base = TruncateSlug(base, maxLen)
	}
	slug := base
	for i := 1; ; i++ {
		used, err := taken(ctx, slug)
		if err != nil {
			return "", err
		}
		if !used {
			return slug, nil
		}
		suffix := "-" + strconv.Itoa(i)
		stem := base
		if maxLen > 0 {
			stem = TruncateSlug(base, maxLen-len(suffix))
		}
		slug = stem + suffix
	}
}
