package parser

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Stored question texts keep the platform's HTML entities, while the page
// yields decoded runes. The normalizer re-encodes the punctuation the
// platform escapes so search phrases match stored rows.
var mnemonics = strings.NewReplacer(
	"…", "&hellip;",
	"–", "&ndash;",
	"«", "&laquo;",
	"»", "&raquo;",
)

var (
	reLatin        = regexp.MustCompile(`[A-Za-z]`)
	reForeignRuns  = regexp.MustCompile(`[^А-Яа-яЁё\s]+`)
	rePhraseSplit  = regexp.MustCompile(`&hellip;|&nbsp;|\x{00a0}|,`)
	reCyrillicLead = regexp.MustCompile(`^[а-яА-ЯЁё]`)
)

// Normalizer turns question text into search phrases for the answer store,
// strongest candidates first.
type Normalizer struct {
	// MinPhraseRunes is the shortest phrase worth searching; anything at
	// or below it is noise.
	MinPhraseRunes int
	// MinWordRunes bounds single-word fallback candidates the same way.
	MinWordRunes int
	// MaxCandidates caps the result.
	MaxCandidates int
	// SpamWords are candidates dropped by exact match. The platform leads
	// negated questions with a bare "Неверно", which is worthless as a
	// needle; longer phrases containing it stay.
	SpamWords []string
}

// NewNormalizer returns a normalizer with the platform defaults.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		MinPhraseRunes: 4,
		MinWordRunes:   5,
		MaxCandidates:  5,
		SpamWords:      []string{"Неверно"},
	}
}

// Candidates builds the ranked phrase list for a question. rawHTML is the
// inner HTML of the question node, plain its visible text. The result is
// deterministic for identical input.
func (n *Normalizer) Candidates(rawHTML, plain string) []string {
	var out []string

	// A run of non-Cyrillic text (a term, a formula, a code fragment) is
	// the most selective needle a question can offer.
	if reLatin.MatchString(plain) {
		if foreign := strings.TrimSpace(strings.Join(reForeignRuns.FindAllString(plain, -1), " ")); foreign != "" {
			out = append(out, foreign)
		}
	}

	clean := mnemonics.Replace(strings.ReplaceAll(plain, "\n", " "))
	out = append(out, n.splitPhrases(clean, false)...)

	raw := mnemonics.Replace(strings.ReplaceAll(rawHTML, "\n", " "))
	out = append(out, n.splitPhrases(raw, true)...)

	for _, word := range strings.Fields(clean) {
		if utf8.RuneCountInString(word) > n.MinWordRunes {
			out = append(out, word)
		}
	}

	out = n.dropSpam(out)
	if len(out) > n.MaxCandidates {
		out = out[:n.MaxCandidates]
	}
	return out
}

// splitPhrases cuts text on the platform's phrase boundaries and keeps the
// informative fragments, longest first. Fragments taken from raw HTML must
// start with a Cyrillic letter, otherwise they are markup.
func (n *Normalizer) splitPhrases(text string, cyrillicOnly bool) []string {
	var phrases []string
	for _, p := range rePhraseSplit.Split(text, -1) {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) <= n.MinPhraseRunes {
			continue
		}
		if cyrillicOnly && !reCyrillicLead.MatchString(p) {
			continue
		}
		phrases = append(phrases, p)
	}
	sort.SliceStable(phrases, func(i, j int) bool {
		return utf8.RuneCountInString(phrases[i]) > utf8.RuneCountInString(phrases[j])
	})
	return phrases
}

func (n *Normalizer) dropSpam(candidates []string) []string {
	kept := candidates[:0]
	for _, c := range candidates {
		spam := false
		for _, s := range n.SpamWords {
			if c == s {
				spam = true
				break
			}
		}
		if !spam {
			kept = append(kept, c)
		}
	}
	return kept
}
