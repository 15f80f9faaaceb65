package ticket

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"mercator-hq/auditor/pkg/config"
)

// BuildContext assembles the audit context from a ticket and its comments.
// Comments are ordered oldest first and joined with "\n"; the text is NFC
// normalized so keyword matching sees one form of accented characters.
func BuildContext(t *Ticket, comments []Comment, fields config.TicketFieldsConfig) *Context {
	ordered := make([]Comment, len(comments))
	copy(ordered, comments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	bodies := make([]string, len(ordered))
	for i, c := range ordered {
		bodies[i] = c.Text()
	}
	text := norm.NFC.String(strings.Join(bodies, "\n"))

	id := strconv.FormatInt(t.ID, 10)
	booking := t.Field(fields.BookingRef)
	if booking == "" {
		booking = id
	}

	return &Context{
		TicketID:          id,
		BookingRef:        booking,
		Subject:           norm.NFC.String(strings.TrimSpace(t.Subject)),
		ExperienceType:    norm.NFC.String(t.Field(fields.ExperienceType)),
		ConversationText:  text,
		ConversationCount: len(ordered),
		ObservedAction:    ExtractObservedAction(text),
	}
}

// ExtractObservedAction returns the sentence holding the first
// case-insensitive "refund", or "" when the word does not appear. The
// sentence runs from just after the previous terminator (. ! ? or newline)
// through the next terminator, so qualifiers like "partial" or "full" ahead
// of the word are kept. A period between two digits, as in $12.50, does not
// end a sentence.
func ExtractObservedAction(text string) string {
	idx := indexFold(text, "refund")
	if idx < 0 {
		return ""
	}

	start := 0
	for i := idx - 1; i >= 0; i-- {
		if isSentenceEnd(text, i) {
			start = i + 1
			break
		}
	}

	end := len(text)
	for i := idx; i < len(text); i++ {
		if isSentenceEnd(text, i) {
			end = i + 1
			if text[i] == '\n' {
				end = i
			}
			break
		}
	}

	return strings.TrimSpace(text[start:end])
}

// isSentenceEnd reports whether text[i] terminates a sentence.
func isSentenceEnd(text string, i int) bool {
	switch text[i] {
	case '!', '?', '\n':
		return true
	case '.':
		return !(i > 0 && i+1 < len(text) && isDigit(text[i-1]) && isDigit(text[i+1]))
	}
	return false
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

// indexFold is a byte index of needle in s ignoring ASCII case. needle must
// be lower-case ASCII.
func indexFold(s, needle string) int {
	n := len(needle)
	for i := 0; i+n <= len(s); i++ {
		match := true
		for j := 0; j < n; j++ {
			c := s[i+j]
			if 'A' <= c && c <= 'Z' {
				c += 'a' - 'A'
			}
			if c != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
