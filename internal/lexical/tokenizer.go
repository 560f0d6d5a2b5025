package lexical

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// stopWords are dropped during tokenization
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"how": {}, "in": {}, "is": {}, "it": {}, "its": {}, "of": {},
	"on": {}, "or": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"was": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"who": {}, "why": {}, "will": {}, "with": {}, "you": {}, "your": {},
}

// domainTerms are framework and API names indexed verbatim so stemming
// never bends them into a different surface form ("swiftui" must not
// become "swiftu").
var domainTerms = map[string]struct{}{
	"swiftui": {}, "uikit": {}, "appkit": {}, "combine": {},
	"swift": {}, "kotlin": {}, "rust": {}, "golang": {},
	"ios": {}, "macos": {}, "watchos": {}, "visionos": {},
	"async": {}, "await": {}, "actor": {}, "actors": {},
	"grpc": {}, "graphql": {}, "rest": {}, "websocket": {},
	"kubernetes": {}, "docker": {}, "wasm": {}, "webassembly": {},
	"react": {}, "vue": {}, "angular": {}, "nodejs": {},
	"coredata": {}, "swiftdata": {}, "observation": {}, "xcode": {},
	"api": {}, "cli": {}, "sdk": {}, "llm": {}, "mcp": {},
}

// Tokenize normalizes text into search terms: lower-case, punctuation
// stripped, hyphen-joined compounds split into sub-tokens, stop words
// and single-character tokens dropped, remaining tokens stemmed except
// for the domain-term allow list. Indexing and query processing share
// this function so stemmed forms line up.
func Tokenize(text string) []string {
	var tokens []string
	for _, raw := range splitWords(text) {
		for _, part := range strings.Split(raw, "-") {
			tok := normalizeToken(part)
			if tok != "" {
				tokens = append(tokens, tok)
			}
		}
	}
	return tokens
}

// splitWords lowercases and cuts text on anything that is not a letter,
// digit, or internal hyphen
func splitWords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	for i, w := range words {
		words[i] = strings.Trim(w, "-")
	}
	return words
}

func normalizeToken(tok string) string {
	if len(tok) < 2 {
		return ""
	}
	if _, stop := stopWords[tok]; stop {
		return ""
	}
	if _, keep := domainTerms[tok]; keep {
		return tok
	}
	stemmed := english.Stem(tok, false)
	if stemmed == "" {
		return tok
	}
	return stemmed
}
