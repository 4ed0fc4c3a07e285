package chunker

import (
	"unicode"
	"unicode/utf8"
)

// Token is one lexical unit of the normalised text, addressed by its
// byte span. A token is either a maximal run of letters, digits and
// underscores, or a single other non-space rune.
type Token struct {
	// Start is the byte offset of the first rune, inclusive.
	Start int

	// End is the byte offset past the last rune, exclusive.
	End int
}

// Tokenize splits text into tokens with byte spans. The split is
// purely rune-driven and therefore stable across runs and platforms.
func Tokenize(text string) []Token {
	tokens := make([]Token, 0, len(text)/5)

	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])

		if unicode.IsSpace(r) {
			i += size
			continue
		}

		if isWordRune(r) {
			start := i
			i += size
			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if !isWordRune(r) {
					break
				}
				i += size
			}
			tokens = append(tokens, Token{Start: start, End: i})
			continue
		}

		// Punctuation and symbols count one token each.
		tokens = append(tokens, Token{Start: i, End: i + size})
		i += size
	}

	return tokens
}

// CountTokens returns the number of tokens in text.
func CountTokens(text string) int {
	return len(Tokenize(text))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
