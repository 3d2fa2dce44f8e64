// Package wallet implements the local HD wallet provider: a BIP39 mnemonic
// kept in an age-encrypted keystore, Ethereum accounts derived on
// m/44'/60'/0'/0/i, and an EIP-1193 style provider that signs transactions
// itself and forwards everything else to a node.
package wallet

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// MaxTypoDistance is the maximum Levenshtein distance to consider a suggestion.
const MaxTypoDistance = 2

var (
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)
	bulletListRegex   = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)

	//nolint:gochecknoglobals // built once from the BIP39 English list
	wordIndex = func() map[string]struct{} {
		m := make(map[string]struct{}, 2048)
		for _, w := range bip39.GetWordList() {
			m[w] = struct{}{}
		}
		return m
	}()
)

// GenerateMnemonic creates a new 12 or 24 word BIP39 mnemonic.
func GenerateMnemonic(wordCount int) (string, error) {
	var bitSize int
	switch wordCount {
	case 12:
		bitSize = 128
	case 24:
		bitSize = 256
	default:
		return "", cferr.WithDetails(cferr.ErrInvalidInput, map[string]string{
			"words": fmt.Sprint(wordCount),
			"hint":  "word count must be 12 or 24",
		})
	}

	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// ValidateMnemonic checks word count, words and checksum. Misspelled words
// are reported in the error's suggestion.
func ValidateMnemonic(mnemonic string) error {
	normalized := NormalizeMnemonicInput(mnemonic)
	words := strings.Fields(normalized)
	if len(words) != 12 && len(words) != 24 {
		return cferr.WithDetails(cferr.ErrInvalidMnemonic, map[string]string{
			"words": fmt.Sprint(len(words)),
		})
	}

	if typos := DetectTypos(normalized); len(typos) > 0 {
		return cferr.WithSuggestion(cferr.ErrInvalidMnemonic, FormatTypoSuggestions(typos))
	}

	if !bip39.IsMnemonicValid(normalized) {
		return cferr.WithDetails(cferr.ErrInvalidMnemonic, map[string]string{
			"reason": "checksum mismatch",
		})
	}
	return nil
}

// NormalizeMnemonicInput lowercases the phrase, strips list numbering,
// bullets and commas, and collapses whitespace, so phrases pasted from
// notes or password managers validate.
func NormalizeMnemonicInput(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// MnemonicToSeed converts a valid mnemonic to its 64-byte BIP39 seed.
// Callers should zero the seed once keys are derived.
func MnemonicToSeed(mnemonic, passphrase string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(NormalizeMnemonicInput(mnemonic), passphrase)
	if err != nil {
		return nil, cferr.WithCause(cferr.ErrInvalidMnemonic, err)
	}
	return seed, nil
}

// IsValidWord checks if a word is in the BIP39 English word list.
func IsValidWord(word string) bool {
	_, ok := wordIndex[strings.ToLower(word)]
	return ok
}

// TypoInfo describes a word that is not in the BIP39 list.
type TypoInfo struct {
	Index      int // 0-based position in the phrase
	Word       string
	Suggestion string // closest BIP39 word, empty if none is close enough
	Distance   int
}

// SuggestWord finds the closest BIP39 word to input, or "" when nothing is
// within MaxTypoDistance.
func SuggestWord(input string) string {
	input = strings.ToLower(input)
	if IsValidWord(input) {
		return input
	}

	best, bestDist := "", math.MaxInt
	for _, word := range bip39.GetWordList() {
		if d := levenshtein.ComputeDistance(input, word); d < bestDist {
			best, bestDist = word, d
		}
	}
	if bestDist <= MaxTypoDistance {
		return best
	}
	return ""
}

// DetectTypos returns every word of mnemonic that is not a BIP39 word.
func DetectTypos(mnemonic string) []TypoInfo {
	var typos []TypoInfo
	for i, word := range strings.Fields(NormalizeMnemonicInput(mnemonic)) {
		if IsValidWord(word) {
			continue
		}
		info := TypoInfo{Index: i, Word: word, Suggestion: SuggestWord(word)}
		if info.Suggestion != "" {
			info.Distance = levenshtein.ComputeDistance(word, info.Suggestion)
		}
		typos = append(typos, info)
	}
	return typos
}

// FormatTypoSuggestions renders typos one per line with 1-based positions.
func FormatTypoSuggestions(typos []TypoInfo) string {
	lines := make([]string, 0, len(typos))
	for _, typo := range typos {
		if typo.Suggestion != "" {
			lines = append(lines, fmt.Sprintf("Word %d: '%s' - did you mean '%s'?", typo.Index+1, typo.Word, typo.Suggestion))
		} else {
			lines = append(lines, fmt.Sprintf("Word %d: '%s' is not a valid BIP39 word", typo.Index+1, typo.Word))
		}
	}
	return strings.Join(lines, "\n")
}
