package prompt

import (
	"fmt"
	"strings"
)

// Language selects the output language and script rules for generated text.
type Language string

const (
	Korean   Language = "ko"
	English  Language = "en"
	Japanese Language = "ja"
)

// Languages lists supported languages in display order.
var Languages = []Language{Korean, English, Japanese}

// ParseLanguage accepts a language code, case-insensitively.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Languages {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown language %q", s)
}

// scriptRule is embedded in every instruction. Models mix scripts freely
// unless told not to (Hanja in Korean output is the usual offender).
func (l Language) scriptRule() string {
	switch l {
	case Korean:
		return "Write every string value in Korean using Hangul only. Do not use Hanja, Chinese characters, Japanese kana or mixed scripts. Proper nouns with no Korean form may stay in Latin letters."
	case Japanese:
		return "Write every string value in natural Japanese. Do not mix in Korean Hangul or Simplified Chinese."
	default:
		return "Write every string value in plain English. Do not mix in other scripts."
	}
}

// Name is the English name of the language, used inside instructions.
func (l Language) Name() string {
	switch l {
	case Korean:
		return "Korean"
	case Japanese:
		return "Japanese"
	default:
		return "English"
	}
}
