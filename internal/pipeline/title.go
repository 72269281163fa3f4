package pipeline

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"wordcraft/internal/domain"
)

var toolTitles = map[domain.ToolKind]string{
	domain.ToolHumanizer:  "Humanized Text",
	domain.ToolPlagiarism: "Plagiarism Detection",
	domain.ToolAIDetector: "AI Detection",
}

// ToolName is the display name used in default document titles.
func ToolName(tool domain.ToolKind) string {
	if name, ok := toolTitles[tool]; ok {
		return name
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(tool), "-", " "))
}

var dateLocales = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.German,
	language.French,
	language.Indonesian,
	language.Japanese,
}

var dateLayouts = map[language.Tag]string{
	language.AmericanEnglish: "1/2/2006",
	language.BritishEnglish:  "02/01/2006",
	language.German:          "2.1.2006",
	language.French:          "02/01/2006",
	language.Indonesian:      "2/1/2006",
	language.Japanese:        "2006/1/2",
}

var dateMatcher = language.NewMatcher(dateLocales)

// FormatDate renders t as a short numeric date for locale. Unknown locales
// fall back to the American layout.
func FormatDate(t time.Time, locale language.Tag) string {
	_, idx, conf := dateMatcher.Match(locale)
	layout := dateLayouts[language.AmericanEnglish]
	if conf != language.No {
		layout = dateLayouts[dateLocales[idx]]
	}
	return t.Format(layout)
}

// DefaultTitle is "<ToolName> <localized-date>".
func DefaultTitle(tool domain.ToolKind, t time.Time, locale language.Tag) string {
	return ToolName(tool) + " " + FormatDate(t, locale)
}

// ParseLocale parses a BCP 47 tag or an Accept-Language style list, falling
// back to American English.
func ParseLocale(s string) language.Tag {
	s = strings.TrimSpace(s)
	if s == "" {
		return language.AmericanEnglish
	}
	if tags, _, err := language.ParseAcceptLanguage(s); err == nil && len(tags) > 0 && tags[0] != language.Und {
		return tags[0]
	}
	return language.AmericanEnglish
}
