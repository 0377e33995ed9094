// Package urgency turns a synthesis statement into a discrete urgency
// verdict.
//
// Classification first looks for an explicit marker line such as
// "URGENCY: HIGH". When no marker is present it falls back to phrase groups,
// checked most severe first. Text that matches nothing is LOW. Classify never
// fails and always returns the same verdict for the same text.
package urgency

import (
	"regexp"
	"strings"
)

type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Verdict is what the observer is shown for the consultation outcome.
type Verdict struct {
	Level   Level  `json:"level"`
	Color   string `json:"color"`
	Message string `json:"message"`
}

var verdicts = map[Level]Verdict{
	LevelCritical: {Level: LevelCritical, Color: "#ff4444", Message: "ER immediately"},
	LevelHigh:     {Level: LevelHigh, Color: "#ff9944", Message: "Urgent care today"},
	LevelMedium:   {Level: LevelMedium, Color: "#ffcc00", Message: "Doctor within 24 hours"},
	LevelLow:      {Level: LevelLow, Color: "#44cc44", Message: "Monitor 24-48 hours"},
}

// ForLevel returns the verdict for a level, LOW for anything unknown.
func ForLevel(level Level) Verdict {
	if verdict, ok := verdicts[level]; ok {
		return verdict
	}
	return verdicts[LevelLow]
}

// ParseLevel maps a token to a level, ignoring case and surrounding space.
func ParseLevel(token string) (Level, bool) {
	switch Level(strings.ToUpper(strings.TrimSpace(token))) {
	case LevelLow:
		return LevelLow, true
	case LevelMedium:
		return LevelMedium, true
	case LevelHigh:
		return LevelHigh, true
	case LevelCritical:
		return LevelCritical, true
	}
	return "", false
}

// markerPattern matches markers like "URGENCY: HIGH", "**Urgency Level** - critical"
// or "urgency = low" anywhere in the text. The first marker wins.
var markerPattern = regexp.MustCompile(`(?i)\burgency(?:\s+level)?[\s*_]*[:=\-–]\s*[*_]*\s*(low|medium|high|critical)\b`)

type keywordGroup struct {
	level   Level
	phrases []string
	pattern *regexp.Regexp
}

// Ordered most severe first, first match wins.
var keywordGroups = []keywordGroup{
	{level: LevelCritical, phrases: []string{
		"call 911",
		"call emergency services",
		"emergency services",
		"emergency room",
		"emergency department",
		"er now",
		"er immediately",
		"go to the er",
		"ambulance",
	}},
	{level: LevelHigh, phrases: []string{
		"urgent care",
		"seen today",
		"same-day",
		"same day",
		"today",
		"within a few hours",
	}},
	{level: LevelMedium, phrases: []string{
		"within 24 hours",
		"within 24 hrs",
		"within 24h",
		"within a day",
		"next 24 hours",
		"doctor tomorrow",
	}},
}

func init() {
	for i, group := range keywordGroups {
		quoted := make([]string, 0, len(group.phrases))
		for _, phrase := range group.phrases {
			quoted = append(quoted, regexp.QuoteMeta(phrase))
		}
		keywordGroups[i].pattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}
}

// Classify derives the urgency verdict for a synthesis text.
func Classify(text string) Verdict {
	if level, ok := markedLevel(text); ok {
		return ForLevel(level)
	}
	return ForLevel(keywordLevel(text))
}

func markedLevel(text string) (Level, bool) {
	match := markerPattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return ParseLevel(match[1])
}

func keywordLevel(text string) Level {
	for _, group := range keywordGroups {
		if group.pattern.MatchString(text) {
			return group.level
		}
	}
	return LevelLow
}
