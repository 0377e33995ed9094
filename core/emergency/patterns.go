package emergency

import (
	"context"
	"fmt"
	"regexp"
)

type redFlag struct {
	pattern   *regexp.Regexp
	condition string
}

var defaultRedFlags = []redFlag{
	{regexp.MustCompile(`(?i)chest pain.*(breath|breathing)`), "Possible cardiac event"},
	{regexp.MustCompile(`(?i)(can't|cannot|unable).*(breath|breathe)`), "Respiratory emergency"},
	{regexp.MustCompile(`(?i)severe.*headache.*sudden`), "Possible stroke or aneurysm"},
	{regexp.MustCompile(`(?i)blood.*(vomit|cough)`), "Internal bleeding"},
	{regexp.MustCompile(`(?i)unconscious|passed out|faint`), "Loss of consciousness"},
	{regexp.MustCompile(`(?i)suicid|kill.*myself|end.*life`), "Mental health emergency"},
	{regexp.MustCompile(`(?i)seizure|convuls`), "Seizure activity"},
	{regexp.MustCompile(`(?i)paralyz|can't move|numb.*face`), "Possible stroke"},
}

// PatternClassifier matches the case text against a fixed table of red-flag
// phrases. The first matching entry decides the condition.
type PatternClassifier struct {
	flags []redFlag
}

func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{flags: defaultRedFlags}
}

func (c *PatternClassifier) Classify(_ context.Context, caseText string) (Result, error) {
	return c.Match(caseText), nil
}

func (c *PatternClassifier) Match(caseText string) Result {
	for _, flag := range c.flags {
		if match := flag.pattern.FindString(caseText); match != "" {
			return Result{
				IsEmergency: true,
				Condition:   flag.condition,
				Reasoning:   fmt.Sprintf("Matched red-flag phrase %q", match),
			}
		}
	}
	return Result{}
}
