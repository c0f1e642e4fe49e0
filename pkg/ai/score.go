package ai

import (
	"regexp"
	"strconv"
	"strings"
)

// finalScorePattern matches the mandated first line of a grading response,
// e.g. "**Yekun bal: 82/100".
var finalScorePattern = regexp.MustCompile(`^\*\*Yekun bal:\s*(\d+)\s*/`)

// looseScorePattern is the fallback for responses that drop the marker but
// still state a score somewhere, e.g. "Score: 75" or "Qiymət: 60".
var looseScorePattern = regexp.MustCompile(`(?i)(?:^|\P{L})(?:yekun bal|bal|score|qiymət)\s*[::]\s*(\d+)`)

// ExtractScore parses the model's free-text feedback for a numeric score and
// clamps it into [0, maxScore]. It returns nil when no score can be found;
// callers must treat nil as "could not auto-grade", never as zero.
func ExtractScore(feedback string, maxScore int) *int {
	trimmed := strings.TrimSpace(feedback)

	match := finalScorePattern.FindStringSubmatch(trimmed)
	if match == nil {
		match = looseScorePattern.FindStringSubmatch(trimmed)
	}
	if match == nil {
		return nil
	}

	value, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}

	score := clampScore(value, maxScore)
	return &score
}

// clampScore tolerates minor model overshoot instead of discarding an
// otherwise valid grading.
func clampScore(value, maxScore int) int {
	if value < 0 {
		return 0
	}
	if value > maxScore {
		return maxScore
	}
	return value
}
