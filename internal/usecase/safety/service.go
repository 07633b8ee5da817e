// Package safety screens user messages for crisis language before retrieval.
package safety

import (
	"regexp"
	"strings"
)

// RiskLevel grades a message.
type RiskLevel string

// Risk levels.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Action tells the chat flow how to proceed.
type Action string

// Actions.
const (
	ActionPass    Action = "pass"
	ActionWarning Action = "warning"
	ActionBlock   Action = "block"
)

// DefaultMaxLength is the message length kept by Sanitize.
const DefaultMaxLength = 1000

// Result is the outcome of a safety check. Message is empty for low risk.
type Result struct {
	RiskLevel RiskLevel
	Action    Action
	Message   string
}

var highRisk = compile(
	`\b(suicid(e|al)|kill myself|end my life|take my life)\b`,
	`\b(self.?harm|self.?injury|cutting|hurting myself)\b`,
	`\b(want to die|wish i was dead|better off dead)\b`,
	`\b(overdose|poison|hang|jump off)\b`,
)

var mediumRisk = compile(
	`\b(hopeless|no point|nothing matters)\b`,
	`\b(can't go on|can't cope|giving up)\b`,
)

const warningMessage = "If you're having thoughts of self-harm, please reach out to a mental health professional or crisis helpline."

// CrisisMessage lists crisis resources for Germany and elsewhere.
const CrisisMessage = "I'm concerned about your safety. Please reach out for immediate help:\n" +
	"If you're in Germany:\n" +
	"- TelefonSeelsorge: 0800 111 0 111, 0800 111 0 222, or 116 123\n" +
	"- Online chat: https://online.telefonseelsorge.de\n" +
	"If you're outside Germany:\n" +
	"- 988 Suicide & Crisis Lifeline\n" +
	"- Crisis Text Line: Text HOME to 741741\n" +
	"You don't have to go through this alone. Professional help is available."

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// Service checks and sanitizes user text. The zero value is not usable; call New.
type Service struct {
	maxLength int
}

// New creates a Service. maxLength <= 0 uses DefaultMaxLength.
func New(maxLength int) *Service {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Service{maxLength: maxLength}
}

// Check grades text. High-risk patterns take precedence over medium-risk ones.
func (s *Service) Check(text string) Result {
	if matchAny(highRisk, text) {
		return Result{RiskLevel: RiskHigh, Action: ActionBlock, Message: CrisisMessage}
	}
	if matchAny(mediumRisk, text) {
		return Result{RiskLevel: RiskMedium, Action: ActionWarning, Message: warningMessage}
	}
	return Result{RiskLevel: RiskLow, Action: ActionPass}
}

// Sanitize drops C0/C1 control characters, trims and truncates to the configured rune count.
func (s *Service) Sanitize(text string) string {
	clean := strings.Map(func(r rune) rune {
		if r <= 0x1F || (r >= 0x7F && r <= 0x9F) {
			return -1
		}
		return r
	}, text)
	clean = strings.TrimSpace(clean)

	if r := []rune(clean); len(r) > s.maxLength {
		clean = string(r[:s.maxLength])
	}
	return clean
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
