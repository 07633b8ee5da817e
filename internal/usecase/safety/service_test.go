package safety

import (
	"strings"
	"testing"
)

func TestCheck(t *testing.T) {
	svc := New(0)

	tests := []struct {
		name   string
		text   string
		level  RiskLevel
		action Action
	}{
		{"suicidal", "I have been feeling suicidal", RiskHigh, ActionBlock},
		{"want to die", "Sometimes I WANT TO DIE", RiskHigh, ActionBlock},
		{"wish I was dead", "I wish I was dead", RiskHigh, ActionBlock},
		{"self harm", "thinking about self-harm again", RiskHigh, ActionBlock},
		{"overdose", "what if I overdose", RiskHigh, ActionBlock},
		{"hopeless", "everything feels hopeless", RiskMedium, ActionWarning},
		{"cant cope", "I can't cope with work", RiskMedium, ActionWarning},
		{"high wins over medium", "hopeless and I want to die", RiskHigh, ActionBlock},
		{"benign", "How can I manage stress at work?", RiskLow, ActionPass},
		{"word boundary", "I love hanging out with friends", RiskLow, ActionPass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := svc.Check(tt.text)
			if r.RiskLevel != tt.level || r.Action != tt.action {
				t.Errorf("Check(%q) = %s/%s, want %s/%s", tt.text, r.RiskLevel, r.Action, tt.level, tt.action)
			}
		})
	}
}

func TestCheck_Messages(t *testing.T) {
	svc := New(0)

	high := svc.Check("I want to end my life")
	if !strings.Contains(high.Message, "TelefonSeelsorge") || !strings.Contains(high.Message, "988") {
		t.Errorf("crisis message missing resources: %q", high.Message)
	}

	if low := svc.Check("hello"); low.Message != "" {
		t.Errorf("expected no message for low risk, got %q", low.Message)
	}
}

func TestSanitize(t *testing.T) {
	svc := New(10)

	tests := []struct {
		name, in, want string
	}{
		{"control chars", "hi\x00there\x7f", "hithere"},
		{"newlines removed", "line1\nline2", "line1line2"},
		{"c1 controls", "a\u0085b", "ab"},
		{"trim", "   padded   ", "padded"},
		{"truncate", "abcdefghijklmnop", "abcdefghij"},
		{"truncate runes", "ääääääääääää", "ääääääääää"},
		{"empty", "\x01\x02  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_DefaultMaxLength(t *testing.T) {
	long := strings.Repeat("x", 1500)
	if got := New(0).Sanitize(long); len(got) != DefaultMaxLength {
		t.Errorf("len = %d, want %d", len(got), DefaultMaxLength)
	}
}
