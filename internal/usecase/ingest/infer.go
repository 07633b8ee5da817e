package ingest

import "strings"

// General is the topic of files whose name carries no known keyword.
const General = "general"

var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"depression", []string{"depression", "depressive"}},
	{"anxiety", []string{"anxiety", "anxious"}},
	{"stress", []string{"stress", "stressed"}},
	{"cbt", []string{"cbt", "cognitive", "behavioral"}},
	{"breathing", []string{"breathing", "breath", "breathinig"}},
	{"visualization", []string{"visualization", "visualisation"}},
	{"therapy", []string{"therapy", "therapist", "therapeutic"}},
}

// TopicFromFilename picks the first topic whose keyword appears in name.
func TopicFromFilename(name string) string {
	lower := strings.ToLower(name)
	for _, tk := range topicKeywords {
		if containsAny(lower, tk.keywords...) {
			return tk.topic
		}
	}
	return General
}

// DocumentTypeFromFilename classifies a file as guide, guideline, technique or resource.
func DocumentTypeFromFilename(name string) string {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "guide", "manual"):
		return "guide"
	case containsAny(lower, "treatment", "management"):
		return "guideline"
	case strings.Contains(lower, "how-to"):
		return "technique"
	case containsAny(lower, "978924", "who", "nice"):
		return "guideline"
	default:
		return "resource"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
