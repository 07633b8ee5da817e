// Package topic defines the closed set of therapy topics used for ranking.
package topic

// Label is a therapy topic. The zero value is None.
type Label string

// Topic labels.
const (
	None       Label = ""
	Depression Label = "depression"
	Anxiety    Label = "anxiety"
	Stress     Label = "stress"
	Breathing  Label = "breathing"
	CBT        Label = "cbt"
)

// All lists the known topics in classifier priority order.
var All = []Label{Depression, Anxiety, Stress, Breathing, CBT}

// IsNone reports whether no topic was inferred.
func (l Label) IsNone() bool { return l == None }

// IsValid checks that the label is None or one of the known topics.
func (l Label) IsValid() bool {
	if l == None {
		return true
	}
	for _, t := range All {
		if l == t {
			return true
		}
	}
	return false
}

// String returns the label, or "none" for the zero value.
func (l Label) String() string {
	if l == None {
		return "none"
	}
	return string(l)
}
