package payment

import "strings"

// Outcome is the class assigned to a navigation target reported by the
// embedded checkout surface.
type Outcome int

const (
	// OutcomeUnclassified targets are ignored; the session keeps waiting.
	OutcomeUnclassified Outcome = iota
	OutcomeFinished
	OutcomeUnfinished
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFinished:
		return "finished"
	case OutcomeUnfinished:
		return "unfinished"
	case OutcomeError:
		return "error"
	}
	return "unclassified"
}

// redirectMarkers follow the gateway's hosted-page redirect conventions.
// The markers are pairwise disjoint, so at most one can match a given
// target; first match wins.
var redirectMarkers = []struct {
	marker  string
	outcome Outcome
}{
	{"transaction_status=settlement", OutcomeFinished},
	{"transaction_status=capture", OutcomeFinished},
	{"payment_success", OutcomeFinished},
	{"status_code=200", OutcomeFinished},
	{"payment_incomplete", OutcomeUnfinished},
	{"payment_error", OutcomeError},
}

// Classify maps a navigation target URL to an outcome by substring match.
// This is the single place the vendor's redirect conventions leak into the
// client.
func Classify(target string) Outcome {
	for _, m := range redirectMarkers {
		if strings.Contains(target, m.marker) {
			return m.outcome
		}
	}
	return OutcomeUnclassified
}
