package enums

// LineOutcome labels the result of migrating a single guest line.
type LineOutcome string

const (
	LineOutcomeMerged      LineOutcome = "merged"
	LineOutcomeFailed      LineOutcome = "failed"
	LineOutcomeUnreachable LineOutcome = "unreachable"
)

// String implements fmt.Stringer.
func (l LineOutcome) String() string {
	return string(l)
}
