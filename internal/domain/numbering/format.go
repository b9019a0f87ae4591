package numbering

import "fmt"

// Format renders a document number as {prefix}{period}-{sequence zero padded to width}.
// Sequences wider than width are printed in full, never truncated.
func Format(prefix string, period int, sequence int64, width int) string {
	return fmt.Sprintf("%s%d-%0*d", prefix, period, width, sequence)
}

// Scheme is the rendering rule for one numbering type
type Scheme struct {
	Prefix string
	Width  int
}

// Format renders sequence in period with this scheme
func (s Scheme) Format(period int, sequence int64) string {
	return Format(s.Prefix, period, sequence, s.Width)
}
