package types

import "fmt"

// Status is the outcome of optimizing a file, a package, or a batch.
// Values are ordered by precedence: when folding several statuses the
// highest one wins.
type Status int

const (
	StatusSkipped Status = iota + 1
	StatusPerformed
	StatusFailed
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusSkipped:   "skipped",
	StatusPerformed: "performed",
	StatusFailed:    "failed",
	StatusCancelled: "cancelled",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Max returns the status with the higher precedence.
func (s Status) Max(other Status) Status {
	if other > s {
		return other
	}
	return s
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(text))
}
