package attachment

import "fmt"

// SizeLimitError is returned by ConditionStrict when no within-ceiling
// result exists and the target channel cannot accept a note instead.
type SizeLimitError struct {
	Size    int
	Ceiling int
	Message string
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("size limit error: %s (%d bytes, ceiling %d)", e.Message, e.Size, e.Ceiling)
}
