package syntax

import "fmt"

type ParseError struct {
	File   string
	Offset int
	Cause  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error at byte %d: %s", e.File, e.Offset, e.Cause)
}
