package model

import (
	"errors"
	"fmt"
)

var ErrContractViolation = errors.New("contract violation")

// ContractViolation reports a caller misusing the engine's stage ordering. It is
// never recovered from.
type ContractViolation struct {
	Op     string
	Detail string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation: %s: %s", e.Op, e.Detail)
}

func (e *ContractViolation) Is(target error) bool {
	return target == ErrContractViolation
}

func Violation(op, format string, args ...any) error {
	return &ContractViolation{Op: op, Detail: fmt.Sprintf(format, args...)}
}
