package bandwidth

import (
	"fmt"

	"github.com/dpbroker/dpb/pkg/util"
)

func errTooLargeToTabulate(degree int) error {
	return util.NewValidationError(fmt.Sprintf(
		"degree %d is too large to tabulate: 2^degree-2 exceeds the tabulation threshold", degree))
}

func errDegreeMismatch(want, got int) error {
	return util.NewValidationError(fmt.Sprintf("goal set degree %d does not match function degree %d", got, want))
}

func errCellOutOfRange(i, j, degree int) error {
	return util.NewValidationError(fmt.Sprintf("matrix cell (%d,%d) out of range for degree %d", i, j, degree))
}

func errCellDiagonal(i int) error {
	return util.NewValidationError(fmt.Sprintf("matrix cell (%d,%d) is a diagonal entry; matrix functions are only defined for i != j", i, i))
}

func errGroupOverlap(i int) error {
	return util.NewValidationError(fmt.Sprintf("reduced function group %d overlaps a preceding group", i))
}

func errNotTabulated(s interface{ String() string }) error {
	return util.NewValidationError(fmt.Sprintf("goal set %s has no tabulated entry", s.String()))
}

func errScriptCompile(reason string) error {
	return util.NewValidationError(fmt.Sprintf("bandwidth script: %s", reason))
}

func errScriptEval(reason string) error {
	return util.NewValidationError(fmt.Sprintf("bandwidth script evaluation failed: %s", reason))
}
