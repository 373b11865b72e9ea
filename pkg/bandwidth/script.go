package bandwidth

import (
	"fmt"
	"math"
	"strconv"
)

// rangeJSON renders r as a jq object literal. jq accepts JSON syntax
// directly as an expression, so these literals can be spliced straight
// into a generated script; +Inf (an unbounded maximum) has no JSON
// representation and is rendered as null, matching what rangeFromObject
// in scripted.go expects on the way back in.
func rangeJSON(r Range) string {
	if math.IsInf(r.Max, 1) {
		return fmt.Sprintf(`{"min":%s,"max":null}`, formatFloat(r.Min))
	}
	return fmt.Sprintf(`{"min":%s,"max":%s}`, formatFloat(r.Min), formatFloat(r.Max))
}

// maxJSON renders a single max bound as used inside hand-assembled object
// literals (where rangeJSON's whole-object form doesn't fit).
func maxJSON(max float64) string {
	if math.IsInf(max, 1) {
		return "null"
	}
	return formatFloat(max)
}

func pairJSON(p Pair) string {
	return fmt.Sprintf(`{"ingress":%s,"egress":%s}`, rangeJSON(p.Ingress), rangeJSON(p.Egress))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// radd is the jq helper every generated script with a non-trivial sum
// defines: a saturating add where null (unbounded) absorbs any operand,
// mirroring Range.Add's treatment of +Inf.
const raddDef = `def radd(a; b): if (a == null) or (b == null) then null else a + b end;
`
