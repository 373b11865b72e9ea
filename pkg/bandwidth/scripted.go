package bandwidth

import (
	"fmt"
	"math"
	"math/big"

	"github.com/itchyny/gojq"

	"github.com/dpbroker/dpb/pkg/goalset"
)

// ScriptedFunction evaluates a received jq program to answer bandwidth
// queries, for the case where an inferior network hands the aggregator an
// opaque bandwidth function instead of one the broker can represent
// natively. The script is compiled once and run per query with a small
// JSON request object as input:
//
//	{"op": "degree"}                  -> a number
//	{"op": "get", "members": [1,3,7]} -> {"min": 2, "max": 5}
//	                                   -> {"ingress": {...}, "egress": {...}}
//
// A script that only returns {"min","max"} is treated as reporting the
// same range for both ingress and egress.
type ScriptedFunction struct {
	source string
	code   *gojq.Code
	degree int
}

// NewScriptedFunction parses and compiles script, then evaluates its
// degree query once so Degree() is cheap afterward.
func NewScriptedFunction(script string) (*ScriptedFunction, error) {
	query, err := gojq.Parse(script)
	if err != nil {
		return nil, errScriptCompile(err.Error())
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, errScriptCompile(err.Error())
	}

	f := &ScriptedFunction{source: script, code: code}
	degree, err := f.runScalar(map[string]interface{}{"op": "degree"})
	if err != nil {
		return nil, err
	}
	if degree != math.Trunc(degree) || degree < 0 {
		return nil, errScriptEval("degree query must return a non-negative integer")
	}
	f.degree = int(degree)
	return f, nil
}

// AsScript returns the original source text, so a ScriptedFunction can be
// relayed to another aggregator verbatim.
func (f *ScriptedFunction) AsScript() string { return f.source }

func (f *ScriptedFunction) Degree() int { return f.degree }

func (f *ScriptedFunction) runScalar(input interface{}) (float64, error) {
	iter := f.code.Run(input)
	v, ok := iter.Next()
	if !ok {
		return 0, errScriptEval("query produced no result")
	}
	if err, isErr := v.(error); isErr {
		return 0, errScriptEval(err.Error())
	}
	num, ok := toFloat64(v)
	if !ok {
		return 0, errScriptEval(fmt.Sprintf("expected a number, got %T", v))
	}
	return num, nil
}

func (f *ScriptedFunction) runObject(input interface{}) (map[string]interface{}, error) {
	iter := f.code.Run(input)
	v, ok := iter.Next()
	if !ok {
		return nil, errScriptEval("query produced no result")
	}
	if err, isErr := v.(error); isErr {
		return nil, errScriptEval(err.Error())
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, errScriptEval(fmt.Sprintf("expected an object result, got %T", v))
	}
	return obj, nil
}

func (f *ScriptedFunction) Get(s *goalset.Set) (Range, error) {
	p, err := f.GetPair(s)
	if err != nil {
		return Range{}, err
	}
	return p.Flatten(), nil
}

func (f *ScriptedFunction) GetPair(s *goalset.Set) (Pair, error) {
	if s.Degree() != f.degree {
		return Pair{}, errDegreeMismatch(f.degree, s.Degree())
	}

	members := make([]interface{}, 0, s.Len())
	for _, m := range s.Members() {
		members = append(members, m)
	}
	obj, err := f.runObject(map[string]interface{}{"op": "get", "members": members})
	if err != nil {
		return Pair{}, err
	}

	if ingress, ok := obj["ingress"]; ok {
		egress, ok2 := obj["egress"]
		if !ok2 {
			return Pair{}, errScriptEval("result with \"ingress\" must also carry \"egress\"")
		}
		ir, err := rangeFromObject(ingress)
		if err != nil {
			return Pair{}, err
		}
		er, err := rangeFromObject(egress)
		if err != nil {
			return Pair{}, err
		}
		return Pair{Ingress: ir, Egress: er}, nil
	}

	r, err := rangeFromObject(obj)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Ingress: r, Egress: r}, nil
}

func rangeFromObject(v interface{}) (Range, error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return Range{}, errScriptEval(fmt.Sprintf("expected a range object, got %T", v))
	}
	minVal, ok := obj["min"]
	if !ok {
		return Range{}, errScriptEval("range object missing \"min\"")
	}
	min, ok := toFloat64(minVal)
	if !ok {
		return Range{}, errScriptEval("range \"min\" must be a number")
	}

	maxVal, hasMax := obj["max"]
	if !hasMax || maxVal == nil {
		return Unbounded(min), nil
	}
	max, ok := toFloat64(maxVal)
	if !ok {
		return Range{}, errScriptEval("range \"max\" must be a number or null")
	}
	return Range{Min: min, Max: max}, nil
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case *big.Int:
		f := new(big.Float).SetInt(n)
		out, _ := f.Float64()
		return out, true
	default:
		return 0, false
	}
}
