package runner

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/model"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// resolver turns request bindings into concrete values for one run.
type resolver struct {
	rnd    *rand.Rand
	params map[string]string // parameter ID -> current value
}

// resolve returns the JSON value sent for f and its string form as recorded
// in the execution. NULL resolves to (nil, nil).
func (r *resolver) resolve(f model.RequestField) (any, *string) {
	switch v := f.Value.(type) {
	case model.StrictValue:
		return typed(f.Type, v.Value), model.Ptr(v.Value)
	case model.ParameterValue:
		val, ok := r.params[v.ParameterID]
		if !ok {
			return nil, nil
		}
		return typed(f.Type, val), model.Ptr(val)
	case model.RandomValue:
		return r.random(f.Type, v.Range)
	default:
		return nil, nil
	}
}

// random draws a value for a RANDOM binding. Ranges are clamped to the
// bounds the validator enforces, so a plan that skipped validation still gets
// a value instead of a panic. A NUMBER range holding no integer yields a float
// inside it.
func (r *resolver) random(t model.DataType, rg model.Range) (any, *string) {
	if math.IsNaN(rg.From) || math.IsNaN(rg.To) {
		return nil, nil
	}
	if t == model.TypeString {
		lo := math.Ceil(min(max(rg.From, 0), model.MaxRandomLength))
		hi := math.Floor(min(max(rg.To, lo), model.MaxRandomLength))
		n := int(lo) + int(r.intN(int64(hi)-int64(lo)))
		var sb strings.Builder
		sb.Grow(n)
		for i := 0; i < n; i++ {
			sb.WriteByte(alphanumeric[r.rnd.IntN(len(alphanumeric))])
		}
		s := sb.String()
		return s, model.Ptr(s)
	}

	lo := math.Ceil(max(rg.From, -model.MaxRandomNumber))
	hi := math.Floor(min(rg.To, model.MaxRandomNumber))
	if hi < lo {
		f := rg.From
		if rg.To > rg.From {
			f += r.rnd.Float64() * (rg.To - rg.From)
		}
		return f, model.Ptr(strconv.FormatFloat(f, 'g', -1, 64))
	}
	n := int64(lo) + r.intN(int64(hi)-int64(lo))
	return float64(n), model.Ptr(strconv.FormatInt(n, 10))
}

// intN returns a uniform integer in [0, span]. The span is at most 2^54, so
// span+1 never wraps.
func (r *resolver) intN(span int64) int64 {
	if span <= 0 {
		return 0
	}
	return int64(r.rnd.Uint64N(uint64(span) + 1))
}

// typed converts a stored literal to the JSON type of the field. Literals
// that do not parse are sent as strings so the backend sees what the user
// typed.
func typed(t model.DataType, s string) any {
	switch t {
	case model.TypeNumber:
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	case model.TypeBoolean:
		if b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(s))); err == nil {
			return b
		}
	}
	return s
}

// parameterValues indexes the initial values of params by ID and by name.
func parameterValues(params []model.Parameter) (byID map[string]string, idToName map[string]string) {
	byID = make(map[string]string, len(params))
	idToName = make(map[string]string, len(params))
	for _, p := range params {
		byID[p.ID] = p.InitialValue
		idToName[p.ID] = p.Name
	}
	return byID, idToName
}

// byName re-keys the current parameter values by name for endpoint
// substitution.
func byName(values, idToName map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for id, v := range values {
		if name, ok := idToName[id]; ok {
			out[name] = v
		}
	}
	return out
}

// describeExpected is used for skipped steps where nothing was resolved.
func describeExpected(f model.RequestField, params binding.ParameterSet) *string {
	if _, ok := f.Value.(model.NullValue); ok || f.Value == nil {
		return nil
	}
	return model.Ptr(binding.DescribeRequest(f.Value, params))
}
