package storage

import (
	"encoding/json"

	"github.com/plasmakit/coupler/internal/domain/model"
)

// interpolate computes the slice at time t between prev and next.
// Both payloads must decode as JSON values of identical shape built from
// numbers, arrays, and objects; anything else falls back to the nearer
// bracket. Requests outside the stored range clamp to the edge slice.
func interpolate(prev model.Timeslice, havePrev bool, next model.Timeslice, haveNext bool, t float64) model.Timeslice {
	if !havePrev {
		return next
	}
	if !haveNext {
		return prev
	}
	if prev.Time == next.Time {
		return prev
	}

	var a, b interface{}
	if json.Unmarshal(prev.Payload, &a) != nil || json.Unmarshal(next.Payload, &b) != nil {
		return closest(prev, true, next, true, t)
	}

	frac := (t - prev.Time) / (next.Time - prev.Time)
	mixed, ok := mix(a, b, frac)
	if !ok {
		return closest(prev, true, next, true, t)
	}
	payload, err := json.Marshal(mixed)
	if err != nil {
		return closest(prev, true, next, true, t)
	}
	return model.Timeslice{Time: t, Payload: payload}
}

// mix linearly combines two decoded JSON values. Non-numeric leaves must
// be equal on both sides and pass through unchanged.
func mix(a, b interface{}, frac float64) (interface{}, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return nil, false
		}
		return av + (bv-av)*frac, true
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return nil, false
		}
		out := make([]interface{}, len(av))
		for i := range av {
			v, ok := mix(av[i], bv[i], frac)
			if !ok {
				return nil, false
			}
			out[i] = v
		}
		return out, true
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return nil, false
		}
		out := make(map[string]interface{}, len(av))
		for k, v1 := range av {
			v2, ok := bv[k]
			if !ok {
				return nil, false
			}
			v, ok := mix(v1, v2, frac)
			if !ok {
				return nil, false
			}
			out[k] = v
		}
		return out, true
	case string:
		bv, ok := b.(string)
		if !ok || av != bv {
			return nil, false
		}
		return av, true
	case bool:
		bv, ok := b.(bool)
		if !ok || av != bv {
			return nil, false
		}
		return av, true
	case nil:
		if b != nil {
			return nil, false
		}
		return nil, true
	default:
		return nil, false
	}
}
