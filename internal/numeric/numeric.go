// Package numeric normalizes loosely typed numeric values arriving at the
// store and API boundaries. Documents exported from MongoDB (or clients
// replaying them) may carry extended-JSON wrappers such as
// {"$numberInt": "42"}; older clients send numeric strings. Core logic only
// ever sees plain float64 values.
package numeric

import (
	"encoding/json"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var wrapperKeys = []string{"$numberInt", "$numberLong", "$numberDouble", "$numberDecimal"}

// Coerce converts v to a plain float64, defaulting to 0 for anything
// non-numeric.
func Coerce(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case string:
		return parseString(n)
	case json.Number:
		return parseString(n.String())
	case primitive.Decimal128:
		return parseString(n.String())
	case map[string]any:
		return coerceWrapper(func(k string) (any, bool) {
			val, ok := n[k]
			return val, ok
		})
	case bson.M:
		return coerceWrapper(func(k string) (any, bool) {
			val, ok := n[k]
			return val, ok
		})
	case bson.D:
		return coerceWrapper(func(k string) (any, bool) {
			for _, e := range n {
				if e.Key == k {
					return e.Value, true
				}
			}
			return nil, false
		})
	default:
		return 0
	}
}

// CoerceScores normalizes a raw score map into plain numbers, dropping keys
// with empty team ids.
func CoerceScores[K ~string](in map[K]any) map[K]float64 {
	out := make(map[K]float64, len(in))
	for k, v := range in {
		if k == "" {
			continue
		}
		out[k] = Coerce(v)
	}
	return out
}

func coerceWrapper(lookup func(string) (any, bool)) float64 {
	for _, key := range wrapperKeys {
		if inner, ok := lookup(key); ok {
			return Coerce(inner)
		}
	}
	return 0
}

func parseString(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
