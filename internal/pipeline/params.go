package pipeline

import (
	"fmt"
	"math"
)

// Params holds stage parameters as decoded from YAML/JSON or built in code.
type Params map[string]any

func (p Params) clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		if ss, ok := v.([]string); ok {
			v = append([]string(nil), ss...)
		}
		out[k] = v
	}
	return out
}

func (p Params) has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String returns the string at key, or def when absent.
func (p Params) String(key, def string) (string, error) {
	if !p.has(key) {
		return def, nil
	}
	s, ok := p[key].(string)
	if !ok {
		return "", typeErr(key, "string", p[key])
	}
	return s, nil
}

// RequireString returns the non-empty string at key.
func (p Params) RequireString(key string) (string, error) {
	s, err := p.String(key, "")
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", invalid("parameter %q is required", key)
	}
	return s, nil
}

// Int returns the integer at key, or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	if !p.has(key) {
		return def, nil
	}
	switch v := p[key].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, typeErr(key, "integer", v)
		}
		return int(v), nil
	}
	return 0, typeErr(key, "integer", p[key])
}

// Float returns the number at key, or def when absent.
func (p Params) Float(key string, def float64) (float64, error) {
	if !p.has(key) {
		return def, nil
	}
	switch v := p[key].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, typeErr(key, "number", p[key])
}

// Bool returns the bool at key, or def when absent.
func (p Params) Bool(key string, def bool) (bool, error) {
	if !p.has(key) {
		return def, nil
	}
	b, ok := p[key].(bool)
	if !ok {
		return false, typeErr(key, "bool", p[key])
	}
	return b, nil
}

// Strings returns the string list at key and whether it was present.
func (p Params) Strings(key string) ([]string, bool, error) {
	if !p.has(key) {
		return nil, false, nil
	}
	switch v := p[key].(type) {
	case []string:
		return append([]string(nil), v...), true, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, true, typeErr(fmt.Sprintf("%s[%d]", key, i), "string", e)
			}
			out = append(out, s)
		}
		return out, true, nil
	}
	return nil, true, typeErr(key, "list of strings", p[key])
}

// Order returns the "order" parameter, true for ascending.
func (p Params) Order() (bool, error) {
	o, err := p.String("order", "asc")
	if err != nil {
		return false, err
	}
	switch o {
	case "asc":
		return true, nil
	case "desc":
		return false, nil
	}
	return false, invalid("order must be asc or desc, got %q", o)
}

func typeErr(key, want string, got any) error {
	return invalid("parameter %q: want %s, got %T", key, want, got)
}
