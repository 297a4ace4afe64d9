package plugin

import (
	"fmt"
	"strconv"
	"strings"
)

// Options is the open set of named construction resources a plugin accepts
// (profile override, DTB override, filters, verbosity). Capabilities and
// the concrete factory consume the keys they recognize; anything left over
// after construction is an InvalidArgsError.
type Options map[string]any

// Clone returns a shallow copy so construction can consume keys without
// mutating the caller's map.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Take removes and returns the value for key.
func (o Options) Take(key string) (any, bool) {
	v, ok := o[key]
	if ok {
		delete(o, key)
	}
	return v, ok
}

// TakeString removes key and coerces it to a string.
func (o Options) TakeString(key, fallback string) (string, error) {
	v, ok := o.Take(key)
	if !ok {
		return fallback, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %q: expected string, got %T", key, v)
	}
	return s, nil
}

// TakeBool removes key and coerces it to a bool. String forms accepted by
// strconv.ParseBool are recognized so command-line values pass through.
func (o Options) TakeBool(key string, fallback bool) (bool, error) {
	v, ok := o.Take(key)
	if !ok {
		return fallback, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, fmt.Errorf("option %q: %w", key, err)
		}
		return b, nil
	}
	return false, fmt.Errorf("option %q: expected bool, got %T", key, v)
}

// TakeInt removes key and coerces it to an int.
func (o Options) TakeInt(key string, fallback int) (int, error) {
	v, ok := o.Take(key)
	if !ok {
		return fallback, nil
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		return int(t), nil
	case string:
		n, err := strconv.ParseInt(t, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("option %q: %w", key, err)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("option %q: expected integer, got %T", key, v)
}

// TakeUint64 removes key and coerces it to a uint64. Hex string forms
// ("0x1000") are accepted, matching how addresses arrive from the command
// line.
func (o Options) TakeUint64(key string, fallback uint64) (uint64, error) {
	v, ok := o.Take(key)
	if !ok {
		return fallback, nil
	}
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		if t < 0 {
			return 0, fmt.Errorf("option %q: negative value %d", key, t)
		}
		return uint64(t), nil
	case int64:
		if t < 0 {
			return 0, fmt.Errorf("option %q: negative value %d", key, t)
		}
		return uint64(t), nil
	case string:
		n, err := strconv.ParseUint(t, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("option %q: %w", key, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("option %q: expected unsigned integer, got %T", key, v)
}

// TakeStrings removes key and coerces it to a string slice. A single
// comma-separated string splits, matching array options from the CLI.
func (o Options) TakeStrings(key string) ([]string, error) {
	v, ok := o.Take(key)
	if !ok {
		return nil, nil
	}
	switch t := v.(type) {
	case []string:
		return t, nil
	case string:
		if t == "" {
			return nil, nil
		}
		parts := strings.Split(t, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
	return nil, fmt.Errorf("option %q: expected string list, got %T", key, v)
}

// Keys returns the remaining option keys.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	return keys
}
