// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// AxisBindings maps the names of dynamic axes to their values.
// Used to resolve a DynamicShape to a concrete Shape, see DynamicShape.Resolve.
type AxisBindings map[string]int

// Key returns a canonical string representation, "name1=val1,name2=val2" with names sorted alphabetically.
// It returns an empty string for empty or nil bindings.
//
// ParseAxisBindings is its inverse.
func (ab AxisBindings) Key() string {
	if len(ab) == 0 {
		return ""
	}
	names := slices.Sorted(maps.Keys(ab))
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + strconv.Itoa(ab[name])
	}
	return strings.Join(parts, ",")
}

// Clone returns a copy of the bindings.
func (ab AxisBindings) Clone() AxisBindings {
	if ab == nil {
		return nil
	}
	return maps.Clone(ab)
}

// Merge returns a new AxisBindings with the bindings of both. The receiver can be nil.
//
// It returns an error if both bind the same axis name to different values.
func (ab AxisBindings) Merge(other AxisBindings) (AxisBindings, error) {
	merged := make(AxisBindings, len(ab)+len(other))
	maps.Copy(merged, ab)
	for name, value := range other {
		if existing, ok := merged[name]; ok && existing != value {
			return nil, errors.Errorf("conflicting values for axis %q: %d vs %d", name, existing, value)
		}
		merged[name] = value
	}
	return merged, nil
}

// ParseAxisBindings parses bindings in the format returned by AxisBindings.Key, e.g. "batch=8,seq=128".
// Spaces around names and values are ignored, and an empty string returns empty bindings.
func ParseAxisBindings(s string) (AxisBindings, error) {
	ab := AxisBindings{}
	if strings.TrimSpace(s) == "" {
		return ab, nil
	}
	for _, part := range strings.Split(s, ",") {
		name, valueStr, found := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, errors.Errorf("invalid axis binding %q in %q, expected name=value", part, s)
		}
		value, err := strconv.Atoi(strings.TrimSpace(valueStr))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid value for axis %q in %q", name, s)
		}
		if value < 0 {
			return nil, errors.Errorf("axis %q bound to negative value %d in %q", name, value, s)
		}
		if _, duplicate := ab[name]; duplicate {
			return nil, errors.Errorf("axis %q bound more than once in %q", name, s)
		}
		ab[name] = value
	}
	return ab, nil
}
