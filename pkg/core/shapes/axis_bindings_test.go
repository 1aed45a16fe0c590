// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAxisBindingsKey(t *testing.T) {
	tests := []struct {
		name     string
		bindings AxisBindings
		want     string
	}{
		{
			name:     "empty",
			bindings: AxisBindings{},
			want:     "",
		},
		{
			name:     "nil",
			bindings: nil,
			want:     "",
		},
		{
			name:     "single",
			bindings: AxisBindings{"batch": 32},
			want:     "batch=32",
		},
		{
			name:     "multiple_sorted",
			bindings: AxisBindings{"batch": 32, "seq": 128},
			want:     "batch=32,seq=128",
		},
		{
			name:     "insertion_order_ignored",
			bindings: AxisBindings{"seq": 128, "batch": 32, "hidden": 512},
			want:     "batch=32,hidden=512,seq=128",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.bindings.Key()
			require.Equal(t, tt.want, got)
		})
	}
}

func TestAxisBindingsClone(t *testing.T) {
	original := AxisBindings{"batch": 32, "seq": 128}
	clone := original.Clone()

	require.Equal(t, original, clone)

	// Modifying clone should not affect original
	clone["batch"] = 64
	require.Equal(t, 32, original["batch"])

	// Nil clone
	var nilBindings AxisBindings
	require.Nil(t, nilBindings.Clone())
}

func TestAxisBindingsMerge(t *testing.T) {
	t.Run("non_overlapping", func(t *testing.T) {
		ab := AxisBindings{"batch": 32}
		merged, err := ab.Merge(AxisBindings{"seq": 128})
		require.NoError(t, err)
		require.Equal(t, AxisBindings{"batch": 32, "seq": 128}, merged)
		// The receiver is not modified.
		require.Equal(t, AxisBindings{"batch": 32}, ab)
	})

	t.Run("same_value", func(t *testing.T) {
		merged, err := AxisBindings{"batch": 32}.Merge(AxisBindings{"batch": 32})
		require.NoError(t, err)
		require.Equal(t, AxisBindings{"batch": 32}, merged)
	})

	t.Run("nil", func(t *testing.T) {
		var ab AxisBindings
		merged, err := ab.Merge(AxisBindings{"batch": 32})
		require.NoError(t, err)
		require.Equal(t, AxisBindings{"batch": 32}, merged)

		merged, err = ab.Merge(nil)
		require.NoError(t, err)
		require.Empty(t, merged)
	})

	t.Run("conflict", func(t *testing.T) {
		_, err := AxisBindings{"batch": 32}.Merge(AxisBindings{"batch": 64})
		require.Error(t, err)
		require.Contains(t, err.Error(), "conflicting")
	})
}

func TestParseAxisBindings(t *testing.T) {
	for _, ab := range []AxisBindings{{}, {"batch": 32}, {"seq": 128, "batch": 32, "hidden": 0}} {
		parsed, err := ParseAxisBindings(ab.Key())
		require.NoError(t, err)
		require.Equal(t, ab, parsed)
	}
	parsed, err := ParseAxisBindings(" batch = 8 , seq=16")
	require.NoError(t, err)
	require.Equal(t, AxisBindings{"batch": 8, "seq": 16}, parsed)

	for _, invalid := range []string{"batch", "=3", "batch=x", "batch=-1", "batch=1,batch=2", "batch=1,"} {
		_, err := ParseAxisBindings(invalid)
		require.Error(t, err, "ParseAxisBindings(%q) should fail", invalid)
	}
}
