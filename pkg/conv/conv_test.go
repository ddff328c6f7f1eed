package conv

import (
	"reflect"
	"testing"
)

func TestToInt64(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
		ok   bool
	}{
		{"int", 7, 7, true},
		{"int64", int64(7), 7, true},
		{"int32", int32(-3), -3, true},
		{"float64", 7.9, 7, true},
		{"float32", float32(2.1), 2, true},
		{"string", "7", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToInt64(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ToInt64(%v) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestConfigGetInt64(t *testing.T) {
	cfg := map[string]any{
		"n":    10,
		"f":    3.0,
		"name": "topn",
	}
	tests := []struct {
		name string
		cfg  map[string]any
		key  string
		def  int64
		want int64
	}{
		{"int value", cfg, "n", 0, 10},
		{"yaml float value", cfg, "f", 0, 3},
		{"wrong type falls back", cfg, "name", 5, 5},
		{"missing key", cfg, "absent", 5, 5},
		{"nil config", nil, "n", 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConfigGetInt64(tt.cfg, tt.key, tt.def); got != tt.want {
				t.Errorf("ConfigGetInt64(%q) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}

func TestSliceAnyToString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"all strings", []any{"a", "b"}, []string{"a", "b"}},
		{"skips non-strings", []any{"a", 1, "b", nil}, []string{"a", "b"}},
		{"not a slice", "a", nil},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SliceAnyToString(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SliceAnyToString(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
