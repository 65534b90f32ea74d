package shallow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type record struct {
	Name  string
	Items []int
	Meta  map[string]any
}

func TestEqual(t *testing.T) {
	shared := map[string]any{"a": 1}
	items := []int{1, 2, 3}
	nested := map[string]any{"deep": true}
	fn := func() {}

	tests := []struct {
		name   string
		a, b   any
		expect bool
	}{
		{"both nil", nil, nil, true},
		{"same map", shared, shared, true},
		{"nil and empty map", nil, map[string]any{}, true},
		{"empty maps", map[string]any{}, map[string]any{}, true},
		{"equal flat maps", map[string]any{"a": 1, "b": "x"}, map[string]any{"a": 1, "b": "x"}, true},
		{"different sizes", map[string]any{"a": 1}, map[string]any{"a": 1, "b": 2}, false},
		{"different keys", map[string]any{"a": 1}, map[string]any{"b": 1}, false},
		{"different values", map[string]any{"a": 1}, map[string]any{"a": 2}, false},
		{"same nested reference", map[string]any{"n": nested}, map[string]any{"n": nested}, true},
		{"equal but distinct nested maps", map[string]any{"n": map[string]any{"deep": true}}, map[string]any{"n": map[string]any{"deep": true}}, false},
		{"same slice", map[string]any{"s": items}, map[string]any{"s": items}, true},
		{"resliced slice", map[string]any{"s": items}, map[string]any{"s": items[:2]}, false},
		{"nil values", map[string]any{"a": nil}, map[string]any{"a": nil}, true},
		{"nil vs value", map[string]any{"a": nil}, map[string]any{"a": 0}, false},
		{"different value types", map[string]any{"a": 1}, map[string]any{"a": int64(1)}, false},
		{"funcs never identical", map[string]any{"f": fn}, map[string]any{"f": fn}, false},
		{"typed maps", map[string]int{"a": 1}, map[string]int{"a": 1}, true},
		{"mismatched map types", map[string]int{"a": 1}, map[string]any{"a": 1}, false},
		{"equal structs", record{Name: "x", Items: items}, record{Name: "x", Items: items}, true},
		{"structs with distinct slices", record{Items: []int{1}}, record{Items: []int{1}}, false},
		{"structs with shared map", record{Meta: shared}, record{Meta: shared}, true},
		{"scalars", 3, 3, true},
		{"different scalars", 3, 4, false},
		{"strings", "a", "a", true},
		{"nil vs scalar", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, Equal(tt.a, tt.b))
			assert.Equal(t, tt.expect, Equal(tt.b, tt.a), "Equal should be symmetric")
		})
	}
}

func TestEqualIgnoresNestedMutation(t *testing.T) {
	nested := map[string]any{"count": 1}
	a := map[string]any{"n": nested}
	b := map[string]any{"n": nested}

	nested["count"] = 2

	assert.True(t, Equal(a, b))
}

func TestIdentical(t *testing.T) {
	p := &record{}
	ch := make(chan int)

	assert.True(t, Identical(p, p))
	assert.False(t, Identical(p, &record{}))
	assert.True(t, Identical(ch, ch))
	assert.False(t, Identical(1, "1"))
	assert.False(t, Identical(nil, p))
	assert.True(t, Identical([2]int{1, 2}, [2]int{1, 2}))
	assert.False(t, Identical(func() {}, func() {}))
}
