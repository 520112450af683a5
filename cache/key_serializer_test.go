package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type categoryCriteria struct {
	category string
}

func (c categoryCriteria) CacheKey() string {
	return "category=" + c.category
}

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

func TestDefaultKeySerializer_BasicTypes(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name   string
		method string
		args   []any
		want   string
	}{
		{
			name:   "no args",
			method: "List",
			args:   []any{},
			want:   "List",
		},
		{
			name:   "single int",
			method: "GetByID",
			args:   []any{42},
			want:   joinWithSeparator("GetByID", "42"),
		},
		{
			name:   "multiple basic types",
			method: "Get",
			args:   []any{1, "shoes", true, 19.99},
			want:   joinWithSeparator("Get", "1", "shoes", "true", "19.99"),
		},
		{
			name:   "nil values",
			method: "Get",
			args:   []any{nil, (*string)(nil)},
			want:   joinWithSeparator("Get", "nil", "nil"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.method, tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_KeyerAndStringer(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	id := uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("UTC+2", 2*3600))

	got := serializer.SerializeKey("List", categoryCriteria{category: "shoes"}, id, at)
	want := joinWithSeparator("List", "category=shoes", id.String(), "2024-03-01T08:00:00Z")
	if got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}

	// closures sharing code but not captured values must be distinguished through Keyer
	a := serializer.SerializeKey("List", []any{categoryCriteria{category: "shoes"}})
	b := serializer.SerializeKey("List", []any{categoryCriteria{category: "hats"}})
	if a == b {
		t.Errorf("expected distinct keys, both were %q", a)
	}
}

func TestDefaultKeySerializer_Collections(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name string
		arg  any
		want string
	}{
		{name: "nil slice", arg: []string(nil), want: "slice:nil"},
		{name: "string slice", arg: []string{"a", "b"}, want: "slice[2]:{a,b}"},
		{name: "nested slice", arg: [][]int{{1}, {2, 3}}, want: "slice[2]:{slice[1]:{1},slice[2]:{2,3}}"},
		{name: "array", arg: [2]int{4, 5}, want: "array[2]:{4,5}"},
		{name: "nil map", arg: map[string]int(nil), want: "map:nil"},
		{name: "map sorted", arg: map[string]int{"z": 1, "a": 2}, want: "map[2]:{a=2,z=1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey("M", tt.arg)
			want := joinWithSeparator("M", tt.want)
			if got != want {
				t.Errorf("SerializeKey() = %v, want %v", got, want)
			}
		})
	}
}

func TestDefaultKeySerializer_Structs(t *testing.T) {
	type filter struct {
		Category string
		Page     int
		hidden   string
	}

	serializer := NewDefaultKeySerializer()
	got := serializer.SerializeKey("List", filter{Category: "shoes", Page: 2, hidden: "x"})
	want := joinWithSeparator("List", "struct:{Category:shoes,Page:2}")
	if got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}

	ptr := &filter{Category: "shoes", Page: 2}
	if gotPtr := serializer.SerializeKey("List", ptr); gotPtr != want {
		t.Errorf("pointer should serialize like value: got %v, want %v", gotPtr, want)
	}
}

func TestDefaultKeySerializer_Functions(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	fn := strings.ToUpper

	first := serializer.SerializeKey("Get", fn)
	second := serializer.SerializeKey("Get", fn)
	if first != second {
		t.Errorf("function keys should be stable: %q != %q", first, second)
	}
	if !strings.HasPrefix(first, joinWithSeparator("Get", "func:0x")) {
		t.Errorf("unexpected function key %q", first)
	}
}

func TestDefaultKeySerializer_Stability(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	args := []any{"shoes", 3, map[string]bool{"trending": true, "top": false}}

	first := serializer.SerializeKey("List", args...)
	for i := 0; i < 20; i++ {
		if got := serializer.SerializeKey("List", args...); got != first {
			t.Fatalf("key changed between calls: %q != %q", got, first)
		}
	}
}
