package services

import (
	"reflect"
	"testing"
)

type item struct{ id string }

func ids(list []item) []string {
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = v.id
	}
	return out
}

func items(idList ...string) []item {
	out := make([]item, len(idList))
	for i, id := range idList {
		out[i] = item{id}
	}
	return out
}

func itemID(v item) string { return v.id }

func TestReposition(t *testing.T) {
	tests := []struct {
		name string
		id   string
		to   int
		want []string
	}{
		{"to own index is a no-op", "c", 2, []string{"a", "b", "c", "d"}},
		{"just after itself is a no-op", "b", 2, []string{"a", "b", "c", "d"}},
		{"move forward", "a", 3, []string{"b", "c", "a", "d"}},
		{"move backward", "d", 1, []string{"a", "d", "b", "c"}},
		{"append", "a", 4, []string{"b", "c", "d", "a"}},
		{"to front", "c", 0, []string{"c", "a", "b", "d"}},
		{"index above range is clamped", "b", 99, []string{"a", "c", "d", "b"}},
		{"negative index is clamped", "c", -5, []string{"c", "a", "b", "d"}},
		{"unknown id is a no-op", "zz", 1, []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := items("a", "b", "c", "d")
			got := Reposition(in, tt.id, tt.to, itemID)
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("Reposition(%s, %d) = %v, want %v", tt.id, tt.to, ids(got), tt.want)
			}
			if !reflect.DeepEqual(ids(in), []string{"a", "b", "c", "d"}) {
				t.Errorf("input was modified: %v", ids(in))
			}
		})
	}
}

func TestRepositionEveryIndexKeepsOrderWhenUnmoved(t *testing.T) {
	in := items("a", "b", "c", "d", "e")
	for i, v := range in {
		got := Reposition(in, v.id, i, itemID)
		if !reflect.DeepEqual(ids(got), ids(in)) {
			t.Fatalf("moving %s to its own index %d changed order: %v", v.id, i, ids(got))
		}
		last := Reposition(in, v.id, len(in), itemID)
		if last[len(last)-1].id != v.id {
			t.Fatalf("moving %s to %d must append, got %v", v.id, len(in), ids(last))
		}
	}
}

func TestRepositionAcross(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		to      int
		wantSrc []string
		wantDst []string
	}{
		{"to front of destination", "b", 0, []string{"a", "c"}, []string{"b", "x", "y"}},
		{"middle of destination", "a", 1, []string{"b", "c"}, []string{"x", "a", "y"}},
		{"append to destination", "c", 2, []string{"a", "b"}, []string{"x", "y", "c"}},
		{"index clamped to destination length", "c", 10, []string{"a", "b"}, []string{"x", "y", "c"}},
		{"unknown id", "nope", 0, []string{"a", "b", "c"}, []string{"x", "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dst := items("a", "b", "c"), items("x", "y")
			gotSrc, gotDst := RepositionAcross(src, dst, tt.id, tt.to, itemID)
			if !reflect.DeepEqual(ids(gotSrc), tt.wantSrc) {
				t.Errorf("src = %v, want %v", ids(gotSrc), tt.wantSrc)
			}
			if !reflect.DeepEqual(ids(gotDst), tt.wantDst) {
				t.Errorf("dst = %v, want %v", ids(gotDst), tt.wantDst)
			}
		})
	}
}

func TestRepositionAcrossIntoEmptyList(t *testing.T) {
	src, dst := RepositionAcross(items("a"), nil, "a", 3, itemID)
	if len(src) != 0 || !reflect.DeepEqual(ids(dst), []string{"a"}) {
		t.Fatalf("unexpected result src=%v dst=%v", ids(src), ids(dst))
	}
}
