package keyfs

import (
	"reflect"
	"testing"
)

func TestParseKeyPath(t *testing.T) {
	for _, tc := range []struct {
		in         string
		components []string
		absolute   bool
		out        string
	}{
		{"", nil, false, ""},
		{"/", nil, true, "/"},
		{"a", []string{"a"}, false, "a"},
		{"/a", []string{"a"}, true, "/a"},
		{"a/b/c", []string{"a", "b", "c"}, false, "a/b/c"},
		{"/a/b/c/", []string{"a", "b", "c"}, true, "/a/b/c"},
		{"a//b", []string{"a", "b"}, false, "a/b"},
		{"//a///b//", []string{"a", "b"}, true, "/a/b"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			kp := ParseKeyPath(tc.in)
			if kp.IsAbsolute() != tc.absolute {
				t.Fatal("absolute mismatch")
			}
			if kp.Count() != len(tc.components) {
				t.Fatal("count mismatch:", kp.Count(), "!=", len(tc.components))
			}
			var components []string
			for i := 0; i < kp.Count(); i++ {
				components = append(components, kp.Component(i))
			}
			if !reflect.DeepEqual(components, tc.components) {
				t.Fatal("components mismatch:", components, "!=", tc.components)
			}
			if kp.String() != tc.out {
				t.Fatalf("canonical form %q != %q", kp.String(), tc.out)
			}
		})
	}
}

func TestKeyPathLast(t *testing.T) {
	if last, ok := ParseKeyPath("a/b/c").Last(); !ok || last != "c" {
		t.Fatal(last, ok)
	}
	if _, ok := ParseKeyPath("/").Last(); ok {
		t.Fatal("root has no last component")
	}
	if _, ok := ParseKeyPath("").Last(); ok {
		t.Fatal("empty path has no last component")
	}
}

func TestKeyPathParent(t *testing.T) {
	for _, tc := range []struct {
		in     string
		parent string
		ok     bool
	}{
		{"a/b/c", "a/b", true},
		{"/a/b", "/a", true},
		{"/a", "/", true}, // the parent of a top-level absolute path is the root
		{"a", "", false},
		{"/", "", false},
		{"", "", false},
	} {
		t.Run(tc.in, func(t *testing.T) {
			parent, ok := ParseKeyPath(tc.in).Parent()
			if ok != tc.ok {
				t.Fatal("ok mismatch")
			}
			if ok && parent.String() != tc.parent {
				t.Fatalf("parent %q != %q", parent.String(), tc.parent)
			}
		})
	}
}

func TestKeyPathParentDoesNotAliasChild(t *testing.T) {
	kp := ParseKeyPath("a/b/c")
	parent, _ := kp.Parent()
	if parent.String() != "a/b" || kp.String() != "a/b/c" {
		t.Fatal("parent derivation must not disturb the child")
	}
}
