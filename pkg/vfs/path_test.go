package vfs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"a", "a"},
		{"/a/b/", "a/b"},
		{"a//b///c", "a/b/c"},
		{"./a/b", "a/b"},
		{"./", ""},
		{"a/b/", "a/b"},
		// Backslashes are ordinary characters.
		{`a\b`, `a\b`},
		// Parent references are kept literally.
		{"a/../b", "a/../b"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Normalize(c.in), "Normalize(%q)", c.in)
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		in         string
		wantParent string
		wantName   string
	}{
		{"", "", ""},
		{"a", "", "a"},
		{"a/b", "a", "b"},
		{"/a/b/c/", "a/b", "c"},
	}
	for _, c := range cases {
		parent, name := Split(c.in)
		assert.Equal(t, c.wantParent, parent, "Split(%q) parent", c.in)
		assert.Equal(t, c.wantName, name, "Split(%q) name", c.in)
	}
}

func TestJoin(t *testing.T) {
	cases := []struct {
		parts []string
		want  string
	}{
		{[]string{"a", "b"}, "a/b"},
		{[]string{"", "b"}, "b"},
		{[]string{"a", "", "c"}, "a/c"},
		{[]string{"/a/", "/b/"}, "a/b"},
		{nil, ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Join(c.parts...), "Join(%v)", c.parts)
	}
}

func TestValidName(t *testing.T) {
	valid := []string{
		"notes.md", "My Folder", "a_b-c", "rock & roll", "draft (2)",
		"[inbox]", "résumé.md", "日記.md", "2024",
	}
	for _, s := range valid {
		assert.True(t, ValidName(s), "ValidName(%q)", s)
	}

	invalid := []string{
		"", "a/b", "semi;colon", "star*", "quest?", "quote\"", "pipe|",
		"back\\slash", "<tag>",
	}
	for _, s := range invalid {
		assert.False(t, ValidName(s), "ValidName(%q)", s)
	}
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath(""))
	assert.NoError(t, ValidatePath("a/b c/d.md"))

	err := ValidatePath("a/b*/c")
	assert.True(t, IsKind(err, KindInvalidName), "invalid component = %v", err)
}

func TestParseQuery(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"hello world", []string{"hello", "world"}},
		{`"hello world" go`, []string{"hello world", "go"}},
		{`a "b c" d`, []string{"a", "b c", "d"}},
		{"", nil},
		{`"unclosed quote`, []string{"unclosed quote"}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ParseQuery(c.in), "ParseQuery(%q)", c.in)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(nil))
	assert.Equal(t, KindNotFound, KindOf(NewNotFound("x")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestErrorString(t *testing.T) {
	e := NewAlreadyExists("docs/a.md")
	assert.Equal(t, "AlreadyExists: already exists (path: docs/a.md)", e.Error())
}
