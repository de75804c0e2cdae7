package resource

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeclaration(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantCat *Category
		want    string
		ok      bool
	}{
		{"string", `    <string name="app_name">App</string>`, String, "app_name", true},
		{"dimen", `<dimen name="margin">8dp</dimen>`, Dimen, "margin", true},
		{"color", `<color name="accent">#fff</color>`, Color, "accent", true},
		{"string-array not string", `<string-array name="planets">`, StringArray, "planets", true},
		{"style dotted", `<style name="Theme.App" parent="Base">`, Style, "Theme.App", true},
		{"attribute before name", `<string translatable="false" name="key">k</string>`, String, "key", true},
		{"name attr must be whole", `<string xname="a" name="b">`, String, "b", true},
		{"item is not a category", `<item name="android:textSize">12sp</item>`, nil, "", false},
		{"plurals not tracked", `<plurals name="count">`, nil, "", false},
		{"empty name", `<string name="">x</string>`, nil, "", false},
		{"no name", `<string>x</string>`, nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, name, _, ok := ParseDeclaration(tt.line, Inline())
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.wantCat, cat)
			assert.Equal(t, tt.want, name)
		})
	}
}

func trackAll(t *testing.T, content string) []Declaration {
	t.Helper()
	tr := NewBlockTracker(nil)
	var out []Declaration
	for i, line := range strings.Split(content, "\n") {
		d, done := tr.Feed(i+1, line)
		if d != nil && done {
			out = append(out, *d)
		}
	}
	require.Nil(t, tr.Unterminated())
	return out
}

func TestBlockTracker(t *testing.T) {
	content := `<resources>
    <string name="one">One</string>
    <string-array name="planets">
        <item>Mercury</item>
        <item>Venus</item>
    </string-array>
    <string-array name="empty"/>
    <style name="Theme.App" parent="Base">
        <item name="android:colorPrimary">@color/accent</item>
    </style>
    <string name="multi">first line
        second line</string>
    <string-array
        name="split_tag">
        <item>x</item>
    </string-array>
    <style name="Inline"><item name="a">b</item></style>
</resources>`

	got := trackAll(t, content)
	require.Len(t, got, 6)

	want := []struct {
		name       string
		start, end int
	}{
		{"one", 2, 2},
		{"planets", 3, 6},
		{"empty", 7, 7},
		{"Theme.App", 8, 10},
		{"multi", 11, 12},
		{"Inline", 17, 17},
	}
	names := make(map[string]Declaration)
	for _, d := range got {
		names[d.Name] = d
	}
	for _, w := range want {
		d, ok := names[w.name]
		require.True(t, ok, w.name)
		assert.Equal(t, w.start, d.StartLine, w.name)
		assert.Equal(t, w.end, d.EndLine, w.name)
	}
	// The name must share a line with the tag opener.
	_, tracked := names["split_tag"]
	assert.False(t, tracked)
}

func TestBlockTrackerPendingOpen(t *testing.T) {
	content := `<string-array name="a"
        translatable="false">
    <item>x</item>
</string-array>
<string-array name="b"
    translatable="false"/>
<string name="c">c</string>`

	got := trackAll(t, content)
	require.Len(t, got, 3)
	assert.Equal(t, Declaration{Category: StringArray, Name: "a", StartLine: 1, EndLine: 4}, got[0])
	assert.Equal(t, Declaration{Category: StringArray, Name: "b", StartLine: 5, EndLine: 6}, got[1])
	assert.Equal(t, Declaration{Category: String, Name: "c", StartLine: 7, EndLine: 7}, got[2])
}

func TestBlockTrackerUnterminated(t *testing.T) {
	tr := NewBlockTracker(nil)
	tr.Feed(1, `<style name="Broken">`)
	tr.Feed(2, `<item name="x">y</item>`)
	d := tr.Unterminated()
	require.NotNil(t, d)
	assert.Equal(t, "Broken", d.Name)
	assert.Equal(t, 2, d.EndLine)
}
