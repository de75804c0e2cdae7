package usage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/panbanda/resprune/pkg/resource"
	"github.com/panbanda/resprune/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogOf(t *testing.T, decls ...string) *resource.Catalog {
	t.Helper()
	c := resource.NewCatalog()
	for i := 0; i+1 < len(decls); i += 2 {
		cat, ok := resource.Lookup(decls[i])
		require.True(t, ok, decls[i])
		c.Add(cat, decls[i+1], resource.Location{Path: "decl"})
	}
	return c
}

func uses(c *resource.Catalog, category, name string) int {
	cat, _ := resource.Lookup(category)
	if r := c.Get(cat, name); r != nil {
		return r.Uses()
	}
	return -1
}

// scanText counts references in text as a file of the given dialect.
func scanText(catalog *resource.Catalog, d resource.Dialect, text []byte) int {
	return newIndex(catalog).scanFile(d, text).refs
}

func TestBoundaryRule(t *testing.T) {
	code, markup := resource.DialectCode, resource.DialectMarkup
	tests := []struct {
		name    string
		dialect resource.Dialect
		line    string
		want    int
	}{
		{"end of line", code, `getString(R.string.foo)`, 1},
		{"followed by space", code, `R.string.foo + x`, 1},
		{"followed by quote", markup, `"@string/foo"`, 1},
		{"longer name", code, `R.string.foo_bar`, 0},
		{"dotted continuation", code, `R.string.foo.bar`, 0},
		{"digit continuation", markup, `@string/foo2`, 0},
		{"false positive then real match", code, `R.string.foo_bar, R.string.foo)`, 1},
		{"id alias", code, `findViewById(R.id.foo)`, 1},
		{"markup id alias", markup, `android:layout_below="@id/foo"`, 1},
		{"other type", code, `R.color.foo`, 0},
		{"markup token in code", code, `"@string/foo"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := catalogOf(t, "string", "foo")
			scanText(c, tt.dialect, []byte(tt.line))
			assert.Equal(t, tt.want, uses(c, "string", "foo"))
		})
	}
}

func TestOncePerLine(t *testing.T) {
	c := catalogOf(t, "string", "title")
	scanText(c, resource.DialectCode, []byte("a(R.string.title); b(R.string.title); c(R.id.title)\nR.string.title\n"))
	assert.Equal(t, 2, uses(c, "string", "title"))
}

func TestCrossCategoryIndependence(t *testing.T) {
	c := catalogOf(t, "string", "accent", "color", "accent", "dimen", "accent")
	refs := scanText(c, resource.DialectMarkup, []byte(`<TextView android:text="@string/accent" android:textColor="@color/accent"/>`))

	assert.Equal(t, 2, refs)
	assert.Equal(t, 1, uses(c, "string", "accent"))
	assert.Equal(t, 1, uses(c, "color", "accent"))
	assert.Equal(t, 0, uses(c, "dimen", "accent"))
}

func TestStringArrayUsesArrayType(t *testing.T) {
	c := catalogOf(t, "string-array", "planets")
	scanText(c, resource.DialectMarkup, []byte(`android:entries="@string-array/planets"`))
	assert.Equal(t, 0, uses(c, "string-array", "planets"))

	scanText(c, resource.DialectMarkup, []byte(`android:entries="@array/planets"`))
	scanText(c, resource.DialectCode, []byte(`getStringArray(R.array.planets)`))
	assert.Equal(t, 2, uses(c, "string-array", "planets"))
}

func TestCodeCommentsIgnored(t *testing.T) {
	c := catalogOf(t, "string", "old", "string", "kept")
	scanText(c, resource.DialectCode, []byte("   // getString(R.string.old)\nx = R.string.kept // trailing comment\n"))
	assert.Equal(t, 0, uses(c, "string", "old"))
	assert.Equal(t, 1, uses(c, "string", "kept"))

	// Markup has no line comments: the marker is just text there.
	scanText(c, resource.DialectMarkup, []byte(`// @string/old`))
	assert.Equal(t, 1, uses(c, "string", "old"))
}

func TestStyleAliases(t *testing.T) {
	c := catalogOf(t,
		"style", "AppTheme",
		"style", "Base",
		"style", "Parent",
		"style", "Unused",
		"style", "Theme.App",
	)
	text := `<style name="AppTheme.Dark" parent="@style/Base">
<style name="Child" parent="Parent">
<item name="x">UnusedValue</item>
`
	scanText(c, resource.DialectMarkup, []byte(text))

	assert.Equal(t, 1, uses(c, "style", "AppTheme"), "dotted child keeps its parent")
	assert.Equal(t, 1, uses(c, "style", "Base"))
	assert.Equal(t, 1, uses(c, "style", "Parent"))
	assert.Equal(t, 0, uses(c, "style", "Unused"))

	// The aliases are markup-only; code refers to dotted styles with underscores.
	scanText(c, resource.DialectCode, []byte(`setTheme(R.style.Theme_App); "Unused.x"`))
	assert.Equal(t, 1, uses(c, "style", "Theme.App"))
	assert.Equal(t, 0, uses(c, "style", "Unused"))
}

func TestLayoutBinding(t *testing.T) {
	c := catalogOf(t, "layout", "fragment_main", "layout", "item_row", "layout", "dialog")
	scanText(c, resource.DialectCode, []byte("val b = FragmentMainBinding.inflate(inflater)\nval x = ItemRowBindingImpl()\n"))
	scanText(c, resource.DialectMarkup, []byte(`<include layout="@layout/dialog"/>`))

	assert.Equal(t, 1, uses(c, "layout", "fragment_main"))
	assert.Equal(t, 0, uses(c, "layout", "item_row"), "binding name must end at a boundary")
	assert.Equal(t, 1, uses(c, "layout", "dialog"))
}

func TestScanFiles(t *testing.T) {
	src := source.NewMap(nil)
	src.Set("app/AndroidManifest.xml", []byte(`<application android:label="@string/app_name">`))
	src.Set("app/Main.kt", []byte("setContentView(R.layout.main)\r\nR.drawable.icon\r\n"))
	src.Set("app/notes.txt", []byte("@string/unused"))
	src.Fail("app/Locked.java", errors.New("permission denied"))

	c := catalogOf(t, "string", "app_name", "string", "unused", "layout", "main", "drawable", "icon")

	var ticks atomic.Int32
	s := New(WithSource(src), WithProgress(func() { ticks.Add(1) }))
	stats, err := s.Scan(context.Background(), c, []string{
		"app/AndroidManifest.xml", "app/Main.kt", "app/notes.txt", "app/Locked.java",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.FilesScanned)
	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Equal(t, 3, stats.LinesScanned, "unknown dialects are read but not matched")
	assert.Equal(t, 3, stats.References)
	assert.Equal(t, int32(4), ticks.Load())

	assert.Equal(t, 1, uses(c, "string", "app_name"))
	assert.Equal(t, 0, uses(c, "string", "unused"))
	assert.Equal(t, 1, uses(c, "layout", "main"))
	assert.Equal(t, 1, uses(c, "drawable", "icon"))
}

func TestScanParallelMatchesSequential(t *testing.T) {
	src := source.NewMap(nil)
	var files []string
	for i := 0; i < 40; i++ {
		path := fmt.Sprintf("src/File%d.java", i)
		src.Set(path, []byte(fmt.Sprintf("R.string.s%d\nR.string.shared\n// R.string.s%d\n", i%10, (i+1)%10)))
		files = append(files, path)
	}

	build := func() *resource.Catalog {
		c := resource.NewCatalog()
		c.Add(resource.String, "shared", resource.Location{})
		for i := 0; i < 12; i++ {
			c.Add(resource.String, fmt.Sprintf("s%d", i), resource.Location{})
		}
		return c
	}

	seq := build()
	_, err := New(WithSource(src)).Scan(context.Background(), seq, files)
	require.NoError(t, err)

	par := build()
	_, err = New(WithSource(src), WithWorkers(8)).Scan(context.Background(), par, files)
	require.NoError(t, err)

	for _, r := range seq.Records(resource.String) {
		assert.Equal(t, r.Uses(), par.Get(resource.String, r.Name).Uses(), r.Name)
	}
	assert.Equal(t, 40, seq.Get(resource.String, "shared").Uses())
	assert.Equal(t, 0, seq.Get(resource.String, "s11").Uses())
}

func TestScanCancelled(t *testing.T) {
	src := source.NewMap(nil)
	src.Set("a.xml", []byte("@string/x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := catalogOf(t, "string", "x")
	stats, err := New(WithSource(src)).Scan(ctx, c, []string{"a.xml"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.FilesSkipped, "cancellation is not an unreadable file")
	assert.Equal(t, 0, uses(c, "string", "x"))
}
