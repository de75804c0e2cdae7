package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/panbanda/resprune/internal/testutil"
	"github.com/panbanda/resprune/pkg/config"
	"github.com/panbanda/resprune/pkg/resource"
	"github.com/panbanda/resprune/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const valuesXML = `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="app_name">Demo</string>
    <string name="unused">Unused</string>
    <string-array name="planets">
        <item>Mercury</item>
    </string-array>
    <style name="AppTheme" parent="Theme.Material">
        <item name="android:colorPrimary">@color/primary</item>
    </style>
    <dimen name="margin">8dp</dimen>
    <color name="primary">#FF0000</color>
</resources>
`

const frenchXML = `<resources>
    <string name="app_name">Démo</string>
</resources>
`

func fixture(t *testing.T) *testutil.Project {
	return testutil.AndroidProject(t, map[string]string{
		"app/src/main/res/values/strings.xml":            valuesXML,
		"app/src/main/res/values-fr/strings.xml":         frenchXML,
		"app/src/main/res/values/analytics.xml":          `<string name="ga_id">UA-1</string>`,
		"app/src/main/res/drawable/icon.png":             "PNG",
		"app/src/main/res/drawable-hdpi/icon.png":        "PNG",
		"app/src/main/res/drawable-hdpi/bubble.9.png":    "PNG",
		"app/src/main/res/drawable/selector.xml":         "<selector/>",
		"app/src/main/res/drawable/notes.txt":            "not a resource",
		"app/src/main/res/drawable/analytics.xml":        "<shape/>",
		"app/src/main/res/layout/activity_main.xml":      "<LinearLayout/>",
		"app/src/main/res/layout/preview.png":            "PNG",
		"app/src/main/res/layout-land/activity_main.xml": "<LinearLayout/>",
		"app/build/intermediates/res/values/gen.xml":     `<string name="generated">x</string>`,
		"lib/src/main/res/values/colors.xml":             `<color name="lib_color">#000</color>`,
		"app/src/main/values/orphan.xml":                 `<string name="orphan">x</string>`,
	})
}

func TestIndexProject(t *testing.T) {
	p := fixture(t)

	ix := New(nil)
	catalog, err := ix.Index(context.Background(), p.Base)
	require.NoError(t, err)

	assert.Equal(t, []string{"app_name", "unused"}, catalog.Names(resource.String))
	assert.Equal(t, []string{"planets"}, catalog.Names(resource.StringArray))
	assert.Equal(t, []string{"AppTheme"}, catalog.Names(resource.Style))
	assert.Equal(t, []string{"margin"}, catalog.Names(resource.Dimen))
	assert.Equal(t, []string{"lib_color", "primary"}, catalog.Names(resource.Color))
	assert.Equal(t, []string{"bubble", "icon", "selector"}, catalog.Names(resource.Drawable))
	assert.Equal(t, []string{"activity_main"}, catalog.Names(resource.Layout))

	stats := ix.Stats()
	assert.Equal(t, 2, stats.ResDirs)
	assert.Equal(t, 3, stats.FilesRead, "analytics.xml is excluded")
	assert.Zero(t, stats.FilesSkipped)
}

func TestIndexLocations(t *testing.T) {
	p := fixture(t)

	catalog, err := New(nil).Index(context.Background(), p.Base)
	require.NoError(t, err)

	appName := catalog.Get(resource.String, "app_name")
	require.NotNil(t, appName)
	assert.Equal(t, []resource.Location{
		{Path: p.Path("app/src/main/res/values/strings.xml"), StartLine: 3, EndLine: 3},
		{Path: p.Path("app/src/main/res/values-fr/strings.xml"), StartLine: 2, EndLine: 2},
	}, appName.Locations)

	planets := catalog.Get(resource.StringArray, "planets")
	require.NotNil(t, planets)
	assert.Equal(t, 5, planets.Locations[0].StartLine)
	assert.Equal(t, 7, planets.Locations[0].EndLine)

	theme := catalog.Get(resource.Style, "AppTheme")
	require.NotNil(t, theme)
	assert.Equal(t, 8, theme.Locations[0].StartLine)
	assert.Equal(t, 10, theme.Locations[0].EndLine)

	icon := catalog.Get(resource.Drawable, "icon")
	require.NotNil(t, icon)
	assert.Equal(t, []string{
		p.Path("app/src/main/res/drawable/icon.png"),
		p.Path("app/src/main/res/drawable-hdpi/icon.png"),
	}, icon.Files())

	layout := catalog.Get(resource.Layout, "activity_main")
	require.NotNil(t, layout)
	assert.Len(t, layout.Locations, 2)
}

func TestIndexIsIdempotent(t *testing.T) {
	p := fixture(t)
	ix := New(nil)

	first, err := ix.Index(context.Background(), p.Base)
	require.NoError(t, err)
	second, err := ix.Index(context.Background(), p.Base)
	require.NoError(t, err)

	assert.Equal(t, first.Summary(), second.Summary())
	for _, cat := range resource.Categories {
		assert.Equal(t, first.Names(cat), second.Names(cat), cat.Name)
	}
}

func TestIndexSkipsUnreadableFiles(t *testing.T) {
	p := fixture(t)

	src := source.NewMap(source.NewFilesystem())
	src.Fail(p.Path("app/src/main/res/values/strings.xml"), errors.New("permission denied"))

	ix := New(nil, WithSource(src))
	catalog, err := ix.Index(context.Background(), p.Base)
	require.NoError(t, err)

	assert.Equal(t, []string{"app_name"}, catalog.Names(resource.String), "French file still indexed")
	assert.Equal(t, 1, ix.Stats().FilesSkipped)
	assert.Equal(t, 0, catalog.Count(resource.Style))
}

func TestIndexCustomExclusions(t *testing.T) {
	p := fixture(t)

	cfg := config.DefaultConfig()
	cfg.Resources.ExcludeFiles = []string{"selector.xml"}
	cfg.Exclude.Dirs = append(cfg.Exclude.Dirs, "lib")

	catalog, err := New(cfg).Index(context.Background(), p.Base)
	require.NoError(t, err)

	assert.Nil(t, catalog.Get(resource.Drawable, "selector"))
	assert.NotNil(t, catalog.Get(resource.Drawable, "analytics"), "only configured names are excluded")
	assert.Nil(t, catalog.Get(resource.Color, "lib_color"))
	assert.NotNil(t, catalog.Get(resource.String, "ga_id"))
}

func TestIndexExcludeFunc(t *testing.T) {
	p := fixture(t)

	var seen []string
	exclude := func(path string, isDir bool) bool {
		rel, err := filepath.Rel(p.Base, path)
		require.NoError(t, err)
		rel = filepath.ToSlash(rel)
		seen = append(seen, rel)
		return rel == "lib" || rel == "app/src/main/res/drawable-hdpi" ||
			rel == "app/src/main/res/values-fr/strings.xml"
	}

	ix := New(nil, WithExclude(exclude))
	catalog, err := ix.Index(context.Background(), p.Base)
	require.NoError(t, err)

	assert.Nil(t, catalog.Get(resource.Color, "lib_color"))
	assert.Nil(t, catalog.Get(resource.Drawable, "bubble"), "only declared in an excluded directory")

	icon := catalog.Get(resource.Drawable, "icon")
	require.NotNil(t, icon)
	assert.Len(t, icon.Locations, 1)

	appName := catalog.Get(resource.String, "app_name")
	require.NotNil(t, appName)
	assert.Len(t, appName.Locations, 1)

	assert.Equal(t, 3, ix.Stats().Excluded)
	assert.Contains(t, seen, "app/src/main/res/values/strings.xml")
}

func TestIndexDuplicateInSameFile(t *testing.T) {
	p := testutil.AndroidProject(t, map[string]string{
		"app/res/values/strings.xml": "<resources>\n" +
			"<string name=\"title\">A</string>\n" +
			"<string name=\"title\">B</string>\n" +
			"</resources>\n",
	})

	ix := New(nil)
	catalog, err := ix.Index(context.Background(), p.Base)
	require.NoError(t, err)

	title := catalog.Get(resource.String, "title")
	require.NotNil(t, title)
	assert.Len(t, title.Locations, 2)
	assert.Equal(t, 1, catalog.Count(resource.String))
	assert.Equal(t, 1, ix.Stats().Duplicates)
}

func TestIndexUnterminatedBlock(t *testing.T) {
	p := testutil.AndroidProject(t, map[string]string{
		"app/res/values/styles.xml": "<resources>\n" +
			"<style name=\"Broken\">\n" +
			"<item name=\"x\">y</item>\n",
	})

	catalog, err := New(nil).Index(context.Background(), p.Base)
	require.NoError(t, err)

	broken := catalog.Get(resource.Style, "Broken")
	require.NotNil(t, broken)
	assert.Equal(t, 2, broken.Locations[0].StartLine)
	assert.Equal(t, 3, broken.Locations[0].EndLine)
}

func TestIndexMissingBase(t *testing.T) {
	catalog, err := New(nil).Index(context.Background(), "/nonexistent/base")
	require.NoError(t, err)
	assert.Zero(t, catalog.Len())
}

func TestIndexCancelled(t *testing.T) {
	p := fixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil).Index(ctx, p.Base)
	assert.ErrorIs(t, err, context.Canceled)
}
