package prune

import (
	"testing"

	"github.com/panbanda/resprune/pkg/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeepListMatch(t *testing.T) {
	k, err := CompileKeepList([]string{"ic_launcher*", "string:app_*", "style:Theme.*", " "})
	require.NoError(t, err)
	assert.Equal(t, 3, k.Len())

	tests := []struct {
		cat  *resource.Category
		name string
		want bool
	}{
		{resource.Drawable, "ic_launcher", true},
		{resource.Drawable, "ic_launcher_round", true},
		{resource.String, "app_name", true},
		{resource.Color, "app_accent", false},
		{resource.Style, "Theme.App", true},
		{resource.Style, "Theme.App.Dark", false},
		{resource.Style, "AppTheme", false},
	}
	for _, tt := range tests {
		t.Run(tt.cat.Name+"/"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, k.Match(tt.cat, tt.name))
		})
	}
}

func TestKeepListUnknownCategory(t *testing.T) {
	_, err := CompileKeepList([]string{"plurals:*"})
	assert.ErrorContains(t, err, "unknown category")
}

func TestKeepListInvalidGlob(t *testing.T) {
	_, err := CompileKeepList([]string{"[abc"})
	assert.Error(t, err)
}

func TestKeepListApply(t *testing.T) {
	c := resource.NewCatalog()
	c.Add(resource.String, "app_name", resource.Location{Path: "strings.xml"})
	c.Add(resource.String, "title", resource.Location{Path: "strings.xml"})
	c.Add(resource.Drawable, "app_icon", resource.Location{Path: "drawable/app_icon.png"})

	k, err := CompileKeepList([]string{"string:app_*"})
	require.NoError(t, err)
	assert.Equal(t, 1, k.Apply(c))

	unused := c.Unused()
	require.Len(t, unused, 2)
	assert.Equal(t, "title", unused[0].Name)
	assert.Equal(t, "app_icon", unused[1].Name)
}

func TestKeepListNil(t *testing.T) {
	var k *KeepList
	assert.Equal(t, 0, k.Len())
	assert.False(t, k.Match(resource.String, "x"))
	assert.Equal(t, 0, k.Apply(resource.NewCatalog()))
}
