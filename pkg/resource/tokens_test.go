package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsToken(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		token string
		want  bool
	}{
		{"end of line", `setText(R.string.foo`, "R.string.foo", true},
		{"followed by paren", `setText(R.string.foo)`, "R.string.foo", true},
		{"followed by quote", `android:text="@string/foo"`, "@string/foo", true},
		{"followed by space", `@string/foo bar`, "@string/foo", true},
		{"underscore continuation", `R.string.foo_bar)`, "R.string.foo", false},
		{"dot continuation", `"@style/foo.bar"`, "@style/foo", false},
		{"letter continuation", `R.string.foobar`, "R.string.foo", false},
		{"digit continuation", `R.string.foo2`, "R.string.foo", false},
		{
			"false positive then valid on same line",
			`int id = on ? R.drawable.thumb_lock : R.drawable.thumb;`,
			"R.drawable.thumb",
			true,
		},
		{
			"only false positives",
			`on ? R.drawable.thumb_lock : R.drawable.thumb_open`,
			"R.drawable.thumb",
			false,
		},
		{"absent", `nothing here`, "R.string.foo", false},
		{"empty token", `anything`, "", false},
		{"non-ascii letter continues identifier", `R.string.fooé`, "R.string.foo", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsToken(tt.line, tt.token))
		})
	}
}

func TestContainsIdentifier(t *testing.T) {
	assert.True(t, ContainsIdentifier(`MainBinding.inflate(x)`, "MainBinding"))
	assert.True(t, ContainsIdentifier(`val b: MainBinding`, "MainBinding"))
	assert.False(t, ContainsIdentifier(`MainBindingImpl.inflate(x)`, "MainBinding"))
	assert.True(t, ContainsIdentifier(`MainBinding_x MainBinding)`, "MainBinding"))
	assert.False(t, ContainsIdentifier(`anything`, ""))
}

func TestBindingName(t *testing.T) {
	tests := []struct {
		layout string
		want   string
	}{
		{"fragment_disabled", "FragmentDisabledBinding"},
		{"activity_main", "ActivityMainBinding"},
		{"main", "MainBinding"},
		{"item__double", "ItemDoubleBinding"},
		{"list_item_2", "ListItem2Binding"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			assert.Equal(t, tt.want, BindingName(tt.layout))
		})
	}
}

func TestCodeName(t *testing.T) {
	assert.Equal(t, "Theme_App_Dark", CodeName("Theme.App.Dark"))
	assert.Equal(t, "plain_name", CodeName("plain_name"))
}

func TestCategoryTokens(t *testing.T) {
	assert.Equal(t,
		[]string{"@array/planets", "@id/planets"},
		StringArray.Tokens(DialectMarkup, "planets"))
	assert.Equal(t,
		[]string{"R.style.Theme_App", "R.id.Theme_App"},
		Style.Tokens(DialectCode, "Theme.App"))
	assert.Equal(t,
		[]string{"R.layout.fragment_main", "R.id.fragment_main"},
		Layout.Tokens(DialectCode, "fragment_main"))
	assert.Equal(t,
		[]string{"FragmentMainBinding"},
		Layout.Identifiers(DialectCode, "fragment_main"))
	assert.Empty(t, Layout.Identifiers(DialectMarkup, "fragment_main"))
	assert.Empty(t, String.Identifiers(DialectCode, "app_name"))
	assert.Equal(t,
		[]string{"@layout/fragment_main", "@id/fragment_main"},
		Layout.Tokens(DialectMarkup, "fragment_main"))
}

func TestRecordReferencedBy(t *testing.T) {
	tests := []struct {
		name    string
		cat     *Category
		resName string
		dialect Dialect
		line    string
		want    bool
	}{
		{"markup string", String, "app_name", DialectMarkup, `<TextView android:text="@string/app_name"/>`, true},
		{"markup id alias", Color, "accent", DialectMarkup, `android:layout_below="@id/accent"`, true},
		{"code dimen", Dimen, "margin", DialectCode, `int m = getDimension(R.dimen.margin);`, true},
		{"code id alias", Drawable, "icon", DialectCode, `findViewById(R.id.icon)`, true},
		{"code dotted style", Style, "Theme.App", DialectCode, `setTheme(R.style.Theme_App);`, true},
		{"code binding", Layout, "fragment_main", DialectCode, `FragmentMainBinding b = inflate();`, true},
		{"binding member access", Layout, "fragment_main", DialectCode, `val b = FragmentMainBinding.inflate(inflater)`, true},
		{"binding method reference", Layout, "fragment_main", DialectCode, `bind(FragmentMainBinding::bind)`, true},
		{"layout token before dot", Layout, "main", DialectCode, `R.layout.main.x`, false},
		{"binding prefix only", Layout, "fragment_main", DialectCode, `FragmentMainBindingImpl b;`, false},
		{"markup binding is not a token", Layout, "fragment_main", DialectMarkup, `FragmentMainBinding`, false},
		{"array type for string-array", StringArray, "planets", DialectCode, `getStringArray(R.array.planets)`, true},
		{"string-array tag is not a reference", StringArray, "planets", DialectCode, `R.string-array.planets`, false},
		{"style parent attr", Style, "Base", DialectMarkup, `<style name="Green" parent="Base">`, true},
		{"style parent ref", Style, "Base", DialectMarkup, `<style name="Green" parent="@style/Base">`, true},
		{"style dotted child", Style, "Base", DialectMarkup, `<style name="Base.Variant">`, true},
		{"style own declaration", Style, "Base", DialectMarkup, `<style name="Base">`, false},
		{"style aliases only in markup", Style, "Base", DialectCode, `String s = "Base.Variant";`, false},
		{"other category", String, "title", DialectMarkup, `@color/title`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRecord(tt.cat, tt.resName)
			assert.Equal(t, tt.want, r.ReferencedBy(tt.dialect, tt.line))
		})
	}
}

func TestMayReference(t *testing.T) {
	assert.True(t, String.MayReference(DialectMarkup, `@string/x`))
	assert.True(t, String.MayReference(DialectMarkup, `@id/x`))
	assert.False(t, String.MayReference(DialectMarkup, `@color/x`))
	assert.True(t, Layout.MayReference(DialectCode, `MainBinding.inflate()`))
	assert.True(t, Style.MayReference(DialectMarkup, `<style name="A.B">`))
	assert.False(t, Dimen.MayReference(DialectCode, `// nothing`))
}

func TestDialect(t *testing.T) {
	d := DefaultDetector()
	assert.Equal(t, DialectMarkup, d.Detect("res/layout/main.xml"))
	assert.Equal(t, DialectMarkup, d.Detect("AndroidManifest.XML"))
	assert.Equal(t, DialectCode, d.Detect("Main.java"))
	assert.Equal(t, DialectCode, d.Detect("Main.kt"))
	assert.Equal(t, DialectUnknown, d.Detect("icon.png"))

	assert.True(t, DialectCode.IsComment("   // R.string.foo"))
	assert.False(t, DialectCode.IsComment("call(); // R.string.foo"))
	assert.False(t, DialectMarkup.IsComment("// not a comment in xml"))
	assert.Equal(t, "markup", DialectMarkup.String())
}
