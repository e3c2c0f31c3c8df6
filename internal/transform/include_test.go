package transform

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
)

func TestIncluder_InlinesAtDirective(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "partials", "header.html"), []byte("<header>Hi</header>"))
	page := filepath.Join(dir, "index.html")
	writeTestFile(t, page, []byte("<body>@@include('partials/header.html')<main></main></body>"))

	out, err := NewIncluder().File(page)
	require.NoError(t, err)
	assert.Equal(t, "<body><header>Hi</header><main></main></body>", string(out))
}

func TestIncluder_Variables(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "_card.html"),
		[]byte(`<h2>@@title</h2><p>@@titleText</p><i>@@count</i>`))
	page := filepath.Join(dir, "index.html")
	writeTestFile(t, page, []byte(`@@include("_card.html", {"title": "Cast", "titleText": "The cast", "count": 3})`))

	out, err := NewIncluder().File(page)
	require.NoError(t, err)
	assert.Equal(t, "<h2>Cast</h2><p>The cast</p><i>3</i>", string(out))
}

func TestIncluder_NestedIncludesInheritVariables(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a", "outer.html"), []byte(`[@@include('inner.html')]`))
	writeTestFile(t, filepath.Join(dir, "a", "inner.html"), []byte(`@@name`))
	page := filepath.Join(dir, "index.html")
	writeTestFile(t, page, []byte(`@@include('a/outer.html', {"name": "nested"})`))

	out, err := NewIncluder().File(page)
	require.NoError(t, err)
	assert.Equal(t, "[nested]", string(out))
}

func TestIncluder_ShortVariableNames(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "_a.html"), []byte(`<p>@@i</p><b>@@items</b>@@include('_b.html')`))
	writeTestFile(t, filepath.Join(dir, "_b.html"), []byte(`<footer>@@i</footer>`))
	page := filepath.Join(dir, "index.html")
	writeTestFile(t, page, []byte(`@@include('_a.html', {"i": "X"})`))

	out, err := NewIncluder().File(page)
	require.NoError(t, err)
	assert.Equal(t, "<p>X</p><b>@@items</b><footer>X</footer>", string(out))
}

func TestIncluder_Markdown(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "bio.md"), []byte("# @@who\n\nBorn in *Ohio*."))
	page := filepath.Join(dir, "index.html")
	writeTestFile(t, page, []byte(`<section>@@include('bio.md', {"who": "Director"})</section>`))

	out, err := NewIncluder().File(page)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<h1>Director</h1>")
	assert.Contains(t, string(out), "<em>Ohio</em>")
}

func TestIncluder_Cycle(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.html"), []byte(`@@include('b.html')`))
	writeTestFile(t, filepath.Join(dir, "b.html"), []byte(`@@include('a.html')`))

	_, err := NewIncluder().File(filepath.Join(dir, "a.html"))
	require.Error(t, err)
	assert.Equal(t, "TRANSFORM-"+buildErrors.CodeTransformIncludes, buildErrors.GetErrorCode(err))
}

func TestIncluder_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		code    string
	}{
		{"missing file", `@@include('nope.html')`, "SOURCE-" + buildErrors.CodeSourceNotFound},
		{"unquoted path", `@@include(nope.html)`, "TRANSFORM-" + buildErrors.CodeTransformFailed},
		{"bad json", `@@include('x.html', {bad})`, "TRANSFORM-" + buildErrors.CodeTransformFailed},
		{"unclosed", `@@include('x.html'`, "TRANSFORM-" + buildErrors.CodeTransformFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIncluder().Bytes([]byte(tt.content), filepath.Join(dir, "page.html"))
			require.Error(t, err)
			assert.Equal(t, tt.code, buildErrors.GetErrorCode(err))
		})
	}
}

func TestBuildHTML_SkipsPartials(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTestFile(t, filepath.Join(src, "_footer.html"), []byte("<footer/>"))
	writeTestFile(t, filepath.Join(src, "index.html"), []byte("<p>home</p>@@include('_footer.html')"))
	writeTestFile(t, filepath.Join(src, "cast.html"), []byte("<p>cast</p>"))

	n, err := BuildHTML(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "<p>home</p><footer/>", string(readTestFile(t, filepath.Join(dst, "index.html"))))
	assert.NoFileExists(t, filepath.Join(dst, "_footer.html"))
}
