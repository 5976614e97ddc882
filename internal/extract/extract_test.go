package extract

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExtractor_IsPaged_OnlyPDF(t *testing.T) {
	e := New()
	assert.True(t, e.IsPaged("report.pdf"))
	assert.False(t, e.IsPaged("notes.txt"))
	assert.False(t, e.IsPaged("image.png"))
}

func TestFileExtractor_ExtractText_PlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello from disk"), 0o644))

	e := New()
	text, err := e.ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "hello from disk", text)
}

func TestFileExtractor_ExtractText_ExtensionlessUTF8File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "somefile")
	require.NoError(t, os.WriteFile(path, []byte("plain utf8 content"), 0o644))

	e := New()
	text, err := e.ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "plain utf8 content", text)
}

func TestFileExtractor_ExtractText_ExtensionlessBinaryFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "binaryfile")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0xff}, 0o644))

	e := New()
	text, err := e.ExtractText(path)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestFileExtractor_ExtractText_UnsupportedOfficeFormatIsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slides.pptx")
	require.NoError(t, os.WriteFile(path, []byte("not a real pptx"), 0o644))

	e := New()
	text, err := e.ExtractText(path)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestFileExtractor_ExtractText_HTMLStripsTags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	html := `<html><body><h1>Title</h1><p>Hello <b>world</b></p><script>evil()</script></body></html>`
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	e := New()
	text, err := e.ExtractText(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Hello")
	assert.Contains(t, text, "world")
	assert.NotContains(t, text, "evil()")
}

func TestFileExtractor_ExtractPages_NonPagedWrapsAsSinglePage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("one page of content"), 0o644))

	e := New()
	pages, err := e.ExtractPages(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 0, pages[0].PageNum)
	assert.Equal(t, 1, pages[0].TotalPages)
	assert.Equal(t, "one page of content", pages[0].Text)
}

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) ExtractText(string) (string, error) { return f.text, f.err }

func TestFileExtractor_ExtractImage_DelegatesToInjectedOCREngine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	// a 1x1 png is enough: preprocessImage only resizes when over the cap
	var onePxPNG bytes.Buffer
	require.NoError(t, png.Encode(&onePxPNG, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	require.NoError(t, os.WriteFile(path, onePxPNG.Bytes(), 0o644))

	e := NewWithOCR(fakeOCR{text: "recognized text"})
	text, err := e.ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "recognized text", text)
}
