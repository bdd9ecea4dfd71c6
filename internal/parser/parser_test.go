package parser

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"docuchat/internal/models"
)

func TestSupported(t *testing.T) {
	assert.True(t, Supported("notes.txt"))
	assert.True(t, Supported("README.MD"))
	assert.True(t, Supported("deck.pptx"))
	assert.False(t, Supported("archive.tar.gz"))
	assert.False(t, Supported("noextension"))
	assert.Contains(t, SupportedExtensions(), ".pdf")
}

func TestExtractTextPlain(t *testing.T) {
	got, err := ExtractText("doc.txt", []byte("The sky is blue. Grass is green."))
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue. Grass is green.", got)
}

func TestExtractTextRejectsInvalidUTF8(t *testing.T) {
	_, err := ExtractText("doc.txt", []byte{0xff, 0xfe, 0xfd})
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestExtractTextUnsupported(t *testing.T) {
	_, err := ExtractText("image.png", []byte("png"))
	require.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Contains(t, err.Error(), ".png")
}

func TestExtractTextMarkdown(t *testing.T) {
	src := "# Colors\n\nThe sky is **blue**.\n\n- Grass is green\n\n```\ncode line\n```\n"
	got, err := ExtractText("colors.md", []byte(src))
	require.NoError(t, err)

	assert.Contains(t, got, "Colors")
	assert.Contains(t, got, "The sky is blue.")
	assert.Contains(t, got, "Grass is green")
	assert.Contains(t, got, "code line")
	assert.NotContains(t, got, "**")
	assert.NotContains(t, got, "#")
}

func TestExtractTextPPTX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	slides := map[string]string{
		"ppt/slides/slide2.xml":  `<p:sld xmlns:p="p" xmlns:a="a"><a:p><a:r><a:t>Second slide</a:t></a:r></a:p></p:sld>`,
		"ppt/slides/slide1.xml":  `<p:sld xmlns:p="p" xmlns:a="a"><a:p><a:r><a:t>First </a:t></a:r><a:r><a:t>slide</a:t></a:r></a:p></p:sld>`,
		"ppt/slides/slide10.xml": `<p:sld xmlns:p="p" xmlns:a="a"><a:p><a:r><a:t>Tenth slide</a:t></a:r></a:p></p:sld>`,
		"ppt/presentation.xml":   `<p:presentation xmlns:p="p"/>`,
	}
	for name, body := range slides {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	got, err := ExtractText("deck.pptx", buf.Bytes())
	require.NoError(t, err)

	first := strings.Index(got, "First slide")
	second := strings.Index(got, "Second slide")
	tenth := strings.Index(got, "Tenth slide")
	require.True(t, first >= 0 && second > first && tenth > second, "unexpected order: %q", got)
}

func TestExtractTextXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "color"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "thing"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "blue"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "sky"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	for _, name := range []string{"table.xlsx", "table.xlsm"} {
		got, err := ExtractText(name, buf.Bytes())
		require.NoError(t, err, name)
		assert.Contains(t, got, "## Sheet: Sheet1", name)
		assert.Contains(t, got, "color\tthing", name)
		assert.Contains(t, got, "blue\tsky", name)
	}
}

func TestExtractTextCorruptArchive(t *testing.T) {
	_, err := ExtractText("deck.pptx", []byte("not a zip"))
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestXMLTextParagraphs(t *testing.T) {
	doc := `<w:document xmlns:w="w"><w:body>` +
		`<w:p><w:r><w:t>The sky</w:t></w:r><w:r><w:t xml:space="preserve"> is blue.</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Grass is green.</w:t></w:r></w:p>` +
		`</w:body></w:document>`

	got, err := xmlText(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.\nGrass is green.", got)
}
