package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-docingest/internal/ocr"
	"github.com/nerdneilsfield/go-docingest/pkg/document"
)

const slideOneXML = `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
       xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:cSld><p:spTree>
    <p:sp><p:txBody><a:p><a:r><a:t>Quarterly Review</a:t></a:r></a:p></p:txBody></p:sp>
    <p:sp><p:txBody><a:p><a:r><a:t>Revenue grew steadily</a:t></a:r></a:p></p:txBody></p:sp>
    <p:pic><p:blipFill><a:blip r:embed="rId2"/></p:blipFill></p:pic>
  </p:spTree></p:cSld>
</p:sld>`

const slideOneRels = `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId2" Target="../media/image1.png"/>
</Relationships>`

const slideTwoXML = `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
       xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree>
    <p:sp><p:txBody><a:p><a:r><a:t>Closing remarks</a:t></a:r></a:p></p:txBody></p:sp>
  </p:spTree></p:cSld>
</p:sld>`

// writePptx 在临时目录生成一个最小的 .pptx 文件
func writePptx(t *testing.T, withImage bool) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "deck.pptx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	write := func(name, content string) {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}

	write("ppt/slides/slide1.xml", slideOneXML)
	write("ppt/slides/slide2.xml", slideTwoXML)

	if withImage {
		write("ppt/slides/_rels/slide1.xml.rels", slideOneRels)

		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 60, 60))))
		entry, err := w.Create("ppt/media/image1.png")
		require.NoError(t, err)
		_, err = entry.Write(buf.Bytes())
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return path
}

func TestProcessSlidesWithImageOCR(t *testing.T) {
	path := writePptx(t, true)

	p, err := NewProcessor(document.ProcessorOptions{
		OCR: &ocr.Fake{Text: "embedded chart caption"},
	})
	require.NoError(t, err)

	chunks, err := p.Process(context.Background(), path)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	text := chunks[0].Text
	assert.Contains(t, text, "Slide 1:")
	assert.Contains(t, text, "Quarterly Review")
	assert.Contains(t, text, "Revenue grew steadily")
	assert.Contains(t, text, "[Image OCR]: embedded chart caption")
	assert.Contains(t, text, "Slide 2:")
	assert.Contains(t, text, "Closing remarks")

	md := chunks[0].Metadata
	assert.Equal(t, "powerpoint", md["file_type"])
	assert.Equal(t, 2, md["total_slides"])
	assert.Equal(t, 1, md["images_found"])
}

func TestProcessWithoutRecognizer(t *testing.T) {
	// 没有识别引擎时仍抽取形状文本，只是不产出图片标注
	path := writePptx(t, true)

	p, err := NewProcessor(document.ProcessorOptions{})
	require.NoError(t, err)

	chunks, err := p.Process(context.Background(), path)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.NotContains(t, chunks[0].Text, "[Image OCR]")
	assert.Equal(t, 0, chunks[0].Metadata["images_found"])
}

func TestProcessCorruptArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pptx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	p, err := NewProcessor(document.ProcessorOptions{})
	require.NoError(t, err)

	_, err = p.Process(context.Background(), path)
	require.Error(t, err)

	var extractionErr *document.ExtractionError
	assert.ErrorAs(t, err, &extractionErr)
}

func TestProcessNoSlides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pptx")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	p, err := NewProcessor(document.ProcessorOptions{})
	require.NoError(t, err)

	chunks, err := p.Process(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
