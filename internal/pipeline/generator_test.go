package pipeline

import (
	"bytes"
	"context"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/transaction-desk/internal/rendering"
)

func blankTemplate(t *testing.T) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.AddPage()
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func TestLocalGenerator_Generate(t *testing.T) {
	gen := NewLocalGenerator(rendering.NewTemplateFromBytes(blankTemplate(t)), rendering.NewAssembler(rendering.FontSet{}, nil))

	doc, err := gen.Generate(context.Background(), testRecord())
	require.NoError(t, err)

	pages, err := rendering.PageCount(doc)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pages, 1)
}

func TestLocalGenerator_MissingTemplate(t *testing.T) {
	gen := NewLocalGenerator(rendering.NewTemplate("/nonexistent/template.pdf"), rendering.NewAssembler(rendering.FontSet{}, nil))

	_, err := gen.Generate(context.Background(), testRecord())
	var templateErr *rendering.TemplateError
	require.ErrorAs(t, err, &templateErr)
}

func TestLocalGenerator_CancelledContext(t *testing.T) {
	gen := NewLocalGenerator(rendering.NewTemplateFromBytes(blankTemplate(t)), rendering.NewAssembler(rendering.FontSet{}, nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, testRecord())
	require.ErrorIs(t, err, context.Canceled)
}
