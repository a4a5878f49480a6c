package attachment

import (
	"bytes"
	"context"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePDF(t *testing.T) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "Letter", "")
	for i := 0; i < 3; i++ {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "", 12)
		pdf.Text(72, 72, "Closing statement")
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func TestPDFOptimizer_ProducesPDF(t *testing.T) {
	out, err := PDFOptimizer{}.Compress(context.Background(), samplePDF(t), 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestPDFOptimizer_RejectsGarbage(t *testing.T) {
	_, err := PDFOptimizer{}.Compress(context.Background(), []byte("not a pdf"), 0)
	assert.Error(t, err)
}
