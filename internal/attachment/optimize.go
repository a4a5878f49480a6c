package attachment

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	api.DisableConfigDir()
}

// PDFOptimizer is a Compressor that rewrites a PDF with pdfcpu's optimizer,
// dropping duplicate fonts, images and unused objects. It is lossless, so the
// target is advisory and repeated rounds converge quickly.
type PDFOptimizer struct{}

// Compress optimizes blob. The target size is ignored.
func (PDFOptimizer) Compress(ctx context.Context, blob []byte, target int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(blob), &out, conf); err != nil {
		return nil, fmt.Errorf("failed to optimize pdf: %w", err)
	}
	return out.Bytes(), nil
}
