package rendering

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
	"go.uber.org/zap"

	"github.com/jonathan/transaction-desk/internal/types"
)

// US Letter in points. Every page of the output has this geometry so that
// instruction coordinates mean the same thing on every template revision.
const (
	PageWidth  = 612.0
	PageHeight = 792.0
)

const (
	coreFamily = "Helvetica"
	ttfFamily  = "SheetSans"
)

// FontSet holds optional TrueType fonts for the regular and bold variants.
// When either is empty the PDF core Helvetica family is used.
type FontSet struct {
	Regular []byte
	Bold    []byte
}

// LoadFontSet reads a regular and a bold TrueType font from disk.
func LoadFontSet(regularPath, boldPath string) (FontSet, error) {
	if regularPath == "" || boldPath == "" {
		return FontSet{}, nil
	}
	regular, err := os.ReadFile(regularPath)
	if err != nil {
		return FontSet{}, fmt.Errorf("failed to read regular font: %w", err)
	}
	bold, err := os.ReadFile(boldPath)
	if err != nil {
		return FontSet{}, fmt.Errorf("failed to read bold font: %w", err)
	}
	return FontSet{Regular: regular, Bold: bold}, nil
}

func (f FontSet) embedded() bool {
	return len(f.Regular) > 0 && len(f.Bold) > 0
}

// Assembler draws positioned text instructions onto a PDF template.
// It is safe for concurrent use; each Assemble call owns its output buffer.
type Assembler struct {
	fonts  FontSet
	logger *zap.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(fonts FontSet, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{fonts: fonts, logger: logger}
}

// Assemble loads template, forces every page to US Letter, appends blank pages
// until every instruction's page exists, draws the instructions in list order
// and returns the serialized document. Nothing is written to disk.
func (a *Assembler) Assemble(template []byte, instructions []types.PositionedTextInstruction) ([]byte, error) {
	for i, in := range instructions {
		if in.Page < 0 {
			return nil, &RenderError{Message: fmt.Sprintf("instruction %d has negative page %d", i, in.Page)}
		}
	}

	templatePages, err := templatePageCount(template)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	face := a.registerFonts(pdf)
	importer := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(template))
	byPage := groupByPage(instructions)

	total := templatePages
	if required := types.MaxPage(instructions) + 1; required > total {
		a.logger.Debug("appending blank pages",
			zap.Int("template_pages", templatePages),
			zap.Int("added", required-templatePages))
		total = required
	}

	for page := 0; page < total; page++ {
		pdf.AddPage()
		if page < templatePages {
			if err := importTemplatePage(pdf, importer, &rs, page+1); err != nil {
				return nil, err
			}
		}
		for _, in := range byPage[page] {
			face.draw(pdf, in)
		}
	}

	if pdf.Err() {
		return nil, &RenderError{Message: "failed to compose document", Cause: pdf.Error()}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{Message: "failed to serialize document", Cause: err}
	}
	return buf.Bytes(), nil
}

func templatePageCount(template []byte) (int, error) {
	if len(template) == 0 {
		return 0, &TemplateError{Message: "template is empty"}
	}
	n, err := PageCount(template)
	if err != nil {
		return 0, &TemplateError{Message: "failed to parse template", Cause: err}
	}
	return n, nil
}

// groupByPage buckets instructions by page, keeping list order within a page.
func groupByPage(instructions []types.PositionedTextInstruction) map[int][]types.PositionedTextInstruction {
	byPage := make(map[int][]types.PositionedTextInstruction)
	for _, in := range instructions {
		byPage[in.Page] = append(byPage[in.Page], in)
	}
	return byPage
}

// importTemplatePage draws one template page onto the current page, scaled to
// fill it. gofpdi reports malformed input by panicking.
func importTemplatePage(pdf *gofpdf.Fpdf, importer *gofpdi.Importer, rs *io.ReadSeeker, page int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TemplateError{Message: fmt.Sprintf("failed to import template page %d: %v", page, r)}
		}
	}()

	tpl := importer.ImportPageFromStream(pdf, rs, page, "/MediaBox")
	importer.UseImportedTemplate(pdf, tpl, 0, 0, PageWidth, PageHeight)
	if pdf.Err() {
		return &TemplateError{Message: fmt.Sprintf("failed to import template page %d", page), Cause: pdf.Error()}
	}
	return nil
}

// fontFace is the pair of font variants registered once per assembly.
type fontFace struct {
	family    string
	translate func(string) string
}

func (a *Assembler) registerFonts(pdf *gofpdf.Fpdf) fontFace {
	if a.fonts.embedded() {
		pdf.AddUTF8FontFromBytes(ttfFamily, "", a.fonts.Regular)
		pdf.AddUTF8FontFromBytes(ttfFamily, "B", a.fonts.Bold)
		return fontFace{family: ttfFamily, translate: func(s string) string { return s }}
	}
	return fontFace{family: coreFamily, translate: pdf.UnicodeTranslatorFromDescriptor("")}
}

// draw renders one instruction. Instruction y is measured from the bottom of
// the page; gofpdf measures from the top.
func (f fontFace) draw(pdf *gofpdf.Fpdf, in types.PositionedTextInstruction) {
	style := ""
	if in.Bold {
		style = "B"
	}
	pdf.SetFont(f.family, style, in.FontSize)

	if in.MaxWidth == nil {
		pdf.Text(in.X, PageHeight-in.Y, f.translate(in.Text))
		return
	}

	measure := func(s string) float64 { return pdf.GetStringWidth(f.translate(s)) }
	cursor := in.Y
	for _, line := range wrapLines(in.Text, *in.MaxWidth, measure) {
		pdf.Text(in.X, PageHeight-cursor, f.translate(line))
		cursor -= in.FontSize * lineHeightFactor
	}
}
