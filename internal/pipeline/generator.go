package pipeline

import (
	"context"

	"github.com/jonathan/transaction-desk/internal/mapping"
	"github.com/jonathan/transaction-desk/internal/rendering"
	"github.com/jonathan/transaction-desk/internal/types"
)

// Generator produces the transaction sheet for a saved record.
type Generator interface {
	Generate(ctx context.Context, rec types.TransactionRecord) ([]byte, error)
}

// LocalGenerator maps and assembles in-process against a shared template.
type LocalGenerator struct {
	template  *rendering.Template
	assembler *rendering.Assembler
}

// NewLocalGenerator creates a LocalGenerator.
func NewLocalGenerator(template *rendering.Template, assembler *rendering.Assembler) *LocalGenerator {
	return &LocalGenerator{template: template, assembler: assembler}
}

// Generate runs the field mapper and the document assembler.
func (g *LocalGenerator) Generate(ctx context.Context, rec types.TransactionRecord) ([]byte, error) {
	tmpl, err := g.template.Bytes()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.assembler.Assemble(tmpl, mapping.Map(rec))
}
