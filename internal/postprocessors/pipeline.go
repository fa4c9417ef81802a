// Package postprocessors provides the chunking and enrichment stages that
// turn a document's rendered Markdown into retrieval-ready PolicyChunks.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/core/ports/driven"
)

// Pipeline chains multiple PostProcessors and runs them in order.
// It implements the PostProcessorPipeline interface.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided: typically a chunker first,
// then an enricher.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the document through all processors in order.
// The first processor receives nil chunks and should create them from
// markdown. Subsequent processors receive and may modify the chunks.
func (p *Pipeline) Process(ctx context.Context, dctx driven.DocumentContext, markdown string) ([]domain.PolicyChunk, error) {
	var chunks []domain.PolicyChunk

	for _, processor := range p.processors {
		var err error
		chunks, err = processor.Process(ctx, dctx, markdown, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	return chunks, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
