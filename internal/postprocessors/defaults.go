package postprocessors

import (
	"github.com/policyrag/policyrag/internal/core/ports/driven"
	"github.com/policyrag/policyrag/internal/postprocessors/chunker"
	"github.com/policyrag/policyrag/internal/postprocessors/enricher"
	"github.com/policyrag/policyrag/internal/tokenize"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("enricher", buildEnricher)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - target_tokens (int): preferred chunk size in estimated tokens (default: 750)
//   - max_tokens (int): hard ceiling before a forced split (default: 2048)
//   - overlap_min, overlap_max (int): overlap window in estimated tokens (default: 100, 200)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if n := getIntFromConfig(cfg, "target_tokens"); n > 0 {
			opts = append(opts, chunker.WithTargetTokens(n))
		}
		if n := getIntFromConfig(cfg, "max_tokens"); n > 0 {
			opts = append(opts, chunker.WithMaxTokens(n))
		}
		min, max := getIntFromConfig(cfg, "overlap_min"), getIntFromConfig(cfg, "overlap_max")
		if min > 0 || max > 0 {
			if min == 0 {
				min = chunker.DefaultOverlapMin
			}
			if max == 0 {
				max = chunker.DefaultOverlapMax
			}
			opts = append(opts, chunker.WithOverlapRange(min, max))
		}
	}

	return chunker.New(opts...), nil
}

// buildEnricher creates an enricher processor from generic config. It loads
// the shared Chinese tokenizer for keyword extraction; a load failure is not
// fatal (the enricher still fills category/entity_role/section_id), so it
// falls back to a tokenizer-less processor rather than rejecting the build.
//
// Supported config keys:
//   - top_k_keywords (int): keywords kept per chunk (default: 5)
func buildEnricher(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []enricher.Option

	if tok, err := tokenize.New(); err == nil {
		opts = append(opts, enricher.WithTokenizer(tok))
	}
	if cfg != nil {
		if n := getIntFromConfig(cfg, "top_k_keywords"); n > 0 {
			opts = append(opts, enricher.WithTopKKeywords(n))
		}
	}

	return enricher.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
