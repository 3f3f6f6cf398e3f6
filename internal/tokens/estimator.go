// Package tokens estimates prompt token counts. The estimate is advisory
// bookkeeping only: it never gates a request, since the provider's own count
// is authoritative.
package tokens

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// Estimator counts tokens with a BPE codec.
type Estimator struct {
	codec tokenizer.Codec
}

// NewEstimator loads the cl100k_base encoding, a reasonable cross-provider
// approximation.
func NewEstimator() (*Estimator, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	return &Estimator{codec: codec}, nil
}

// Estimate returns the approximate token count of the given text.
func (e *Estimator) Estimate(text string) (int, error) {
	count, err := e.codec.Count(text)
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return count, nil
}
