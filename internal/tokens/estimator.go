// Package tokens estimates prompt token counts for logging and output
// budgeting.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	"github.com/mangodesk/summary-gateway/internal/config"
)

// Estimator counts tokens with tiktoken, falling back to a chars/4 estimate
// when the encoding cannot be loaded (e.g. offline first run).
type Estimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewEstimator creates an Estimator. The encoding is loaded lazily on first
// use.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Count returns the estimated token count of text.
func (e *Estimator) Count(text string) int {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Debug().Err(err).Msg("tiktoken unavailable, using char ratio estimate")
			return
		}
		e.enc = enc
	})
	if e.enc == nil {
		return len(text) / config.TokenEstimateRatio
	}
	return len(e.enc.Encode(text, nil, nil))
}
