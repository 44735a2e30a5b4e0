package budget

import (
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// UnitEstimator estimates the budget unit cost of a piece of content.
//
// Units approximate language-model input tokens. When the tiktoken
// encoding loads, real BPE token counts are used; otherwise the estimate
// falls back to content length divided by four, a crude but serviceable
// proxy. Both are approximations, not a contract with any one model.
type UnitEstimator struct {
	encoding *tiktoken.Tiktoken
}

// NewUnitEstimator creates an estimator for the named tiktoken encoding
// (e.g. "cl100k_base"). A failed load is not an error: the estimator
// quietly uses the length fallback.
func NewUnitEstimator(encodingName string, logger *zap.Logger) *UnitEstimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if encodingName == "" {
		return &UnitEstimator{}
	}
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		logger.Debug("tiktoken encoding unavailable, using length fallback",
			zap.String("encoding", encodingName), zap.Error(err))
		return &UnitEstimator{}
	}
	return &UnitEstimator{encoding: encoding}
}

// Estimate returns the unit cost of text. Never zero for non-empty text,
// so a zero budget always yields an empty selection.
func (u *UnitEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	if u.encoding != nil {
		return len(u.encoding.Encode(text, nil, nil))
	}
	units := len(text) / 4
	if units == 0 {
		units = 1
	}
	return units
}
