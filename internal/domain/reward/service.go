package reward

import "errors"

// Common errors
var (
	ErrInvalidLengthMetric  = errors.New("length metric must be positive")
	ErrInvalidReadingLevel  = errors.New("reading level must be positive")
	ErrScoreOutOfRange      = errors.New("score must be between 0 and 100")
	ErrInvalidWPM           = errors.New("wpm used must be positive")
	ErrInvalidAttemptNumber = errors.New("attempt number must be at least 1")
)

// Input carries the inputs of one reward calculation. LengthMetric is the
// content's canonical word count; AttemptNumber is 1-based and supplied by
// the caller from its own attempt history.
type Input struct {
	LengthMetric  int
	ReadingLevel  float64
	ScorePct      float64
	WPMUsed       int
	AttemptNumber int
}

// Result is the outcome of a reward calculation. Passed reports whether the
// score met the passing threshold regardless of the award size: a retry
// diminished to zero XP still passes. Perfect reports a 100% score, which
// upstream grants a free-comment credit and may trigger speed progression.
type Result struct {
	XPAwarded int64 `json:"xp_awarded"`
	Passed    bool  `json:"passed"`
	Perfect   bool  `json:"perfect"`
}

// Service defines the interface for reward calculation operations
type Service interface {
	// CalculateReward computes the XP award for a graded quiz attempt
	CalculateReward(input Input) (Result, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new reward service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new reward service with custom parameters
func NewServiceWithParams(params *Params) Service {
	return &defaultService{
		params: params,
	}
}

// CalculateReward implements the Service interface for computing quiz rewards
func (s *defaultService) CalculateReward(input Input) (Result, error) {
	// Validate inputs
	if input.LengthMetric < 1 {
		return Result{}, ErrInvalidLengthMetric
	}

	if input.ReadingLevel <= 0 {
		return Result{}, ErrInvalidReadingLevel
	}

	if input.ScorePct < 0 || input.ScorePct > 100 {
		return Result{}, ErrScoreOutOfRange
	}

	if input.WPMUsed < 1 {
		return Result{}, ErrInvalidWPM
	}

	if input.AttemptNumber < 1 {
		return Result{}, ErrInvalidAttemptNumber
	}

	// Use the pure calculation function to get the award
	return calculateReward(input, s.params), nil
}
