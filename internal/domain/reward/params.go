package reward

// Params defines all configurable parameters for the XP reward formula
type Params struct {
	// Score thresholds
	PassingScorePct float64
	PerfectScorePct float64

	// Multiplier inputs
	BaselineWPM       float64
	ComplexityDivisor float64

	// Bonus applied on a perfect score, as a fraction of the raw reward
	PerfectBonusFactor float64
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	// Score thresholds
	PassingScorePct float64
	PerfectScorePct float64

	// Multiplier inputs
	BaselineWPM       float64
	ComplexityDivisor float64

	// Perfect-score bonus fraction
	PerfectBonusFactor float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		// Below 60% the attempt fails and earns nothing
		PassingScorePct: 60,

		// A perfect score is exactly 100%
		PerfectScorePct: 100,

		// Reading at 250 wpm yields a neutral speed multiplier
		BaselineWPM: 250,

		// Reading level 10 yields a neutral complexity factor
		ComplexityDivisor: 10,

		// A perfect score adds 25% on top of the raw reward
		PerfectBonusFactor: 0.25,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	// Override score thresholds if provided
	if config.PassingScorePct > 0 {
		params.PassingScorePct = config.PassingScorePct
	}
	if config.PerfectScorePct > 0 {
		params.PerfectScorePct = config.PerfectScorePct
	}

	// Override multiplier inputs if provided
	if config.BaselineWPM > 0 {
		params.BaselineWPM = config.BaselineWPM
	}
	if config.ComplexityDivisor > 0 {
		params.ComplexityDivisor = config.ComplexityDivisor
	}

	// Override the perfect-score bonus if provided
	if config.PerfectBonusFactor > 0 {
		params.PerfectBonusFactor = config.PerfectBonusFactor
	}

	return params
}
