package reward

import "math"

// calculateSpeedMultiplier determines the speed component of the reward.
//
// The multiplier scales the reward by how fast the reader worked relative to
// the 250 wpm baseline, weighted by the content's complexity. Harder content
// read at speed is worth proportionally more than easy content read at the
// same speed.
//
// Parameters:
//   - wpmUsed: The reading speed the attempt was made at, in words per minute
//   - readingLevel: The content's numeric complexity score
//   - params: Configuration parameters for the reward formula
//
// Returns:
//   - The combined speed multiplier applied to the length metric
//
// Formula:
//   - complexity_factor = reading_level / 10
//   - speed_multiplier = (wpm_used / 250) * complexity_factor
//
// A reader at the baseline speed on level-10 content gets a neutral 1.0
// multiplier; slower reading or simpler content shrinks it proportionally.
func calculateSpeedMultiplier(wpmUsed int, readingLevel float64, params *Params) float64 {
	complexityFactor := readingLevel / params.ComplexityDivisor
	return (float64(wpmUsed) / params.BaselineWPM) * complexityFactor
}

// calculateRawReward determines the undiminished reward for a passing
// attempt, before the perfect bonus and retry halving are applied.
//
// Parameters:
//   - lengthMetric: The content's canonical length metric (word count)
//   - readingLevel: The content's numeric complexity score
//   - scorePct: The graded quiz score, 0-100
//   - wpmUsed: The reading speed the attempt was made at
//   - params: Configuration parameters for the reward formula
//
// Returns:
//   - The raw reward as a float; flooring happens after the perfect bonus
//     is added, so fractional XP is never dropped prematurely
//
// Formula:
//   - accuracy_bonus = score_pct / 100
//   - raw = length_metric * speed_multiplier * accuracy_bonus
func calculateRawReward(
	lengthMetric int,
	readingLevel float64,
	scorePct float64,
	wpmUsed int,
	params *Params,
) float64 {
	speedMultiplier := calculateSpeedMultiplier(wpmUsed, readingLevel, params)
	accuracyBonus := scorePct / 100
	return float64(lengthMetric) * speedMultiplier * accuracyBonus
}

// applyDiminishing halves the base reward once per repeated attempt.
//
// Retries on the same content earn half of what the previous attempt number
// would have earned: attempt 1 keeps the full base, attempt 2 half, attempt
// 3 a quarter, and so on until the reward reaches zero.
//
// Parameters:
//   - baseXP: The floored reward for a first attempt (raw + perfect bonus)
//   - attemptNumber: The 1-based attempt number for this account+content
//
// Returns:
//   - The diminished XP award, never negative
//
// The halving is done in integer arithmetic (a right shift per retry) so
// that the chain is exact: the award for attempt k+1 always equals
// floor(award(k) / 2), with no floating-point drift. Attempt numbers large
// enough to shift past 63 bits simply return zero.
func applyDiminishing(baseXP int64, attemptNumber int) int64 {
	shift := attemptNumber - 1
	if shift <= 0 {
		return baseXP
	}
	if shift >= 63 {
		return 0
	}
	return baseXP >> uint(shift)
}

// calculateReward computes the full reward outcome for a graded attempt.
//
// This function orchestrates the complete formula: the passing gate, the
// speed/complexity/accuracy multipliers, the perfect-score bonus, and the
// diminishing-return halving for retries. It is pure - no I/O, no clock,
// no randomness - so identical inputs always produce identical results.
//
// Parameters:
//   - input: The validated attempt inputs (length, level, score, wpm, attempt number)
//   - params: Configuration parameters for the reward formula
//
// Returns:
//   - A Result carrying the XP award and the passed/perfect classification
//
// Algorithm behavior:
//   - Scores below the passing threshold short-circuit to a zero award with
//     passed=false; no further computation happens
//   - A perfect (100%) score adds the configured bonus fraction on top of
//     the raw reward before flooring
//   - The floored base is then halved once per retry; a retry whose award
//     has diminished to zero still reports passed=true when the score
//     qualifies, which is what unlocks commenting on the content
func calculateReward(input Input, params *Params) Result {
	if input.ScorePct < params.PassingScorePct {
		return Result{XPAwarded: 0, Passed: false, Perfect: false}
	}

	perfect := input.ScorePct == params.PerfectScorePct

	raw := calculateRawReward(
		input.LengthMetric,
		input.ReadingLevel,
		input.ScorePct,
		input.WPMUsed,
		params,
	)

	perfectBonus := 0.0
	if perfect {
		perfectBonus = raw * params.PerfectBonusFactor
	}

	baseXP := int64(math.Floor(raw + perfectBonus))
	total := applyDiminishing(baseXP, input.AttemptNumber)

	return Result{
		XPAwarded: total,
		Passed:    true,
		Perfect:   perfect,
	}
}
