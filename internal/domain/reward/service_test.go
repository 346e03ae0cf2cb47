package reward

import (
	"errors"
	"testing"
)

func TestServiceCalculateReward(t *testing.T) {
	t.Parallel() // Enable parallel execution
	service := NewDefaultService()

	result, err := service.CalculateReward(Input{
		LengthMetric:  1000,
		ReadingLevel:  8.0,
		ScorePct:      100,
		WPMUsed:       250,
		AttemptNumber: 1,
	})

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.XPAwarded != 1000 {
		t.Errorf("Expected 1000 XP, got %d", result.XPAwarded)
	}

	if !result.Passed || !result.Perfect {
		t.Errorf("Expected passed and perfect, got passed=%v perfect=%v", result.Passed, result.Perfect)
	}
}

func TestServiceCalculateRewardValidation(t *testing.T) {
	t.Parallel() // Enable parallel execution
	service := NewDefaultService()

	valid := Input{
		LengthMetric:  1000,
		ReadingLevel:  8.0,
		ScorePct:      80,
		WPMUsed:       250,
		AttemptNumber: 1,
	}

	testCases := []struct {
		name        string
		mutate      func(*Input)
		expectedErr error
	}{
		{
			name:        "zero length metric",
			mutate:      func(in *Input) { in.LengthMetric = 0 },
			expectedErr: ErrInvalidLengthMetric,
		},
		{
			name:        "negative reading level",
			mutate:      func(in *Input) { in.ReadingLevel = -1 },
			expectedErr: ErrInvalidReadingLevel,
		},
		{
			name:        "score above 100",
			mutate:      func(in *Input) { in.ScorePct = 101 },
			expectedErr: ErrScoreOutOfRange,
		},
		{
			name:        "negative score",
			mutate:      func(in *Input) { in.ScorePct = -5 },
			expectedErr: ErrScoreOutOfRange,
		},
		{
			name:        "negative wpm",
			mutate:      func(in *Input) { in.WPMUsed = -200 },
			expectedErr: ErrInvalidWPM,
		},
		{
			name:        "zero attempt number",
			mutate:      func(in *Input) { in.AttemptNumber = 0 },
			expectedErr: ErrInvalidAttemptNumber,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)

			_, err := service.CalculateReward(input)

			if !errors.Is(err, tc.expectedErr) {
				t.Errorf("Expected error %v, got %v", tc.expectedErr, err)
			}
		})
	}
}

func TestServiceWithCustomParams(t *testing.T) {
	t.Parallel() // Enable parallel execution
	// Lower the passing bar to 50%; a score that fails with defaults now
	// earns a reward.
	service := NewServiceWithParams(NewParams(ParamsConfig{PassingScorePct: 50}))

	result, err := service.CalculateReward(Input{
		LengthMetric:  1000,
		ReadingLevel:  10.0,
		ScorePct:      50,
		WPMUsed:       250,
		AttemptNumber: 1,
	})

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !result.Passed {
		t.Error("Expected 50%% to pass with a lowered threshold")
	}

	if result.XPAwarded != 500 {
		t.Errorf("Expected 500 XP, got %d", result.XPAwarded)
	}
}
