package domain

import "errors"

// Interaction-specific validation errors
var (
	ErrInvalidInteractionKind = errors.New("invalid interaction kind")
)

// InteractionKind identifies a tiered reaction to a comment. The bronze,
// silver, and gold tiers are positive reactions that reward the comment's
// author; the report tiers escalate a comment for moderation and reward
// nobody. Both directions cost the actor XP at the tier's price so neither
// praise nor reporting is free.
type InteractionKind string

// Valid interaction kinds.
const (
	InteractionBronze InteractionKind = "bronze"
	InteractionSilver InteractionKind = "silver"
	InteractionGold   InteractionKind = "gold"

	InteractionReportMinor    InteractionKind = "report_minor"
	InteractionReportModerate InteractionKind = "report_moderate"
	InteractionReportSevere   InteractionKind = "report_severe"
)

// IsValid checks if the interaction kind is one of the defined constants.
func (k InteractionKind) IsValid() bool {
	switch k {
	case InteractionBronze, InteractionSilver, InteractionGold,
		InteractionReportMinor, InteractionReportModerate, InteractionReportSevere:
		return true
	}
	return false
}

// IsReport reports whether the kind is a moderation report rather than a
// positive reaction. Reports never award XP to the comment's author.
func (k InteractionKind) IsReport() bool {
	switch k {
	case InteractionReportMinor, InteractionReportModerate, InteractionReportSevere:
		return true
	}
	return false
}
