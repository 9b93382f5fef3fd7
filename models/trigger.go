package models

// Trigger classifies why the payback pipeline is being invoked. Only a
// real user-facing flow runs experiments and persists side effects.
type Trigger string

const (
	// TriggerUserTerms is a real terms-acceptance flow
	TriggerUserTerms Trigger = "user_terms"

	// TriggerPreview is a dry-run used to show a prospective date
	TriggerPreview Trigger = "preview"
)

// IsReal reports whether side effects are allowed for this trigger
func (t Trigger) IsReal() bool {
	return t == TriggerUserTerms
}
