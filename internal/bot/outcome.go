// Package bot contains the inbound-message pipeline: the event dispatcher,
// the message processor, and response composition. Events come in through the
// webhook layer already signature-validated; everything that happens to them
// afterwards (dedup, analysis, persistence, reply delivery) lives here.
package bot

// Outcome is the terminal state of processing one webhook event. Every
// pipeline stage reports failure through its return value; the processor
// folds them into exactly one Outcome per event.
type Outcome int

const (
	// OutcomeSuccess means the event was fully processed; for personal
	// messages the reply was also delivered.
	OutcomeSuccess Outcome = iota

	// OutcomeDuplicate means the dedup gate suppressed the event. The event
	// is still acknowledged to the platform; no side effects occurred.
	OutcomeDuplicate

	// OutcomeAnalysisFailed means sentiment, embedding, or response
	// generation failed before or during composition. Nothing was persisted.
	OutcomeAnalysisFailed

	// OutcomePersistenceFailed means the store transaction rolled back. No
	// chat record or embedding survived.
	OutcomePersistenceFailed

	// OutcomeDeliveryExhausted means persistence committed but every
	// delivery attempt failed. The record is kept; the reply is lost.
	OutcomeDeliveryExhausted
)

// String returns the stable label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeAnalysisFailed:
		return "analysis_failed"
	case OutcomePersistenceFailed:
		return "persistence_failed"
	case OutcomeDeliveryExhausted:
		return "delivery_exhausted"
	default:
		return "unknown"
	}
}
