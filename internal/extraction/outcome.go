package extraction

import "strings"

// Disposition classifies the result of an extraction job.
type Disposition string

const (
	// DispositionSuccess means a draft met the quality floor.
	DispositionSuccess Disposition = "success"
	// DispositionDegraded means no draft met the floor; the best candidate
	// was accepted with lower confidence.
	DispositionDegraded Disposition = "degraded"
	// DispositionFailed means no backend produced any output.
	DispositionFailed Disposition = "failed"
)

// Outcome is the immutable result of running the fallback chain for one
// document. Content and Backend are empty for failed outcomes.
type Outcome struct {
	Disposition  Disposition
	Content      string
	Backend      string
	QualityScore float64
	Reason       string
}

// Success builds an accepted outcome from the named backend.
func Success(content, backend string, score float64) Outcome {
	return Outcome{
		Disposition:  DispositionSuccess,
		Content:      content,
		Backend:      backend,
		QualityScore: score,
	}
}

// Degraded builds a below-floor outcome retained as the best available draft.
func Degraded(content, backend string, score float64, reason string) Outcome {
	return Outcome{
		Disposition:  DispositionDegraded,
		Content:      content,
		Backend:      backend,
		QualityScore: score,
		Reason:       strings.TrimSpace(reason),
	}
}

// Failed builds an outcome for a document no backend could extract.
func Failed(reason string) Outcome {
	return Outcome{
		Disposition: DispositionFailed,
		Reason:      strings.TrimSpace(reason),
	}
}

// Extracted reports whether the outcome carries usable content.
func (o Outcome) Extracted() bool {
	return o.Disposition == DispositionSuccess || o.Disposition == DispositionDegraded
}
