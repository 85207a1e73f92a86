package classifier

import "context"

// Status tags the outcome of a classification attempt.
type Status int

const (
	// StatusScored means the classifier returned a probability pair.
	StatusScored Status = iota
	// StatusRateLimited means the classifier refused the call with a rate limit.
	StatusRateLimited
	// StatusError covers any other classifier or transport failure.
	StatusError
)

// Result is the typed outcome of a classification call. Callers switch on
// Status rather than probing optional fields; AIProbability and
// HumanProbability are meaningful only when Status is StatusScored.
type Result struct {
	Status           Status
	AIProbability    float64
	HumanProbability float64
	Detail           string
}

// Classifier submits text to an external AI-content detector. Transport
// failures are reported as a StatusError result, not an error: the pipeline
// treats every classifier failure the same way, as an item-local condition.
type Classifier interface {
	Classify(ctx context.Context, text string) Result
}
