package core

// Verdict is the external classifier's opinion of one submitted video.
type Verdict struct {
	Approved   bool
	Confidence float64
	Reason     string
}

// VideoClassifier submits raw media bytes for automated verification.
// A transport failure (network, timeout, malformed response) is returned as
// an error and carries no decision; callers must not mutate state on it.
type VideoClassifier interface {
	Classify(data []byte, contentType string) (Verdict, error)
}
