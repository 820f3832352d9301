package provision

// FailureDetail identifies one failed record inside a progress snapshot.
type FailureDetail struct {
	Row               int
	UserPrincipalName string
	Message           string
}

// Progress is a snapshot of a running batch, emitted synchronously after
// every record. Processed always equals Successful+Failed, and Percentage
// tracks records processed, not elapsed time.
type Progress struct {
	Total      int
	Processed  int
	Successful int
	Failed     int
	Percentage float64
	Failures   []FailureDetail
}

// Observer receives progress snapshots from the engine. Implementations must
// return promptly; the engine invokes them inline between records.
type Observer interface {
	OnProgress(p Progress)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(p Progress)

// OnProgress calls f(p).
func (f ObserverFunc) OnProgress(p Progress) {
	f(p)
}
