package worker

// Status tracks a job through its lifecycle. Terminal states always
// trigger workspace release; Executing is the only state with a live
// subprocess and the only one cancellation can interrupt.
type Status string

const (
	StatusReceived           Status = "received"
	StatusValidating         Status = "validating"
	StatusProbing            Status = "probing"
	StatusExecuting          Status = "executing"
	StatusSucceeded          Status = "succeeded"
	StatusPartiallySucceeded Status = "partially_succeeded"
	StatusFailed             Status = "failed"
)

// Terminal reports whether the status ends the job.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusPartiallySucceeded, StatusFailed:
		return true
	default:
		return false
	}
}
