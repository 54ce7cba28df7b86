package plan

// Estimate is the expected resource use of a session, for confirmation only.
type Estimate struct {
	DurationHours        int     `json:"duration_hours"`
	ExpectedCaptureCount float64 `json:"expected_capture_count"`
	ExpectedStorageGB    float64 `json:"expected_storage_gb"`
}

// EstimateSession computes the expected capture count and storage.
// The count is not rounded and must never be used as a loop bound.
func EstimateSession(w Window, intervalMinutes int, captureSizeMB float64) Estimate {
	hours := w.DurationHours()
	count := float64(hours) * 60 / float64(intervalMinutes)
	return Estimate{
		DurationHours:        hours,
		ExpectedCaptureCount: count,
		ExpectedStorageGB:    count * captureSizeMB / 1000,
	}
}

// Estimate returns the estimate for the plan.
func (p Plan) Estimate() Estimate {
	return EstimateSession(p.Window, p.IntervalMinutes, p.CaptureSizeMB)
}
