package workshop

import "time"

// Metrics receives operational counters from a Session. Implementations must
// be safe for concurrent use.
type Metrics interface {
	ObserveOperation(op string, status string, d time.Duration)
	IncDuplicateCompletion(op string)
	IncPumpTick()
	AddStalePurged(n int)
	IncSafetyDenied(app AppID)
	IncPublish(variant Variant, status string)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) ObserveOperation(string, string, time.Duration) {}
func (NoopMetrics) IncDuplicateCompletion(string)                   {}
func (NoopMetrics) IncPumpTick()                                    {}
func (NoopMetrics) AddStalePurged(int)                              {}
func (NoopMetrics) IncSafetyDenied(AppID)                           {}
func (NoopMetrics) IncPublish(Variant, string)                      {}

func statusOf(err error) string {
	if err == nil {
		return "ok"
	}
	if k := KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
