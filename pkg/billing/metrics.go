package billing

// Metrics receives reconciliation counters
type Metrics interface {
	WebhookEvent(eventType, outcome string)
	RoleSync(action, result string)
	RecordContract(err error)
}

type noopMetrics struct{}

func (noopMetrics) WebhookEvent(string, string) {}
func (noopMetrics) RoleSync(string, string)     {}
func (noopMetrics) RecordContract(error)        {}
