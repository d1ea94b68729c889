package service

// Event names pushed through the notification bus.
const (
	EventRequestCreated        = "request.created"
	EventRequestRejected       = "request.rejected"
	EventOrderConfirmed        = "order.confirmed"
	EventOrderConfirmedSummary = "order.confirmed.summary"
	EventPaymentRecorded       = "payment.recorded"
	EventTabClosed             = "tab.closed"
	EventLineCompleted         = "line.completed"
	EventLineCancelled         = "line.cancelled"
)

// EventPublisher hands lifecycle events to the notification bus. Publication
// happens only after the ledger mutation committed, and delivery problems
// stay inside the bus; services never fail because of a dead subscriber.
type EventPublisher interface {
	Publish(group, event string, data interface{})
}
