package broadcast

// Task type names routed through the asynq mux.
const (
	TypeDispatch = "broadcast:dispatch"

	// QueueName is the dedicated queue; a single worker keeps runs
	// strictly sequential.
	QueueName = "broadcast"
)

// DispatchPayload is the task body for TypeDispatch.
type DispatchPayload struct {
	JobID int64 `json:"job_id"`
}
