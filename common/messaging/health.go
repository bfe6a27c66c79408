package messaging

import "time"

// HealthStatus represents the health state of a messaging connection.
type HealthStatus struct {
	Enabled   bool          `json:"enabled"`
	Connected bool          `json:"connected"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// CheckClientHealth reports whether client is connected. A nil client means
// messaging is disabled, which is healthy.
func CheckClientHealth(client Client) HealthStatus {
	if client == nil {
		return HealthStatus{}
	}

	status := HealthStatus{Enabled: true, Connected: client.IsConnected()}
	if !status.Connected {
		status.Error = "not connected to message broker"
	}
	return status
}
