// Package jobs contains the asynq background tasks.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	QueueDefault = "default"

	TaskLowStockScan = "stock:low_scan"
)

// LowStockScanPayload configures one low-stock scan run.
type LowStockScanPayload struct {
	// Limit caps how many products one run reports. 0 means the default.
	Limit int `json:"limit"`
}

// NewLowStockScanTask builds the scan task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}
