package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLowStockScanTask(t *testing.T) {
	task, err := NewLowStockScanTask(LowStockScanPayload{Limit: 50})
	require.NoError(t, err)

	assert.Equal(t, TaskLowStockScan, task.Type())

	var payload LowStockScanPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, 50, payload.Limit)
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	job := NewLowStockScanJob(nil, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskLowStockScan, []byte("not json")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleRequiresPool(t *testing.T) {
	job := NewLowStockScanJob(nil, nil, nil)

	task, err := NewLowStockScanTask(LowStockScanPayload{})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}
