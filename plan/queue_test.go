package plan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Broker:      "tcp://localhost:1883",
		ClientID:    "blueplan-test",
		JobTopic:    "blueplan/jobs",
		ResultTopic: "blueplan/results",
	}
}

func TestNewQueueClient_Validation(t *testing.T) {
	cfg := testMQTTConfig()
	cfg.Broker = ""
	_, err := NewQueueClient(cfg, nil)
	assert.Error(t, err, "empty broker should be rejected")

	cfg = testMQTTConfig()
	cfg.JobTopic = ""
	_, err = NewQueueClient(cfg, nil)
	assert.Error(t, err, "empty job topic should be rejected")

	qc, err := NewQueueClient(testMQTTConfig(), nil)
	require.NoError(t, err)
	assert.NotNil(t, qc.Client())
	assert.False(t, qc.IsConnected())
}

func TestQueueClient_Connect(t *testing.T) {
	mock := NewMockClient()
	qc := newQueueClientWithMock(mock, testMQTTConfig(), nil)

	require.NoError(t, qc.Connect())
	assert.True(t, qc.IsConnected())

	qc.Disconnect()
	assert.False(t, qc.IsConnected())
	assert.False(t, mock.IsConnected())
}

func TestQueueClient_ConnectError(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnectError(errors.New("broker unreachable"))
	qc := newQueueClientWithMock(mock, testMQTTConfig(), nil)

	err := qc.Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unreachable")
	assert.False(t, qc.IsConnected())
}

func TestQueueClient_DispatchesJob(t *testing.T) {
	var gotJob DetectionJob
	var gotErr error
	handler := func(job DetectionJob, err error) {
		gotJob, gotErr = job, err
	}

	mock := NewMockClient()
	mock.SetConnected(true)
	qc := newQueueClientWithMock(mock, testMQTTConfig(), handler)

	// Simulate the broker-driven subscription callback.
	qc.onConnect(mock)

	payload := `{"request_id": "req-1", "bucket": "plans", "key": "floor1.png",
		"profile": "strict", "metadata": {"site": "hq"}}`
	mock.SimulateMessage("blueplan/jobs", []byte(payload))

	require.NoError(t, gotErr)
	assert.Equal(t, "req-1", gotJob.RequestID)
	assert.Equal(t, "plans", gotJob.Bucket)
	assert.Equal(t, "floor1.png", gotJob.Key)
	assert.Equal(t, "strict", gotJob.Profile)
	assert.Equal(t, "hq", gotJob.Metadata["site"])
}

func TestQueueClient_MalformedJobPayload(t *testing.T) {
	called := false
	var gotErr error
	handler := func(job DetectionJob, err error) {
		called = true
		gotErr = err
	}

	mock := NewMockClient()
	mock.SetConnected(true)
	qc := newQueueClientWithMock(mock, testMQTTConfig(), handler)
	qc.onConnect(mock)

	mock.SimulateMessage("blueplan/jobs", []byte("{not json"))

	assert.True(t, called, "handler must see decode failures")
	assert.Error(t, gotErr)
}

func TestQueueClient_MissingRequestID(t *testing.T) {
	var gotErr error
	handler := func(job DetectionJob, err error) {
		gotErr = err
	}

	mock := NewMockClient()
	mock.SetConnected(true)
	qc := newQueueClientWithMock(mock, testMQTTConfig(), handler)
	qc.onConnect(mock)

	mock.SimulateMessage("blueplan/jobs", []byte(`{"bucket": "b", "key": "k"}`))

	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "request_id")
}
