package plan

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DetectionResult is the payload published for a completed job.
// Status is "success" or "error"; Error is set only on failure.
type DetectionResult struct {
	RequestID  string     `json:"request_id"`
	Status     string     `json:"status"`
	RoomCount  int        `json:"room_count"`
	Rooms      []Room     `json:"rooms,omitempty"`
	ImageShape ImageShape `json:"image_shape,omitempty"`
	Error      string     `json:"error,omitempty"`
	Timestamp  int64      `json:"timestamp"`
}

// ResultPublisher publishes detection results to MQTT: one message on
// the shared result topic and one on the per-request subtopic.
type ResultPublisher struct {
	client      mqtt.Client
	resultTopic string
	qos         byte
	retain      bool
	results     map[string]*DetectionResult
	mu          sync.RWMutex
}

// NewResultPublisher creates a result publisher. If client is nil,
// publishing is disabled (for testing).
func NewResultPublisher(client mqtt.Client, resultTopic string) *ResultPublisher {
	if resultTopic == "" {
		resultTopic = "blueplan/results"
	}
	return &ResultPublisher{
		client:      client,
		resultTopic: resultTopic,
		qos:         1,     // jobs are request/response, at-least-once matters
		retain:      false, // results are one-shot, not state
		results:     make(map[string]*DetectionResult),
	}
}

// PublishRooms publishes a successful detection result.
func (p *ResultPublisher) PublishRooms(requestID string, rooms []Room, shape ImageShape) error {
	return p.publish(&DetectionResult{
		RequestID:  requestID,
		Status:     "success",
		RoomCount:  len(rooms),
		Rooms:      rooms,
		ImageShape: shape,
		Timestamp:  time.Now().Unix(),
	})
}

// PublishError publishes a per-job failure so the requester is not
// left waiting on a job that silently died.
func (p *ResultPublisher) PublishError(requestID string, jobErr error) error {
	return p.publish(&DetectionResult{
		RequestID: requestID,
		Status:    "error",
		Error:     jobErr.Error(),
		Timestamp: time.Now().Unix(),
	})
}

func (p *ResultPublisher) publish(result *DetectionResult) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	p.mu.Lock()
	p.results[result.RequestID] = result
	p.mu.Unlock()

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	// Shared topic first, then the per-request subtopic.
	for _, topic := range []string{p.resultTopic, fmt.Sprintf("%s/%s", p.resultTopic, result.RequestID)} {
		token := p.client.Publish(topic, p.qos, p.retain, payload)
		if token.WaitTimeout(2*time.Second) && token.Error() != nil {
			return fmt.Errorf("publishing to %s: %w", topic, token.Error())
		}
	}

	log.Printf("Published result for %s: status=%s rooms=%d",
		result.RequestID, result.Status, result.RoomCount)
	return nil
}

// GetResult returns the last published result for a request.
func (p *ResultPublisher) GetResult(requestID string) (*DetectionResult, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.results[requestID]
	return r, ok
}

// ClearResult removes a request's cached result.
func (p *ResultPublisher) ClearResult(requestID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.results, requestID)
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2).
func (p *ResultPublisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the
// broker.
func (p *ResultPublisher) SetRetain(retain bool) {
	p.retain = retain
}
