package plan

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DetectionJob is the payload published to the job topic to request
// detection on a stored image.
type DetectionJob struct {
	RequestID string            `json:"request_id"`
	Bucket    string            `json:"bucket"`
	Key       string            `json:"key"`
	Profile   string            `json:"profile,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// JobHandler is called for every decoded job message. Decode failures
// are passed through so the worker can publish a per-job error instead
// of dropping the message silently.
type JobHandler func(job DetectionJob, err error)

// QueueClient manages the MQTT connection and the job topic
// subscription for the detection worker. Constructed explicitly at
// startup and injected where needed; there is no global instance.
type QueueClient struct {
	client      mqtt.Client
	cfg         MQTTConfig
	handler     JobHandler
	isConnected bool
	mu          sync.RWMutex
}

// NewQueueClient builds a queue client from config. Connect must be
// called before messages flow.
func NewQueueClient(cfg MQTTConfig, handler JobHandler) (*QueueClient, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("queue: mqtt broker is required")
	}
	if cfg.JobTopic == "" {
		return nil, fmt.Errorf("queue: job topic is required")
	}

	qc := &QueueClient{cfg: cfg, handler: handler}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "blueplan-worker"
	}
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false) // preserve the job subscription on reconnect
	opts.SetOrderMatters(false) // jobs are independent, allow concurrent handling

	opts.SetOnConnectHandler(qc.onConnect)
	opts.SetConnectionLostHandler(qc.onConnectionLost)

	qc.client = mqtt.NewClient(opts)
	return qc, nil
}

// newQueueClientWithMock creates a QueueClient with a provided
// mqtt.Client. This is used for testing with mock clients.
func newQueueClientWithMock(client mqtt.Client, cfg MQTTConfig, handler JobHandler) *QueueClient {
	return &QueueClient{client: client, cfg: cfg, handler: handler}
}

// Connect dials the broker and blocks until the first connection
// attempt resolves or times out.
func (qc *QueueClient) Connect() error {
	log.Printf("Connecting to MQTT broker %s...", qc.cfg.Broker)

	token := qc.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("queue: connect timeout to %s", qc.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("queue: connecting to %s: %w", qc.cfg.Broker, err)
	}

	qc.setConnected(true)
	return nil
}

// onConnect subscribes to the job topic. It runs on every (re)connect.
func (qc *QueueClient) onConnect(client mqtt.Client) {
	log.Printf("MQTT connected, subscribing to %s", qc.cfg.JobTopic)
	qc.setConnected(true)

	token := client.Subscribe(qc.cfg.JobTopic, 1, qc.handleMessage)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("Error subscribing to %s: %v", qc.cfg.JobTopic, token.Error())
		return
	}
	log.Printf("Subscribed to %s", qc.cfg.JobTopic)
}

// onConnectionLost is called when the connection drops. Auto-reconnect
// is enabled, so this is typically transient.
func (qc *QueueClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("MQTT connection interrupted (%v), auto-reconnect will retry", err)
	qc.setConnected(false)
}

// handleMessage decodes a job payload and dispatches it.
func (qc *QueueClient) handleMessage(client mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()
	log.Printf("Received job (topic: %s, size: %d bytes)", msg.Topic(), len(payload))

	var job DetectionJob
	if err := json.Unmarshal(payload, &job); err != nil {
		if qc.handler != nil {
			qc.handler(DetectionJob{}, fmt.Errorf("decoding job payload: %w", err))
		}
		return
	}
	if job.RequestID == "" {
		if qc.handler != nil {
			qc.handler(job, fmt.Errorf("job missing request_id"))
		}
		return
	}

	if qc.handler != nil {
		qc.handler(job, nil)
	}
}

// IsConnected returns true if the client is connected.
func (qc *QueueClient) IsConnected() bool {
	qc.mu.RLock()
	defer qc.mu.RUnlock()
	return qc.isConnected
}

func (qc *QueueClient) setConnected(connected bool) {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	qc.isConnected = connected
}

// Client returns the underlying MQTT client for publishing.
func (qc *QueueClient) Client() mqtt.Client {
	return qc.client
}

// Disconnect gracefully closes the MQTT connection.
func (qc *QueueClient) Disconnect() {
	if qc.client != nil && qc.client.IsConnected() {
		log.Println("Disconnecting from MQTT broker...")
		qc.client.Disconnect(250) // 250ms quiesce time
		qc.setConnected(false)
	}
}
