package mqtt

import (
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/SentientStage/internal/events"
)

const opTimeout = 10 * time.Second

// Subscriber is the subscribe half of Client, for feeds and tests.
type Subscriber interface {
	Subscribe(topic string, handler paho.MessageHandler) error
}

// Publisher is the publish half of Client.
type Publisher interface {
	Publish(topic string, payload []byte) error
	IsConnected() bool
}

// Client wraps the Paho MQTT client for Sentient Stage.
type Client struct {
	client paho.Client
	url    string
	mu     sync.Mutex

	stateMu sync.Mutex
	onState func(connected bool)
}

// NewClient creates a new MQTT client but does not connect. The client keeps
// retrying in the background until the broker is reachable.
func NewClient(brokerURL, clientID string) *Client {
	c := &Client{url: brokerURL}
	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetOnConnectHandler(func(paho.Client) { c.notify(true) }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection to %s lost: %v", brokerURL, err)
			c.notify(false)
		})

	c.client = paho.NewClient(opts)
	return c
}

// OnStateChange registers fn to run on every connect and connection loss.
// With a clean session the broker forgets subscriptions, so fn is where
// they are made again. fn runs on a Paho goroutine.
func (c *Client) OnStateChange(fn func(connected bool)) {
	c.stateMu.Lock()
	c.onState = fn
	c.stateMu.Unlock()
}

func (c *Client) notify(connected bool) {
	c.stateMu.Lock()
	fn := c.onState
	c.stateMu.Unlock()

	if connected {
		events.Emit("info", "device.connected", "mqtt broker connected", map[string]interface{}{"broker": c.url})
	} else {
		events.Emit("warn", "device.disconnected", "mqtt broker connection lost", map[string]interface{}{"broker": c.url})
	}
	if fn != nil {
		fn(connected)
	}
}

// URL returns the broker URL.
func (c *Client) URL() string {
	return c.url
}

// Connect waits up to the operation timeout for the first connection. On
// timeout the client goes on retrying and reports success through
// OnStateChange.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(opTimeout) {
		return &ConnectTimeoutError{}
	}
	return token.Error()
}

// Subscribe subscribes to a topic with the given handler.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(opTimeout) {
		return &SubscribeTimeoutError{Topic: topic}
	}
	return token.Error()
}

// Publish sends payload at QoS 0, not retained.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(opTimeout) {
		return &PublishTimeoutError{Topic: topic}
	}
	return token.Error()
}

// Disconnect cleanly disconnects from the broker.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client.Disconnect(1000)
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout"
}

// SubscribeTimeoutError indicates subscription timed out.
type SubscribeTimeoutError struct {
	Topic string
}

func (e *SubscribeTimeoutError) Error() string {
	return "mqtt subscribe timeout: " + e.Topic
}

// PublishTimeoutError indicates a publish was not acknowledged in time.
type PublishTimeoutError struct {
	Topic string
}

func (e *PublishTimeoutError) Error() string {
	return "mqtt publish timeout: " + e.Topic
}
