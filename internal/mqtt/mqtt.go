package mqtt

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Options configures a Subscriber. Broker must already be in paho form
// (tcp://, ssl:// or ws://).
type Options struct {
	Broker         string
	ClientID       string
	QoS            byte
	ConnectTimeout time.Duration
}

// Subscriber is a receive-only broker connection. Its subscriptions are
// restored every time the connection comes back.
type Subscriber struct {
	client paho.Client
	qos    byte

	mu     sync.Mutex
	topics map[string]paho.MessageHandler
}

func clientOptions(opts Options, onConnect paho.OnConnectHandler) *paho.ClientOptions {
	clientID := strings.TrimSpace(opts.ClientID)
	if clientID == "" {
		clientID = "mock-location-api-" + time.Now().Format("150405.000")
	}
	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetOnConnectHandler(onConnect)
	co.SetConnectionLostHandler(func(_ paho.Client, err error) {
		slog.Warn("location broker connection lost", "broker", opts.Broker, "error", err)
	})
	return co
}

func Dial(opts Options) (*Subscriber, error) {
	if strings.TrimSpace(opts.Broker) == "" {
		return nil, errors.New("mqtt: empty broker url")
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	s := &Subscriber{qos: opts.QoS, topics: map[string]paho.MessageHandler{}}
	s.client = paho.NewClient(clientOptions(opts, s.resubscribe))

	tok := s.client.Connect()
	if !tok.WaitTimeout(timeout) {
		return nil, errors.New("mqtt: connect timed out")
	}
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Subscriber) resubscribe(c paho.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slog.Info("location broker connected", "topics", len(s.topics))
	for topic, h := range s.topics {
		if tok := c.Subscribe(topic, s.qos, h); tok.Wait() && tok.Error() != nil {
			slog.Error("location broker resubscribe failed", "topic", topic, "error", tok.Error())
		}
	}
}

// Subscribe delivers every message on topic to handler. paho messages carry
// Topic, Payload and Retained, which is all the ingest needs.
func (s *Subscriber) Subscribe(topic string, handler func(paho.Message)) error {
	h := func(_ paho.Client, msg paho.Message) { handler(msg) }
	tok := s.client.Subscribe(topic, s.qos, h)
	tok.Wait()
	if err := tok.Error(); err != nil {
		return err
	}
	s.mu.Lock()
	s.topics[topic] = h
	s.mu.Unlock()
	return nil
}

func (s *Subscriber) Close() {
	if s == nil || s.client == nil {
		return
	}
	s.client.Disconnect(1000)
}
