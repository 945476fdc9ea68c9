// Package publish fans the engine's projected pose out to an MQTT broker so
// other consumers can follow the drone without polling the dashboard.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/flight.dashboard/internal/engine"
	"github.com/banshee-data/flight.dashboard/internal/monitoring"
	"github.com/banshee-data/flight.dashboard/internal/telemetry"
)

// ErrPublishTimeout is returned when the broker does not acknowledge a
// publish in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// DefaultPublishTimeout bounds the wait for each publish token.
const DefaultPublishTimeout = 2 * time.Second

// Publisher is the subset of mqtt.Client used here.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Source supplies engine updates.
type Source interface {
	Subscribe() (string, <-chan engine.Update)
	Unsubscribe(id string)
}

// Pose is the retained message published for each new state.
type Pose struct {
	Session     string                `json:"session"`
	Version     uint64                `json:"version"`
	UpdatedAt   time.Time             `json:"updatedAt"`
	Orientation telemetry.Orientation `json:"orientation"`
	Altitude    float64               `json:"altitude"`
	Position    telemetry.LatLng      `json:"position"`
}

// PoseFromState extracts the pose from a derived state.
func PoseFromState(st engine.DerivedVisualState) Pose {
	return Pose{
		Session:     st.Session,
		Version:     st.Version,
		UpdatedAt:   st.UpdatedAt,
		Orientation: st.Orientation,
		Altitude:    st.AltitudeDisplay,
		Position:    st.MapCenter,
	}
}

// PosePublisher publishes poses to one topic.
type PosePublisher struct {
	client  Publisher
	topic   string
	timeout time.Duration
	logf    func(format string, args ...any)

	lastVersion uint64
}

// NewPosePublisher returns a publisher writing retained QoS 0 messages to
// topic.
func NewPosePublisher(client Publisher, topic string) *PosePublisher {
	return &PosePublisher{
		client:  client,
		topic:   topic,
		timeout: DefaultPublishTimeout,
		logf:    monitoring.Tagged("mqtt"),
	}
}

// Topic returns the topic poses are published on.
func (p *PosePublisher) Topic() string {
	return p.topic
}

// PublishState publishes the pose for st. States without a sample and
// versions already published are skipped; the bool reports whether a
// message was sent.
func (p *PosePublisher) PublishState(st engine.DerivedVisualState) (bool, error) {
	if !st.HasSample || (p.lastVersion != 0 && st.Version <= p.lastVersion) {
		return false, nil
	}

	payload, err := json.Marshal(PoseFromState(st))
	if err != nil {
		return false, fmt.Errorf("marshal pose: %w", err)
	}

	token := p.client.Publish(p.topic, 0, true, payload)
	if !token.WaitTimeout(p.timeout) {
		return false, ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return false, fmt.Errorf("publish %s: %w", p.topic, err)
	}
	p.lastVersion = st.Version
	return true, nil
}

// Run publishes every state update from src until ctx is done or the
// subscription is closed. Publish errors are logged and do not stop it.
func (p *PosePublisher) Run(ctx context.Context, src Source) {
	id, updates := src.Subscribe()
	defer src.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			// Waypoint updates still carry the current state; PublishState
			// skips versions already sent.
			if _, err := p.PublishState(u.State); err != nil {
				p.logf("pose version %d: %v", u.State.Version, err)
			}
		}
	}
}

// Connect dials broker and returns a connected client.
func Connect(broker, clientID string, timeout time.Duration) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, err)
	}
	return client, nil
}
