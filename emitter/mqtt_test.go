package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-posewatch/activity"
	"github.com/swdee/go-posewatch/pipeline"
)

// fakeToken completes immediately with err, or never when pending is set
type fakeToken struct {
	err     error
	pending bool
}

func (t *fakeToken) Wait() bool {
	return !t.pending
}

func (t *fakeToken) WaitTimeout(time.Duration) bool {
	return !t.pending
}

func (t *fakeToken) Done() <-chan struct{} {

	ch := make(chan struct{})

	if !t.pending {
		close(ch)
	}

	return ch
}

func (t *fakeToken) Error() error {
	return t.err
}

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient records publishes, methods not overridden panic via the nil
// embedded interface
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	messages     []published
	connectErr   error
	publishErr   error
	pending      bool
	disconnected bool
}

func (c *fakeClient) Connect() mqtt.Token {
	return &fakeToken{err: c.connectErr}
}

func (c *fakeClient) IsConnected() bool {
	return !c.disconnected
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.disconnected = true
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, published{topic, qos, payload.([]byte)})

	return &fakeToken{err: c.publishErr, pending: c.pending}
}

func testConfig() Config {
	return Config{
		Broker:   "localhost:1883",
		Instance: "room1",
		Prefix:   "posewatch",
		QoS:      0,
		AlertQoS: 1,
		Timeout:  50 * time.Millisecond,
	}
}

func connected(t *testing.T, client *fakeClient) *MQTT {

	e := NewMQTT(testConfig())
	require.NoError(t, e.connect(context.Background(), client))

	return e
}

func TestPublishActivity(t *testing.T) {

	client := &fakeClient{}
	e := connected(t, client)

	err := e.Present(pipeline.Snapshot{
		Session: "s1",
		Seq:     12,
		Result:  &activity.Result{Label: activity.Sitting, Index: 1, Confidence: 0.7},
	})
	require.NoError(t, err)

	require.Len(t, client.messages, 1)
	assert.Equal(t, "posewatch/room1/activity", client.messages[0].topic)
	assert.Equal(t, byte(0), client.messages[0].qos)

	var msg Message
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &msg))
	assert.Equal(t, "room1", msg.Instance)
	assert.Equal(t, "s1", msg.Session)
	assert.Equal(t, uint64(12), msg.Seq)
	assert.Equal(t, activity.Sitting, msg.Result.Label)

	stats := e.Stats()
	assert.True(t, stats.Connected)
	assert.Equal(t, uint64(1), stats.Published["posewatch/room1/activity"])
}

func TestPublishFallingAlert(t *testing.T) {

	client := &fakeClient{}
	e := connected(t, client)

	require.NoError(t, e.Publish(context.Background(), Message{
		Result: activity.Result{Label: activity.Falling, Confidence: 0.95},
	}))

	require.Len(t, client.messages, 2)
	assert.Equal(t, "posewatch/room1/activity", client.messages[0].topic)
	assert.Equal(t, "posewatch/room1/alert", client.messages[1].topic)
	assert.Equal(t, byte(1), client.messages[1].qos)
}

func TestPresentSkipsFramesWithoutResult(t *testing.T) {

	client := &fakeClient{}
	e := connected(t, client)

	require.NoError(t, e.Present(pipeline.Snapshot{Seq: 1, Status: pipeline.StatusCapturing}))
	assert.Empty(t, client.messages)
}

func TestPublishErrors(t *testing.T) {

	e := NewMQTT(testConfig())

	err := e.Publish(context.Background(), Message{})
	assert.EqualError(t, err, "mqtt not connected")

	client := &fakeClient{publishErr: errors.New("broker refused")}
	require.NoError(t, e.connect(context.Background(), client))

	err = e.Publish(context.Background(), Message{})
	assert.ErrorContains(t, err, "broker refused")

	client.publishErr = nil
	client.pending = true

	err = e.Publish(context.Background(), Message{})
	assert.ErrorContains(t, err, "timeout")

	assert.Equal(t, uint64(3), e.Stats().Errors)
}

func TestConnectFailure(t *testing.T) {

	e := NewMQTT(testConfig())

	err := e.connect(context.Background(), &fakeClient{connectErr: errors.New("refused")})
	assert.ErrorContains(t, err, "refused")
	assert.False(t, e.Stats().Connected)
}

func TestClose(t *testing.T) {

	client := &fakeClient{}
	e := connected(t, client)

	require.NoError(t, e.Close())
	assert.True(t, client.disconnected)
	assert.False(t, e.Stats().Connected)
}
