package websocket

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is a test double for ClientInterface that captures sent messages.
type mockClient struct {
	id       string
	messages [][]byte
	mu       sync.Mutex
	closed   bool
}

func newMockClient(id string) *mockClient {
	return &mockClient{id: id, messages: make([][]byte, 0)}
}

func (m *mockClient) ID() string { return m.id }

func (m *mockClient) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClientClosed
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockClient) getMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.messages))
	copy(out, m.messages)
	return out
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	client := newMockClient("client-1")

	hub.Register(client)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(client)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_Send_DeliversToRegisteredClient(t *testing.T) {
	hub := NewHub()
	client := newMockClient("client-1")
	hub.Register(client)

	err := hub.Send("client-1", NewEvent("intent", map[string]string{"intent": "log_transaction"}))
	require.NoError(t, err)

	messages := client.getMessages()
	require.Len(t, messages, 1)
	assert.Contains(t, string(messages[0]), "intent")
}

func TestHub_Send_UnknownClientReturnsClosed(t *testing.T) {
	hub := NewHub()
	err := hub.Send("missing", NewEvent("done", nil))
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestEvent_ToJSON_RoundTrips(t *testing.T) {
	event := NewEvent("chunk", map[string]string{"text": "hello"})
	data, err := event.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"chunk"`)
	assert.Contains(t, string(data), "hello")
}
