package stream_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/huddle-app/huddle/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupNATS(t *testing.T) (string, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready"),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)

	cleanup := func() {
		_ = container.Terminate(ctx)
	}
	return fmt.Sprintf("nats://%s:%s", host, port.Port()), cleanup
}

func TestNATSBroker_Subject(t *testing.T) {
	b := stream.NewNATSBroker(nil, stream.NewHub(1, nil), "huddle.")
	assert.Equal(t, "huddle.teams.abc.messages", b.Subject("abc"))

	b = stream.NewNATSBroker(nil, stream.NewHub(1, nil), "")
	assert.Equal(t, "huddle.teams.abc.messages", b.Subject("abc"))
}

func TestNATSBroker_FansOutAcrossInstances(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	url, cleanup := setupNATS(t)
	defer cleanup()

	ncA, err := stream.ConnectNATS(url, "instance-a")
	require.NoError(t, err)
	ncB, err := stream.ConnectNATS(url, "instance-b")
	require.NoError(t, err)

	hubA := stream.NewHub(4, nil)
	hubB := stream.NewHub(4, nil)
	brokerA := stream.NewNATSBroker(ncA, hubA, "test")
	brokerB := stream.NewNATSBroker(ncB, hubB, "test")
	defer brokerA.Close()
	defer brokerB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = brokerA.Run(ctx) }()
	go func() { _ = brokerB.Run(ctx) }()

	for _, b := range []*stream.NATSBroker{brokerA, brokerB} {
		select {
		case <-b.Ready():
		case <-time.After(10 * time.Second):
			t.Fatal("broker subscription not ready")
		}
	}

	subB := hubB.Subscribe("team-a")
	defer subB.Close()
	other := hubB.Subscribe("team-b")
	defer other.Close()

	sent := stream.MessageEvent{
		ID:        "m1",
		TeamID:    "team-a",
		UserID:    "u1",
		Content:   "across the wire",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Sender:    stream.Sender{ID: "u1", Name: "Alice", Email: "alice@acme.test"},
	}
	require.NoError(t, brokerA.Publish(ctx, sent))

	select {
	case got := <-subB.Events():
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Content, got.Content)
		assert.Equal(t, sent.Sender, got.Sender)
	case <-time.After(5 * time.Second):
		t.Fatal("event did not reach the other instance")
	}

	select {
	case got := <-other.Events():
		t.Fatalf("team-b subscriber received %v", got)
	case <-time.After(200 * time.Millisecond):
	}
}
