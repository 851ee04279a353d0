//go:build unit

package kafkarest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mockclock "github.com/hugolhafner/go-kafka-rest/clock/mock"
	"github.com/hugolhafner/go-kafka-rest/consumer"
	mockkafka "github.com/hugolhafner/go-kafka-rest/kafka/mock"
	mocklogger "github.com/hugolhafner/go-kafka-rest/logger/mock"
	"github.com/hugolhafner/go-kafka-rest/serde"
	"github.com/hugolhafner/go-kafka-rest/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApplication(t *testing.T, client *mockkafka.Client, opts ...ConfigOption) *Application {
	t.Helper()

	opts = append(
		[]ConfigOption{
			WithWorkerOptions(
				worker.WithClock(mockclock.New(mockclock.WithAutoTick(time.Millisecond))),
				worker.WithRequestTimeout(100*time.Millisecond),
				worker.WithBackoffInterval(10*time.Millisecond),
			),
		}, opts...,
	)

	app, err := NewApplication(client, opts...)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	return app
}

func TestNewApplication_RejectsZeroWorkers(t *testing.T) {
	_, err := NewApplication(mockkafka.NewClient(), WithWorkers(0))
	require.Error(t, err)
}

func TestApplication_ReadTopic(t *testing.T) {
	client := mockkafka.NewClient()
	client.AddRecords(
		"orders", 0,
		mockkafka.SimpleRecord("k1", "v1"),
		mockkafka.SimpleRecord("k2", "v2"),
	)
	client.AddRecords("orders", 1, mockkafka.SimpleRecord("k3", "v3"))

	app := newTestApplication(t, client)

	id, err := app.CreateSession("readers")
	require.NoError(t, err)

	records, err := app.ReadTopic(context.Background(), id, "orders", 1024)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []byte("k1"), records[0].Key)
	assert.Equal(t, []byte("v3"), records[2].Value)
	assert.Equal(t, int32(1), records[2].Partition)

	offsets, err := app.ConsumedOffsets(id, "orders")
	require.NoError(t, err)
	assert.Equal(t, map[int32]int64{0: 1, 1: 0}, offsets)

	// a second read picks up where the first stopped
	client.AddRecords("orders", 0, mockkafka.SimpleRecord("k4", "v4"))
	records, err = app.ReadTopic(context.Background(), id, "orders", 1024)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].Offset)
}

func TestApplication_ReadTopicRespectsBudget(t *testing.T) {
	client := mockkafka.NewClient()
	client.AddRecords("orders", 0, mockkafka.SizedRecords(5, 10)...)

	app := newTestApplication(t, client)

	id, err := app.CreateSession("readers")
	require.NoError(t, err)

	records, err := app.ReadTopic(context.Background(), id, "orders", 30)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestApplication_UnknownTopicReturnsEmpty(t *testing.T) {
	app := newTestApplication(t, mockkafka.NewClient())

	id, err := app.CreateSession("readers")
	require.NoError(t, err)

	records, err := app.ReadTopic(context.Background(), id, "missing", 1024)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestApplication_UnknownSession(t *testing.T) {
	app := newTestApplication(t, mockkafka.NewClient())

	_, err := app.ReadTopic(context.Background(), "nope", "orders", 1024)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = app.ConsumedOffsets("nope", "orders")
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.ErrorIs(t, app.DeleteSession("nope"), ErrSessionNotFound)
}

func TestApplication_CreateSessionConsumerError(t *testing.T) {
	boom := errors.New("no brokers")
	app := newTestApplication(t, mockkafka.NewClient(mockkafka.WithNewConsumerError(boom)))

	_, err := app.CreateSession("readers")
	require.ErrorIs(t, err, boom)
}

func TestApplication_SessionsAssignedRoundRobin(t *testing.T) {
	app := newTestApplication(t, mockkafka.NewClient(), WithWorkers(3))

	var assigned []*worker.Worker
	for range 4 {
		id, err := app.CreateSession("readers")
		require.NoError(t, err)
		assigned = append(assigned, app.sessions[id].worker)
	}

	assert.Same(t, app.workers[0], assigned[0])
	assert.Same(t, app.workers[1], assigned[1])
	assert.Same(t, app.workers[2], assigned[2])
	assert.Same(t, app.workers[0], assigned[3])
}

func TestApplication_SessionsShareWorker(t *testing.T) {
	client := mockkafka.NewClient()
	client.AddRecords("a", 0, mockkafka.SimpleRecord("k", "a"))
	client.AddRecords("b", 0, mockkafka.SimpleRecord("k", "b"))

	app := newTestApplication(t, client)

	first, err := app.CreateSession("one")
	require.NoError(t, err)
	second, err := app.CreateSession("two")
	require.NoError(t, err)

	ha, err := app.ReadTopicAsync(context.Background(), first, "a", 1024, nil)
	require.NoError(t, err)
	hb, err := app.ReadTopicAsync(context.Background(), second, "b", 1024, nil)
	require.NoError(t, err)

	ra, err := ha.WaitTimeout(5 * time.Second)
	require.NoError(t, err)
	rb, err := hb.WaitTimeout(5 * time.Second)
	require.NoError(t, err)

	require.Len(t, ra, 1)
	require.Len(t, rb, 1)
	assert.Equal(t, []byte("a"), ra[0].Value)
	assert.Equal(t, []byte("b"), rb[0].Value)
}

func TestApplication_ReadTopicAsyncCallback(t *testing.T) {
	client := mockkafka.NewClient()
	client.AddRecords("orders", 0, mockkafka.SimpleRecord("k", "v"))

	app := newTestApplication(t, client)
	id, err := app.CreateSession("readers")
	require.NoError(t, err)

	got := make(chan []consumer.Record, 1)
	h, err := app.ReadTopicAsync(
		context.Background(), id, "orders", 1024, func(records []consumer.Record) {
			got <- records
		},
	)
	require.NoError(t, err)

	select {
	case records := <-got:
		require.Len(t, records, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("callback not called")
	}

	_, err = h.WaitTimeout(5 * time.Second)
	require.NoError(t, err)
}

func TestApplication_ReadTopicContextCancelled(t *testing.T) {
	client := mockkafka.NewClient()
	client.AddTopic("orders")

	app, err := NewApplication(client, WithWorkerOptions(worker.WithRequestTimeout(time.Minute)))
	require.NoError(t, err)
	t.Cleanup(app.Close)

	id, err := app.CreateSession("readers")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = app.ReadTopic(ctx, id, "orders", 1024)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestApplication_EmbeddedFormat(t *testing.T) {
	client := mockkafka.NewClient()
	client.AddRecords(
		"orders", 0,
		mockkafka.SimpleRecord("k1", `{"id":1}`),
		mockkafka.SimpleRecord("k2", `not json`),
	)

	l := mocklogger.New()
	app := newTestApplication(t, client, WithLogger(l))

	id, err := app.CreateSession(
		"readers", consumer.WithValueFormat(serde.ToUntypedDeserialiser[json.RawMessage](serde.JSON[json.RawMessage]())),
	)
	require.NoError(t, err)

	records, err := app.ReadTopic(context.Background(), id, "orders", 1024)
	require.NoError(t, err)
	require.Len(t, records, 1)

	l.AssertCalledWithMessage(t, "Unexpected failure in read, completing with partial result")
}

func TestApplication_DeleteSession(t *testing.T) {
	client := mockkafka.NewClient()
	app := newTestApplication(t, client)

	id, err := app.CreateSession("readers")
	require.NoError(t, err)

	require.NoError(t, app.DeleteSession(id))
	assert.True(t, client.Consumers()[0].Closed())

	_, err = app.ReadTopic(context.Background(), id, "orders", 1024)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, app.DeleteSession(id), ErrSessionNotFound)
}

func TestApplication_Close(t *testing.T) {
	client := mockkafka.NewClient()
	app, err := NewApplication(client, WithWorkers(2))
	require.NoError(t, err)

	id, err := app.CreateSession("readers")
	require.NoError(t, err)
	_, err = app.CreateSession("readers")
	require.NoError(t, err)

	app.Close()
	app.Close()

	for _, c := range client.Consumers() {
		assert.True(t, c.Closed())
	}

	_, err = app.CreateSession("readers")
	require.ErrorIs(t, err, ErrClosed)

	_, err = app.ReadTopic(context.Background(), id, "orders", 1024)
	require.ErrorIs(t, err, ErrClosed)
}
