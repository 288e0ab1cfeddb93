//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/adapter/kafka"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/config"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/model"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/observability"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/pipeline"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/predict"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	testSourceTopic = "test-readings"
	testSinkTopic   = "test-predictions"
)

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("windspeed-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func newConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 2 * time.Second,
	}
}

func newService(t *testing.T) *predict.Service {
	t.Helper()
	a, err := model.Load("../model/testdata/svr_rbf.json", "../model/testdata/model_info.json")
	require.NoError(t, err)
	return predict.New(a, discardLogger(), observability.NewMetricsForTesting())
}

func readingsFixtures(t *testing.T) []model.Fixture {
	t.Helper()
	fixtures, err := model.LoadFixtures("../model/testdata/fixtures_svr_rbf.json")
	require.NoError(t, err)
	return fixtures
}

type sinkMessage struct {
	Key     string
	Headers map[string]string
	Event   domain.PredictionEvent
}

func readSink(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var ev domain.PredictionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev), "unmarshal sink message")
	return sinkMessage{Key: string(msg.Key), Headers: headers, Event: ev}
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	c := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func publish(ctx context.Context, t *testing.T, broker string, msgs ...kafkago.Message) {
	t.Helper()
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))
}

// --- tests ---

// TestPipelineEndToEnd runs readings through Reader, PredictionTransformer,
// and Writer against a real broker and checks every prediction.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := newConfig(broker, "test-pipeline")

	svc := newService(t)
	fixtures := readingsFixtures(t)

	msgs := make([]kafkago.Message, 0, len(fixtures))
	want := make(map[string]domain.PredictionResult, len(fixtures))
	for _, f := range fixtures {
		payload, err := json.Marshal(f.Reading)
		require.NoError(t, err)
		msgs = append(msgs, kafkago.Message{Key: []byte(f.Name), Value: payload})

		r, err := svc.Predict(f.Reading)
		require.NoError(t, err)
		want[f.Name] = r
	}
	publish(ctx, t, broker, msgs...)

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, pipeline.NewTransformer(svc), writer, discardLogger(), observability.NewMetricsForTesting(), 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	for range fixtures {
		m := readSink(ctx, t, consumer)
		expected, ok := want[m.Key]
		require.True(t, ok, "unexpected key %q", m.Key)

		assert.Equal(t, m.Key, m.Event.ID)
		assert.Equal(t, expected, m.Event.PredictionResult)
		assert.Equal(t, "SVM", m.Headers["model_name"])
		_, err := time.Parse(time.RFC3339, m.Headers["predicted_at"])
		assert.NoError(t, err, "predicted_at should be valid RFC3339")
	}

	pipelineCancel()
	require.NoError(t, <-errCh)
	assert.NoError(t, p.CheckReadiness(ctx))
}

// TestPipelinePoisonReading verifies an undecodable reading is skipped and
// the next one is still predicted.
func TestPipelinePoisonReading(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := newConfig(broker, "test-poison")

	publish(ctx, t, broker,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("good"), Value: []byte(`{"CAPE":3500,"SRH":300}`)},
	)

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, pipeline.NewTransformer(newService(t)), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	m := readSink(ctx, t, consumer)
	assert.Equal(t, "good", m.Key)

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
