//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/hazard-report-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-report-service/internal/adapter/memstore"
	"github.com/couchcryptid/hazard-report-service/internal/config"
	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/couchcryptid/hazard-report-service/internal/observability"
	"github.com/couchcryptid/hazard-report-service/internal/workflow"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testReportTopic = "test-hazard-reports"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("hazard-test"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
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
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func readOne(ctx context.Context, t *testing.T, broker string) kafkago.Message {
	t.Helper()
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testReportTopic,
		Partition: 0,
		MaxWait:   500 * time.Millisecond,
	})
	t.Cleanup(func() { _ = r.Close() })

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	msg, err := r.ReadMessage(readCtx)
	require.NoError(t, err, "read from report topic")
	return msg
}

// TestFormSubmitPublishesReport drives a complete form through the Kafka
// publisher and reads the report back from the topic.
func TestFormSubmitPublishesReport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportTopic)

	cfg := &config.Config{
		KafkaEnabled:     true,
		KafkaBrokers:     []string{broker},
		KafkaReportTopic: testReportTopic,
	}
	clock := clockwork.NewRealClock()
	publisher := kafka.NewPublisher(cfg, clock, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	store := memstore.New("draft", "draft-ts")
	form := workflow.NewForm(store, publisher, nil, clock, 0, discardLogger(), observability.NewMetricsForTesting())

	require.NoError(t, form.SetCategory(domain.CategoryOcean))
	require.NoError(t, form.SetHazardType("oil_spill"))
	require.NoError(t, form.SetLocation(domain.Location{Latitude: "9.931200", Longitude: "76.267300", Address: "Fort Kochi"}))
	require.NoError(t, form.SetSeverity(domain.SeverityMedium))
	require.NoError(t, form.SetDescription(strings.Repeat("Dark sheen spreading from the anchorage. ", 3)))
	require.NoError(t, form.SetContactInfo(domain.ContactInfo{Name: "Anil", Phone: "555-0199", Email: "anil@example.com"}))
	require.NoError(t, form.SaveDraft(ctx))

	receipt, err := form.Submit(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `^HR-\d{6}$`, receipt.ReportID)
	assert.Equal(t, workflow.StateSubmitted, form.State())
	_, ok := store.Get("draft")
	assert.False(t, ok, "saved draft cleared after publish")

	msg := readOne(ctx, t, broker)
	assert.Equal(t, receipt.ReportID, string(msg.Key))

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "oil_spill", headers["hazard_type"])
	assert.Equal(t, "medium", headers["severity"])
	assert.NotEmpty(t, headers["s2_cell"])

	var report domain.Report
	require.NoError(t, json.Unmarshal(msg.Value, &report))
	assert.Equal(t, receipt.ReportID, report.ReportID)
	assert.Equal(t, "Fort Kochi", report.Location.Address)
	assert.Equal(t, "Anil", report.ContactInfo.Name)
}

// TestPublisherUnreachableBroker verifies that a failed publish leaves the
// form in the failed state with its data intact.
func TestPublisherUnreachableBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := &config.Config{
		KafkaEnabled:     true,
		KafkaBrokers:     []string{"127.0.0.1:1"},
		KafkaReportTopic: testReportTopic,
	}
	clock := clockwork.NewRealClock()
	publisher := kafka.NewPublisher(cfg, clock, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	form := workflow.NewForm(memstore.New("draft", "draft-ts"), publisher, nil, clock, 0, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, form.SetCategory(domain.CategoryLocal))
	require.NoError(t, form.SetHazardType("electrocution"))
	require.NoError(t, form.SetLocation(domain.Location{Latitude: "1", Longitude: "2"}))
	require.NoError(t, form.SetSeverity(domain.SeverityHigh))
	require.NoError(t, form.SetDescription(strings.Repeat("Live wire down across the flooded lane. ", 2)))
	require.NoError(t, form.SetAnonymous(true))

	submitCtx, submitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer submitCancel()
	_, err := form.Submit(submitCtx)
	require.Error(t, err)

	assert.Equal(t, workflow.StateSubmitFailed, form.State())
	assert.Equal(t, "electrocution", form.Draft().HazardType)
}
