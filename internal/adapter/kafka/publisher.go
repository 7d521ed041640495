package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/hazard-report-service/internal/config"
	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/golang/geo/s2"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// cellLevel is the S2 level of the s2_cell header, roughly 1 km across.
const cellLevel = 13

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher hands finalized reports to the ingestion topic.
// It implements workflow.Submitter.
type Publisher struct {
	writer messageWriter
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured report topic.
func NewPublisher(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, clock: clock, logger: logger}
}

// Submit stamps the draft with a report id and publishes it. The receipt is
// returned only once the broker has acknowledged the write.
func (p *Publisher) Submit(ctx context.Context, draft domain.Draft) (domain.Receipt, error) {
	now := p.clock.Now().UTC()
	report := domain.Report{
		ReportID:  domain.NewReportID(now),
		CreatedAt: now,
		Draft:     draft,
	}

	msg, err := serializeToMessage(report)
	if err != nil {
		return domain.Receipt{}, err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return domain.Receipt{}, fmt.Errorf("publish report %s: %w", report.ReportID, err)
	}

	p.logger.Debug("report published", "report_id", report.ReportID, "bytes", len(msg.Value))
	return domain.Receipt{ReportID: report.ReportID, CreatedAt: report.CreatedAt}, nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Report into a Kafka message keyed by report id.
func serializeToMessage(report domain.Report) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize hazard report: %w", err)
	}

	headers := []kafkago.Header{
		{Key: "hazard_type", Value: []byte(report.HazardType)},
		{Key: "severity", Value: []byte(report.Severity)},
		{Key: "created_at", Value: []byte(report.CreatedAt.Format(time.RFC3339))},
	}
	if token, ok := cellToken(report.Location); ok {
		headers = append(headers, kafkago.Header{Key: "s2_cell", Value: []byte(token)})
	}

	return kafkago.Message{
		Key:     []byte(report.ReportID),
		Value:   data,
		Headers: headers,
	}, nil
}

// cellToken returns the S2 cell covering loc, if its coordinates parse.
func cellToken(loc domain.Location) (string, bool) {
	lat, err := strconv.ParseFloat(loc.Latitude, 64)
	if err != nil {
		return "", false
	}
	lon, err := strconv.ParseFloat(loc.Longitude, 64)
	if err != nil {
		return "", false
	}
	ll := s2.LatLngFromDegrees(lat, lon)
	if !ll.IsValid() {
		return "", false
	}
	return s2.CellIDFromLatLng(ll).Parent(cellLevel).ToToken(), true
}
