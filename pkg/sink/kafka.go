package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/product-scraper/pkg/config"
	"github.com/Sriram-PR/product-scraper/pkg/log"
	"github.com/Sriram-PR/product-scraper/pkg/models"
	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// messageWriter is the subset of *kafka.Writer used by KafkaSink
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes one message per product record, keyed by domain
type KafkaSink struct {
	w   messageWriter
	log *logrus.Entry
}

// NewKafkaSink creates a writer for cfg.Topic on cfg.Brokers.
// Connections are made lazily on the first write.
func NewKafkaSink(cfg config.KafkaConfig, logger *logrus.Entry) *KafkaSink {
	kafkaLog := logger.WithField("component", "kafka")
	infoLog, errLog := log.KafkaLoggers(kafkaLog)

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{}, // Same domain, same partition
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
		Logger:                 infoLog,
		ErrorLogger:            errLog,
	}
	logger.Infof("Kafka sink ready (topic %s, brokers %v)", cfg.Topic, cfg.Brokers)
	return newKafkaSink(w, logger)
}

func newKafkaSink(w messageWriter, logger *logrus.Entry) *KafkaSink {
	return &KafkaSink{w: w, log: logger}
}

// Append publishes rec as JSON
func (s *KafkaSink) Append(ctx context.Context, rec models.ProductRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", utils.ErrSink, rec.URL, err)
	}
	msg := kafka.Message{
		Key:   []byte(rec.Domain),
		Value: payload,
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: publishing %s: %w", utils.ErrSink, rec.URL, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer
func (s *KafkaSink) Close() error {
	return s.w.Close()
}
