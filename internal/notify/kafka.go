package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MailRequest is the record handed to the downstream mail service.
type MailRequest struct {
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	RequestedAt time.Time `json:"requested_at"`
}

// KafkaSender publishes reminders to a topic consumed by a mail service.
// Recipients are e-mail addresses; the address is the message key so one
// recipient's reminders stay ordered within a partition.
type KafkaSender struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	return &KafkaSender{writer: writer, now: time.Now}
}

func (s *KafkaSender) Name() string { return "kafka" }

func (s *KafkaSender) ValidRecipient(recipient string) bool {
	addr, err := mail.ParseAddress(recipient)
	return err == nil && addr.Address == recipient
}

func (s *KafkaSender) Send(ctx context.Context, recipient, subject, body string) error {
	payload, err := json.Marshal(MailRequest{
		To:          recipient,
		Subject:     subject,
		Body:        body,
		RequestedAt: s.now().UTC(),
	})
	if err != nil {
		return err
	}

	if err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(recipient),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("failed to publish mail request: %w", err)
	}
	return nil
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}

// EnsureTopic creates topic on the cluster controller if it does not exist.
func EnsureTopic(ctx context.Context, brokers []string, topic string) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("failed to create topic %s: %w", topic, err)
	}
	return nil
}
