// Package events announces completed synthesis runs to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

// DefaultSubject carries one message per saved corpus.
const DefaultSubject = "soul.synthesis.completed"

// msgPublisher is the part of *nats.Conn the publisher needs.
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSPublisher publishes run summaries as JSON. The corpus ID travels in the
// Nats-Msg-Id header so JetStream consumers can deduplicate redeliveries.
type NATSPublisher struct {
	conn    msgPublisher
	subject string
	logger  *zap.Logger
}

func NewNATSPublisher(conn msgPublisher, subject string, logger *zap.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}
}

func (p *NATSPublisher) PublishRun(ctx context.Context, s *domain.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode run summary: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, s.CorpusID)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}

	p.logger.Debug("run summary published",
		zap.String("subject", p.subject),
		zap.String("corpus_id", s.CorpusID),
		zap.Int("cycle", s.Cycle))
	return nil
}

// Connect dials NATS with reconnect handling that logs through logger.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("neon-soul"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return conn, nil
}
