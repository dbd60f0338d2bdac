// Package whatsapp notifies the rancher of what the nightly verification did.
package whatsapp

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herd/internal/config"
	"github.com/mamadbah2/herd/internal/domain/models"
	client "github.com/mamadbah2/herd/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// ErrNoRecipient is returned when no destination number is configured.
var ErrNoRecipient = errors.New("whatsapp recipient not configured")

// Notifier delivers sweep summaries.
type Notifier interface {
	NotifySweep(ctx context.Context, result models.SweepResult, at time.Time) error
}

// ReportFormatter renders a sweep result as a chat message.
type ReportFormatter interface {
	FormatSweepReport(result models.SweepResult, at time.Time) string
}

// MetaWhatsAppService sends notifications through the WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg       config.WhatsAppConfig
	client    client.Client
	formatter ReportFormatter
	logger    *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, formatter ReportFormatter, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:       cfg,
		client:    client,
		formatter: formatter,
		logger:    logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// NotifySweep sends the formatted sweep report to the configured recipient.
// Quiet sweeps (nothing changed, nothing pending) are not sent.
func (s *MetaWhatsAppService) NotifySweep(ctx context.Context, result models.SweepResult, at time.Time) error {
	if !result.Changed() && result.Pending == 0 {
		s.logger.Debug("quiet sweep, notification skipped")
		return nil
	}
	if s.cfg.RecipientID == "" {
		return ErrNoRecipient
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:   s.cfg.RecipientID,
		Body: s.formatter.FormatSweepReport(result, at),
	})
	if err != nil {
		return err
	}

	messageID := ""
	if resp != nil && len(resp.Messages) > 0 {
		messageID = resp.Messages[0].ID
	}
	s.logger.Info("sweep notification sent", zap.String("to", s.cfg.RecipientID), zap.String("message_id", messageID))
	return nil
}

// Discard is the Notifier used when WhatsApp is not configured.
type Discard struct{}

// NotifySweep implements Notifier.
func (Discard) NotifySweep(context.Context, models.SweepResult, time.Time) error { return nil }
