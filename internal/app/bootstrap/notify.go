package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/carefront-intake/internal/config"
	"github.com/wolfman30/carefront-intake/internal/notify"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// BuildNotifier prefers SendGrid, then SES, then a logging stub. Returns nil
// when CLINIC_NOTIFY_EMAIL is unset.
func BuildNotifier(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *notify.Service {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.ClinicNotifyEmail) == "" {
		logger.Info("clinic notifications disabled")
		return nil
	}

	var mailer notify.Mailer
	switch {
	case cfg.SendGridAPIKey != "":
		mailer = notify.NewSendGridMailer(cfg.SendGridAPIKey, notify.Sender{
			Email: cfg.SendGridFromEmail,
			Name:  cfg.SendGridFromName,
		}, logger)
		logger.Info("clinic notifications via sendgrid")
	case cfg.SESFromEmail != "" && awsCfg != nil:
		mailer = notify.NewSESMailer(sesv2.NewFromConfig(*awsCfg), notify.Sender{
			Email: cfg.SESFromEmail,
			Name:  cfg.SendGridFromName,
		}, logger)
		logger.Info("clinic notifications via ses")
	default:
		mailer = notify.NewLogMailer(logger)
		logger.Warn("no email provider configured; clinic notifications are logged")
	}
	return notify.NewService(mailer, cfg.ClinicNotifyEmail, logger)
}
