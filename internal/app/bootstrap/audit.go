package bootstrap

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/carefront-intake/internal/compliance"
	appconfig "github.com/wolfman30/carefront-intake/internal/config"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// Audit sinks accepted by AUDIT_SINK.
const (
	AuditSinkLog      = "log"
	AuditSinkMemory   = "memory"
	AuditSinkPostgres = "postgres"
	AuditSinkSQS      = "sqs"
)

// AuditTrail is the asynchronous recorder plus, for sinks that can be read
// back, the querier behind GET /admin/audit.
type AuditTrail struct {
	Recorder *compliance.Recorder
	Querier  compliance.Querier
}

// BuildAuditTrail selects the sink named by AUDIT_SINK.
func BuildAuditTrail(cfg *appconfig.Config, db *sql.DB, awsCfg *aws.Config, logger *logging.Logger) (*AuditTrail, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var (
		sink    compliance.Sink
		querier compliance.Querier
	)
	switch strings.TrimSpace(cfg.AuditSink) {
	case "", AuditSinkLog:
		sink = compliance.NewLogSink(logger)
	case AuditSinkMemory:
		mem := compliance.NewMemorySink()
		sink, querier = mem, mem
	case AuditSinkPostgres:
		if db == nil {
			return nil, fmt.Errorf("%w: DATABASE_URL is required for audit sink postgres", appconfig.ErrConfiguration)
		}
		svc := compliance.NewAuditService(db)
		sink, querier = svc, svc
	case AuditSinkSQS:
		if awsCfg == nil || strings.TrimSpace(cfg.AuditQueueURL) == "" {
			return nil, fmt.Errorf("%w: AUDIT_QUEUE_URL and aws configuration are required for audit sink sqs", appconfig.ErrConfiguration)
		}
		sink = compliance.NewSQSSink(sqs.NewFromConfig(*awsCfg), cfg.AuditQueueURL)
	default:
		return nil, fmt.Errorf("%w: unknown audit sink %q", appconfig.ErrConfiguration, cfg.AuditSink)
	}

	logger.Info("audit trail configured", "sink", cfg.AuditSink, "queryable", querier != nil)
	return &AuditTrail{
		Recorder: compliance.NewRecorder(sink, logger),
		Querier:  querier,
	}, nil
}
