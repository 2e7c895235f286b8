package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/carefront-intake/internal/archive"
	appconfig "github.com/wolfman30/carefront-intake/internal/config"
	"github.com/wolfman30/carefront-intake/internal/doctors"
	"github.com/wolfman30/carefront-intake/internal/patients"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// StorageDeps are the shared clients a patient store may need.
type StorageDeps struct {
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	AWS    *aws.Config
	Logger *logging.Logger
}

// BuildPatientRepository selects the store named by PATIENT_STORE. Durable
// stores seal each document with RECORD_KEY.
func BuildPatientRepository(cfg *appconfig.Config, deps StorageDeps) (patients.Repository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	store := cfg.PatientStore
	if store == "" {
		store = appconfig.StoreMemory
	}
	if store == appconfig.StoreMemory {
		logger.Warn("patient records are held in memory and lost on restart")
		return patients.NewInMemoryRepository(), nil
	}

	key, err := cfg.RecordKey()
	if err != nil {
		return nil, err
	}
	sealer, err := patients.NewSealer(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appconfig.ErrConfiguration, err)
	}

	switch store {
	case appconfig.StorePostgres:
		if deps.Pool == nil {
			return nil, fmt.Errorf("%w: DATABASE_URL is required for patient store postgres", appconfig.ErrConfiguration)
		}
		logger.Info("patient records stored in postgres")
		return patients.NewPostgresRepository(deps.Pool, sealer), nil
	case appconfig.StoreRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("%w: REDIS_ADDR is required for patient store redis", appconfig.ErrConfiguration)
		}
		logger.Info("patient records stored in redis")
		return patients.NewRedisRepository(deps.Redis, sealer), nil
	case appconfig.StoreDynamoDB:
		if deps.AWS == nil {
			return nil, fmt.Errorf("%w: aws configuration is required for patient store dynamodb", appconfig.ErrConfiguration)
		}
		logger.Info("patient records stored in dynamodb", "table", cfg.PatientsTable)
		return patients.NewDynamoRepository(dynamodb.NewFromConfig(*deps.AWS), cfg.PatientsTable, sealer), nil
	}
	return nil, fmt.Errorf("%w: unknown patient store %q", appconfig.ErrConfiguration, store)
}

// BuildRoster loads ROSTER_FILE when set, otherwise the built-in roster.
func BuildRoster(cfg *appconfig.Config, logger *logging.Logger) (*doctors.Directory, error) {
	seed := doctors.DefaultRoster()
	if cfg != nil && strings.TrimSpace(cfg.RosterFile) != "" {
		loaded, err := doctors.LoadRoster(cfg.RosterFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", appconfig.ErrConfiguration, err)
		}
		seed = loaded
		if logger != nil {
			logger.Info("doctor roster loaded", "path", cfg.RosterFile, "doctors", len(seed))
		}
	}
	return doctors.NewDirectory(seed)
}

// BuildArchiver returns nil unless ARCHIVE_BUCKET and AWS are configured.
func BuildArchiver(_ context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *archive.SessionArchiver {
	if cfg == nil || strings.TrimSpace(cfg.ArchiveBucket) == "" || awsCfg == nil {
		return nil
	}
	store := archive.NewStore(s3.NewFromConfig(*awsCfg), cfg.ArchiveBucket, logger)
	return archive.NewSessionArchiver(store, logger)
}
