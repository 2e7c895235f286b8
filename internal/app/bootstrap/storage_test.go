package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	appconfig "github.com/wolfman30/carefront-intake/internal/config"
	"github.com/wolfman30/carefront-intake/internal/patients"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

var testRecordKey = strings.Repeat("ab", 32)

func TestBuildPatientRepositoryDefaultsToMemory(t *testing.T) {
	repo, err := BuildPatientRepository(&appconfig.Config{}, StorageDeps{Logger: logging.New("error")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.(*patients.InMemoryRepository); !ok {
		t.Fatalf("expected in-memory repository, got %T", repo)
	}
}

func TestBuildPatientRepositoryDurableStoresNeedKey(t *testing.T) {
	cfg := &appconfig.Config{PatientStore: appconfig.StorePostgres}
	_, err := BuildPatientRepository(cfg, StorageDeps{Logger: logging.New("error")})
	if !errors.Is(err, appconfig.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBuildPatientRepositoryMissingBackend(t *testing.T) {
	for _, store := range []string{appconfig.StorePostgres, appconfig.StoreRedis, appconfig.StoreDynamoDB, "cassandra"} {
		cfg := &appconfig.Config{PatientStore: store, RecordKeyHex: testRecordKey}
		if _, err := BuildPatientRepository(cfg, StorageDeps{Logger: logging.New("error")}); !errors.Is(err, appconfig.ErrConfiguration) {
			t.Fatalf("%s: expected configuration error, got %v", store, err)
		}
	}
}

func TestBuildPatientRepositoryRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{PatientStore: appconfig.StoreRedis, RecordKeyHex: testRecordKey, RedisAddr: mr.Addr()}
	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	defer client.Close()

	repo, err := BuildPatientRepository(cfg, StorageDeps{Redis: client, Logger: logging.New("error")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.(*patients.RedisRepository); !ok {
		t.Fatalf("expected redis repository, got %T", repo)
	}
}

func TestBuildPatientRepositoryDynamo(t *testing.T) {
	cfg := &appconfig.Config{PatientStore: appconfig.StoreDynamoDB, RecordKeyHex: testRecordKey, PatientsTable: "patients"}
	awsCfg := aws.Config{Region: "us-east-1"}
	repo, err := BuildPatientRepository(cfg, StorageDeps{AWS: &awsCfg, Logger: logging.New("error")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.(*patients.DynamoRepository); !ok {
		t.Fatalf("expected dynamo repository, got %T", repo)
	}
}

func TestBuildRosterFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	body := "doctors:\n  - id: x1\n    name: Dr. Test\n    specialty: General Practice\n    experience: 3 years\n    status: Available\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write roster: %v", err)
	}

	dir, err := BuildRoster(&appconfig.Config{RosterFile: path}, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := dir.List(); len(got) != 1 || got[0].ID != "x1" {
		t.Fatalf("unexpected roster %+v", got)
	}

	if _, err := BuildRoster(&appconfig.Config{RosterFile: filepath.Join(t.TempDir(), "missing.yaml")}, nil); !errors.Is(err, appconfig.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBuildArchiverDisabledWithoutBucket(t *testing.T) {
	if a := BuildArchiver(context.Background(), &appconfig.Config{}, nil, nil); a != nil {
		t.Fatalf("expected nil archiver")
	}
}
