package patients

import (
	"context"
	"encoding/json"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealedDocument(t *testing.T, sealer *Sealer, p *Patient) []byte {
	t.Helper()
	plain, err := json.Marshal(p)
	require.NoError(t, err)
	sealed, err := sealer.Seal(plain, p.MedicalCardID)
	require.NoError(t, err)
	return sealed
}

func TestPostgresRepositoryFind(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sealer := testSealer(t)
	repo := newPostgresRepositoryWithExec(mock, sealer)
	doc := sealedDocument(t, sealer, &Patient{MedicalCardID: "111-111-111", Name: "Ann Lee", HistorySummary: NewPatientHistory})

	mock.ExpectQuery("SELECT document, version FROM patients").
		WithArgs("111-111-111").
		WillReturnRows(pgxmock.NewRows([]string{"document", "version"}).AddRow(doc, int64(3)))

	p, err := repo.Find(context.Background(), "111-111-111")
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", p.Name)
	assert.Equal(t, int64(3), p.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryFindMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock, testSealer(t))
	mock.ExpectQuery("SELECT document, version FROM patients").
		WithArgs("000-000-000").
		WillReturnRows(pgxmock.NewRows([]string{"document", "version"}))

	_, err = repo.Find(context.Background(), "000-000-000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresRepositoryUpsertInsertAndUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock, testSealer(t))
	p := &Patient{MedicalCardID: "111-111-111", Name: "Ann Lee"}

	mock.ExpectExec("INSERT INTO patients").
		WithArgs("111-111-111", pgxmock.AnyArg(), int64(1)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Upsert(context.Background(), p))
	assert.Equal(t, int64(1), p.Version)

	mock.ExpectExec("UPDATE patients").
		WithArgs("111-111-111", pgxmock.AnyArg(), int64(2), int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.Upsert(context.Background(), p))
	assert.Equal(t, int64(2), p.Version)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryUpsertConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock, testSealer(t))
	p := &Patient{MedicalCardID: "111-111-111", Name: "Ann Lee", Version: 4}

	mock.ExpectExec("UPDATE patients").
		WithArgs("111-111-111", pgxmock.AnyArg(), int64(5), int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, repo.Upsert(context.Background(), p), ErrConflict)
	assert.Equal(t, int64(4), p.Version, "version restored after a lost race")
}

func TestPostgresRepositoryListAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sealer := testSealer(t)
	repo := newPostgresRepositoryWithExec(mock, sealer)
	rows := pgxmock.NewRows([]string{"medical_card_id", "document", "version"}).
		AddRow("111-111-111", sealedDocument(t, sealer, &Patient{MedicalCardID: "111-111-111", Name: "Ann Lee"}), int64(1)).
		AddRow("222-222-222", sealedDocument(t, sealer, &Patient{MedicalCardID: "222-222-222", Name: "Bo Park"}), int64(2))
	mock.ExpectQuery("SELECT medical_card_id, document, version FROM patients").WillReturnRows(rows)

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Bo Park", all[1].Name)
	assert.Equal(t, int64(2), all[1].Version)
}
