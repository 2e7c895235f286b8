package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3Client records PutObject/GetObject calls for testing.
type mockS3Client struct {
	putCalls []putCall
	objects  map[string][]byte // key -> body
	getErr   error
}

type putCall struct {
	bucket string
	key    string
	body   []byte
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(input.Body)
	m.putCalls = append(m.putCalls, putCall{
		bucket: *input.Bucket,
		key:    *input.Key,
		body:   body,
	})
	m.objects[*input.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

var archiveNow = time.Date(2026, 2, 12, 15, 0, 0, 0, time.UTC)

func TestStore_ArchiveSession(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)
	store.now = func() time.Time { return archiveNow }

	record := &SessionRecord{
		Version:     RecordVersion,
		SessionID:   "sess-123",
		PatientHash: HashIdentifier("123-456-789"),
		TurnCount:   2,
		Outcome:     OutcomeReportSaved,
		Labels:      Labels{UrgencyLevel: "Urgent", Escalated: true},
		Turns: []Turn{
			{Speaker: "patient", Text: "Chest pain", SentAt: archiveNow},
			{Speaker: "assistant", Text: "How long?", SentAt: archiveNow},
		},
	}

	key, err := store.ArchiveSession(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, "sessions/v1/by-date/2026/02/12/sess-123.json", key)

	// session object + manifest
	require.Len(t, mock.putCalls, 2)
	assert.Equal(t, "test-bucket", mock.putCalls[0].bucket)

	var decoded SessionRecord
	require.NoError(t, json.Unmarshal(mock.putCalls[0].body, &decoded))
	assert.Equal(t, "sess-123", decoded.SessionID)
	assert.Equal(t, archiveNow, decoded.ArchivedAt)

	assert.Equal(t, "sessions/v1/manifests/2026-02.jsonl", mock.putCalls[1].key)
	var entry ManifestEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(mock.putCalls[1].body), &entry))
	assert.Equal(t, "sess-123", entry.SessionID)
	assert.True(t, entry.Escalated)
}

func TestStore_Disabled(t *testing.T) {
	store := NewStore(nil, "", nil)
	assert.False(t, store.Enabled())

	key, err := store.ArchiveSession(context.Background(), &SessionRecord{})
	assert.NoError(t, err)
	assert.Empty(t, key)
	assert.Nil(t, NewSessionArchiver(store, nil))
}

func TestStore_ManifestAppend(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)

	require.NoError(t, store.AppendManifest(context.Background(), ManifestEntry{SessionID: "s-1"}))
	require.NoError(t, store.AppendManifest(context.Background(), ManifestEntry{SessionID: "s-2"}))

	lastPut := mock.putCalls[len(mock.putCalls)-1]
	lines := bytes.Split(bytes.TrimSpace(lastPut.body), []byte("\n"))
	assert.Len(t, lines, 2)
}

func TestStore_ManifestReadFailure(t *testing.T) {
	mock := newMockS3()
	mock.getErr = errors.New("access denied")
	store := NewStore(mock, "test-bucket", nil)

	err := store.AppendManifest(context.Background(), ManifestEntry{SessionID: "s-1"})
	assert.ErrorContains(t, err, "access denied")
	assert.Empty(t, mock.putCalls, "an unreadable manifest is not overwritten")
}
