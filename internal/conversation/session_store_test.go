package conversation

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession() *Session {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewSession("sess-42", &PatientContext{MedicalCardID: "123-456-789", Name: "Ada"}, now)
	s.State = StateActive
	s.Turns = []ChatTurn{
		{Speaker: SpeakerSystem, Text: "Welcome, Ada. History Loaded.", SentAt: now},
		{Speaker: SpeakerPatient, Text: "rash", Image: &InlineImage{MIMEType: "image/png", Data: []byte{1, 2}}, SentAt: now},
	}
	return s
}

func TestRedisSessionStore_RoundTripAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisSessionStore(client, time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession()))
	assert.Equal(t, time.Hour, mr.TTL(sessionKey("sess-42")))

	got, err := store.Get(ctx, "sess-42")
	require.NoError(t, err)
	assert.Equal(t, StateActive, got.State)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, []byte{1, 2}, got.Turns[1].Image.Data)
	assert.Equal(t, "Ada", got.Patient.Name)

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, "sess-42")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStore_Delete(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisSessionStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0, nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession()))
	require.NoError(t, store.Delete(ctx, "sess-42"))
	assert.False(t, mr.Exists(sessionKey("sess-42")))

	_, err := store.Get(ctx, "sess-42")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	original := sampleSession()
	require.NoError(t, store.Save(ctx, original))
	original.Turns = append(original.Turns, ChatTurn{Speaker: SpeakerAssistant, Text: "mutated"})

	got, err := store.Get(ctx, "sess-42")
	require.NoError(t, err)
	assert.Len(t, got.Turns, 2, "stored snapshot is isolated from caller mutation")

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "sess-42")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Error(t, store.Save(ctx, &Session{}))
}
