package patients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	redisPatientKeyPrefix = "patient:"
	redisPatientIndexKey  = "patients:index"
)

type redisEnvelope struct {
	Version  int64  `json:"version"`
	Document []byte `json:"document"`
}

// RedisRepository stores sealed patient documents in Redis. Writes WATCH the
// patient key so a concurrent writer aborts the transaction.
type RedisRepository struct {
	client *redis.Client
	codec  documentCodec
	tracer trace.Tracer
}

func NewRedisRepository(client *redis.Client, sealer *Sealer) *RedisRepository {
	if client == nil {
		panic("patients: redis client required")
	}
	if sealer == nil {
		panic("patients: sealer required")
	}
	return &RedisRepository{
		client: client,
		codec:  documentCodec{sealer: sealer},
		tracer: otel.Tracer("carefront.internal.patients.redis"),
	}
}

func redisPatientKey(id string) string {
	return redisPatientKeyPrefix + id
}

func (r *RedisRepository) Find(ctx context.Context, medicalCardID string) (*Patient, error) {
	ctx, span := r.tracer.Start(ctx, "patients.find")
	defer span.End()

	env, err := r.load(ctx, r.client, medicalCardID)
	if err != nil {
		return nil, err
	}
	return r.codec.decode(env.Document, medicalCardID, env.Version)
}

func (r *RedisRepository) load(ctx context.Context, cmd redis.Cmdable, medicalCardID string) (*redisEnvelope, error) {
	raw, err := cmd.Get(ctx, redisPatientKey(medicalCardID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: redis get: %w", err)
	}
	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("patients: decode envelope: %w", err)
	}
	return &env, nil
}

func (r *RedisRepository) Upsert(ctx context.Context, p *Patient) error {
	ctx, span := r.tracer.Start(ctx, "patients.upsert")
	defer span.End()

	if p == nil || p.MedicalCardID == "" {
		return fmt.Errorf("%w: medical card id is required", ErrInvalidInput)
	}

	key := redisPatientKey(p.MedicalCardID)
	expected := p.Version

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.load(ctx, tx, p.MedicalCardID)
		switch {
		case errors.Is(err, ErrNotFound):
			if expected != 0 {
				return ErrNotFound
			}
		case err != nil:
			return err
		case current.Version != expected:
			return ErrConflict
		}

		p.Version = expected + 1
		doc, err := r.codec.encode(p)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(redisEnvelope{Version: p.Version, Document: doc})
		if err != nil {
			return fmt.Errorf("patients: encode envelope: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.SAdd(ctx, redisPatientIndexKey, p.MedicalCardID)
			return nil
		})
		return err
	}, key)

	if err != nil {
		p.Version = expected
		if errors.Is(err, redis.TxFailedErr) {
			return ErrConflict
		}
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
			return err
		}
		span.RecordError(err)
		return fmt.Errorf("patients: redis upsert: %w", err)
	}
	return nil
}

func (r *RedisRepository) ListAll(ctx context.Context) ([]*Patient, error) {
	ctx, span := r.tracer.Start(ctx, "patients.list_all")
	defer span.End()

	ids, err := r.client.SMembers(ctx, redisPatientIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("patients: redis index: %w", err)
	}
	sort.Strings(ids)

	out := make([]*Patient, 0, len(ids))
	for _, id := range ids {
		p, err := r.Find(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
