/**
 * @description
 * This file provides the Redis implementation of the `Repository` interface.
 * Records are stored as JSON under namespaced keys, per-product ID counters
 * are plain Redis integers, and ownership indexes are Redis sets. The user
 * ledger is a hash so its balance fields can be adjusted with atomic HINCRBY
 * deltas instead of read-modify-write cycles.
 *
 * Units of work (`Update`) follow the WATCH/MULTI/EXEC optimistic pattern:
 * guarded keys are watched, the unit's reads go through the watched
 * connection, staged writes are flushed in one transactional pipeline, and a
 * concurrent change to a watched key aborts the EXEC and reruns the unit.
 *
 * Every plain read and write refreshes the key's TTL, so records that are
 * still in use stay alive while abandoned ones eventually expire. Shared
 * records that must never expire (counters, the fee sink, protocol config,
 * the global schedule index) are written without a TTL.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: Redis client.
 * - encoding/json: Record serialization.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nestvault/savings-service/internal/domain"
)

const defaultKeyPrefix = "nestvault:savings"

// updateRetries bounds the optimistic rerun loop for guarded units of work.
const updateRetries = 3

// RedisRepository implements Repository on top of a Redis deployment.
type RedisRepository struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisRepository creates a repository with the given key prefix and
// record TTL. A non-positive TTL disables expiry entirely.
func NewRedisRepository(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisRepository {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = defaultKeyPrefix
	}
	return &RedisRepository{client: client, prefix: trimmed, ttl: ttl}
}

func (r *RedisRepository) key(parts ...string) string {
	return r.prefix + ":" + strings.Join(parts, ":")
}

func (r *RedisRepository) recordTTL() time.Duration {
	if r.ttl > 0 {
		return r.ttl
	}
	return 0
}

// touch extends the TTL of a record key that was just accessed.
func (r *RedisRepository) touch(ctx context.Context, key string) {
	if r.ttl > 0 {
		r.client.Expire(ctx, key, r.ttl)
	}
}

func (r *RedisRepository) setJSON(ctx context.Context, key string, value any, expiring bool) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", key, err)
	}
	ttl := time.Duration(0)
	if expiring {
		ttl = r.recordTTL()
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("write record %s: %w", key, err)
	}
	return nil
}

// getJSONWith reads a JSON record through the given connection. Units of
// work pass their watched connection; plain reads pass the client.
func getJSONWith(ctx context.Context, c redis.Cmdable, key string, dest any, notFound error) error {
	payload, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("read record %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("decode record %s: %w", key, err)
	}
	return nil
}

func (r *RedisRepository) getJSON(ctx context.Context, key string, dest any, notFound error) error {
	if err := getJSONWith(ctx, r.client, key, dest, notFound); err != nil {
		return err
	}
	r.touch(ctx, key)
	return nil
}

// --- User ledger ---

const (
	userFieldID           = "id"
	userFieldTotalBalance = "total_balance"
	userFieldSavingsCount = "savings_count"
)

func (r *RedisRepository) CreateUser(ctx context.Context, user *domain.User) error {
	key := r.key("user", user.ID.String())
	created, err := r.client.HSetNX(ctx, key, userFieldID, user.ID.String()).Result()
	if err != nil {
		return fmt.Errorf("create user %s: %w", user.ID, err)
	}
	if !created {
		return ErrUserAlreadyExists
	}
	// HSetNX keeps any increment that raced in between the two writes.
	if err := r.client.HSetNX(ctx, key, userFieldTotalBalance, user.TotalBalance).Err(); err != nil {
		return fmt.Errorf("seed user ledger %s: %w", user.ID, err)
	}
	if err := r.client.HSetNX(ctx, key, userFieldSavingsCount, int64(user.SavingsCount)).Err(); err != nil {
		return fmt.Errorf("seed user ledger %s: %w", user.ID, err)
	}
	r.touch(ctx, key)
	return nil
}

func userFromHash(userID uuid.UUID, fields map[string]string) (*domain.User, error) {
	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}
	user := &domain.User{ID: userID}
	if raw, ok := fields[userFieldTotalBalance]; ok {
		balance, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode user ledger %s: %w", userID, err)
		}
		user.TotalBalance = balance
	}
	if raw, ok := fields[userFieldSavingsCount]; ok {
		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode user ledger %s: %w", userID, err)
		}
		user.SavingsCount = uint32(count)
	}
	return user, nil
}

func findUserWith(ctx context.Context, c redis.Cmdable, key string, userID uuid.UUID) (*domain.User, error) {
	fields, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read user %s: %w", userID, err)
	}
	return userFromHash(userID, fields)
}

func (r *RedisRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	key := r.key("user", userID.String())
	user, err := findUserWith(ctx, r.client, key, userID)
	if err != nil {
		return nil, err
	}
	r.touch(ctx, key)
	return user, nil
}

// --- Flexi accounts ---

func flexiBalanceWith(ctx context.Context, c redis.Cmdable, key string, userID uuid.UUID) (int64, error) {
	raw, err := c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read flexi balance %s: %w", userID, err)
	}
	balance, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode flexi balance %s: %w", userID, err)
	}
	return balance, nil
}

func (r *RedisRepository) GetFlexiBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	key := r.key("flexi", userID.String())
	balance, err := flexiBalanceWith(ctx, r.client, key, userID)
	if err != nil {
		return 0, err
	}
	r.touch(ctx, key)
	return balance, nil
}

// --- Lock plans ---

func (r *RedisRepository) NextLockID(ctx context.Context) (uint64, error) {
	return r.nextID(ctx, "lock")
}

func (r *RedisRepository) FindLockPlanByID(ctx context.Context, planID uint64) (*domain.LockPlan, error) {
	var plan domain.LockPlan
	if err := r.getJSON(ctx, r.key("lock", formatID(planID)), &plan, ErrPlanNotFound); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *RedisRepository) FindLockPlanIDsByOwner(ctx context.Context, owner uuid.UUID) ([]uint64, error) {
	return r.readIDSet(ctx, r.key("lock_index", owner.String()))
}

// --- Goal plans ---

func (r *RedisRepository) NextGoalID(ctx context.Context) (uint64, error) {
	return r.nextID(ctx, "goal")
}

func (r *RedisRepository) FindGoalPlanByID(ctx context.Context, planID uint64) (*domain.GoalPlan, error) {
	var plan domain.GoalPlan
	if err := r.getJSON(ctx, r.key("goal", formatID(planID)), &plan, ErrPlanNotFound); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *RedisRepository) FindGoalPlanIDsByOwner(ctx context.Context, owner uuid.UUID) ([]uint64, error) {
	return r.readIDSet(ctx, r.key("goal_index", owner.String()))
}

// --- Group plans ---

func (r *RedisRepository) NextGroupID(ctx context.Context) (uint64, error) {
	return r.nextID(ctx, "group")
}

func (r *RedisRepository) FindGroupPlanByID(ctx context.Context, planID uint64) (*domain.GroupPlan, error) {
	var plan domain.GroupPlan
	if err := r.getJSON(ctx, r.key("group", formatID(planID)), &plan, ErrPlanNotFound); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *RedisRepository) FindGroupPlanIDsByMember(ctx context.Context, member uuid.UUID) ([]uint64, error) {
	return r.readIDSet(ctx, r.key("group_index", member.String()))
}

func (r *RedisRepository) FindGroupMember(ctx context.Context, groupID uint64, userID uuid.UUID) (*domain.GroupMember, error) {
	var member domain.GroupMember
	key := r.key("group_member", formatID(groupID), userID.String())
	if err := r.getJSON(ctx, key, &member, ErrMemberNotFound); err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *RedisRepository) FindGroupMembers(ctx context.Context, groupID uint64) ([]domain.GroupMember, error) {
	rosterKey := r.key("group_roster", formatID(groupID))
	ids, err := r.client.SMembers(ctx, rosterKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read group roster %d: %w", groupID, err)
	}
	r.touch(ctx, rosterKey)

	members := make([]domain.GroupMember, 0, len(ids))
	for _, raw := range ids {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("decode group roster entry %q: %w", raw, err)
		}
		member, err := r.FindGroupMember(ctx, groupID, userID)
		if err != nil {
			return nil, err
		}
		members = append(members, *member)
	}
	return members, nil
}

// --- AutoSave schedules ---

func (r *RedisRepository) NextScheduleID(ctx context.Context) (uint64, error) {
	return r.nextID(ctx, "schedule")
}

func (r *RedisRepository) FindScheduleByID(ctx context.Context, scheduleID uint64) (*domain.AutoSaveSchedule, error) {
	var schedule domain.AutoSaveSchedule
	if err := r.getJSON(ctx, r.key("schedule", formatID(scheduleID)), &schedule, ErrScheduleNotFound); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *RedisRepository) FindScheduleIDsByOwner(ctx context.Context, owner uuid.UUID) ([]uint64, error) {
	return r.readIDSet(ctx, r.key("schedule_index", owner.String()))
}

func (r *RedisRepository) AllScheduleIDs(ctx context.Context) ([]uint64, error) {
	ids, err := r.client.SMembers(ctx, r.key("schedule_all")).Result()
	if err != nil {
		return nil, fmt.Errorf("read schedule index: %w", err)
	}
	return parseIDs(ids)
}

// --- Fee sink ---

func (r *RedisRepository) GetFeeBalance(ctx context.Context, recipient uuid.UUID) (int64, error) {
	raw, err := r.client.Get(ctx, r.key("fee_sink", recipient.String())).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read fee sink %s: %w", recipient, err)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// --- Protocol config ---

func (r *RedisRepository) InitProtocolConfig(ctx context.Context, cfg *domain.ProtocolConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal protocol config: %w", err)
	}
	// Seed only on first boot; later boots keep whatever the admins set.
	if err := r.client.SetNX(ctx, r.key("config"), payload, 0).Err(); err != nil {
		return fmt.Errorf("seed protocol config: %w", err)
	}
	return nil
}

func (r *RedisRepository) GetProtocolConfig(ctx context.Context) (*domain.ProtocolConfig, error) {
	var cfg domain.ProtocolConfig
	payload, err := r.client.Get(ctx, r.key("config")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read protocol config: %w", err)
	}
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, fmt.Errorf("decode protocol config: %w", err)
	}
	return &cfg, nil
}

func (r *RedisRepository) SaveProtocolConfig(ctx context.Context, cfg *domain.ProtocolConfig) error {
	return r.setJSON(ctx, r.key("config"), cfg, false)
}

// --- Units of work ---

// Update implements the optimistic WATCH/MULTI/EXEC cycle. Without guards
// the staged writes still commit in one transactional pipeline, so a unit
// is never half applied.
func (r *RedisRepository) Update(ctx context.Context, guards []Guard, fn func(tx Tx) error) error {
	if len(guards) == 0 {
		tx := &redisTx{repo: r, reader: r.client}
		if err := fn(tx); err != nil {
			return err
		}
		pipe := r.client.TxPipeline()
		for _, op := range tx.staged {
			op(pipe)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("commit unit of work: %w", err)
		}
		return nil
	}

	keys := make([]string, len(guards))
	for i, guard := range guards {
		keys[i] = r.prefix + ":" + string(guard)
	}
	for attempt := 0; attempt < updateRetries; attempt++ {
		err := r.client.Watch(ctx, func(watched *redis.Tx) error {
			tx := &redisTx{repo: r, reader: watched}
			if err := fn(tx); err != nil {
				return err
			}
			_, err := watched.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, op := range tx.staged {
					op(pipe)
				}
				return nil
			})
			return err
		}, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTxConflict
}

// redisTx stages a unit of work's writes for a single MULTI/EXEC flush.
// Reads go through the watched connection and deliberately skip the TTL
// touch: an EXPIRE counts as a modification and would trip our own watch.
type redisTx struct {
	repo   *RedisRepository
	reader redis.Cmdable
	staged []func(pipe redis.Pipeliner)
}

func (t *redisTx) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return findUserWith(ctx, t.reader, t.repo.key("user", userID.String()), userID)
}

func (t *redisTx) GetFlexiBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return flexiBalanceWith(ctx, t.reader, t.repo.key("flexi", userID.String()), userID)
}

func (t *redisTx) FindLockPlanByID(ctx context.Context, planID uint64) (*domain.LockPlan, error) {
	var plan domain.LockPlan
	if err := getJSONWith(ctx, t.reader, t.repo.key("lock", formatID(planID)), &plan, ErrPlanNotFound); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (t *redisTx) FindGoalPlanByID(ctx context.Context, planID uint64) (*domain.GoalPlan, error) {
	var plan domain.GoalPlan
	if err := getJSONWith(ctx, t.reader, t.repo.key("goal", formatID(planID)), &plan, ErrPlanNotFound); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (t *redisTx) FindGroupPlanByID(ctx context.Context, planID uint64) (*domain.GroupPlan, error) {
	var plan domain.GroupPlan
	if err := getJSONWith(ctx, t.reader, t.repo.key("group", formatID(planID)), &plan, ErrPlanNotFound); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (t *redisTx) FindGroupMember(ctx context.Context, groupID uint64, userID uuid.UUID) (*domain.GroupMember, error) {
	var member domain.GroupMember
	key := t.repo.key("group_member", formatID(groupID), userID.String())
	if err := getJSONWith(ctx, t.reader, key, &member, ErrMemberNotFound); err != nil {
		return nil, err
	}
	return &member, nil
}

func (t *redisTx) FindScheduleByID(ctx context.Context, scheduleID uint64) (*domain.AutoSaveSchedule, error) {
	var schedule domain.AutoSaveSchedule
	if err := getJSONWith(ctx, t.reader, t.repo.key("schedule", formatID(scheduleID)), &schedule, ErrScheduleNotFound); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (t *redisTx) stage(op func(pipe redis.Pipeliner)) {
	t.staged = append(t.staged, op)
}

func (t *redisTx) stageExpire(ctx context.Context, key string) func(pipe redis.Pipeliner) {
	ttl := t.repo.recordTTL()
	return func(pipe redis.Pipeliner) {
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
	}
}

func (t *redisTx) stageSetJSON(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", key, err)
	}
	ttl := t.repo.recordTTL()
	t.stage(func(pipe redis.Pipeliner) {
		pipe.Set(ctx, key, payload, ttl)
	})
	return nil
}

func (t *redisTx) IncrFlexiBalance(ctx context.Context, userID uuid.UUID, delta int64) {
	key := t.repo.key("flexi", userID.String())
	expire := t.stageExpire(ctx, key)
	t.stage(func(pipe redis.Pipeliner) {
		pipe.IncrBy(ctx, key, delta)
		expire(pipe)
	})
}

func (t *redisTx) AdjustUserTotal(ctx context.Context, userID uuid.UUID, delta int64) {
	key := t.repo.key("user", userID.String())
	expire := t.stageExpire(ctx, key)
	t.stage(func(pipe redis.Pipeliner) {
		pipe.HIncrBy(ctx, key, userFieldTotalBalance, delta)
		expire(pipe)
	})
}

func (t *redisTx) IncrSavingsCount(ctx context.Context, userID uuid.UUID) {
	key := t.repo.key("user", userID.String())
	expire := t.stageExpire(ctx, key)
	t.stage(func(pipe redis.Pipeliner) {
		pipe.HIncrBy(ctx, key, userFieldSavingsCount, 1)
		expire(pipe)
	})
}

func (t *redisTx) AddFeeBalance(ctx context.Context, recipient uuid.UUID, amount int64) {
	key := t.repo.key("fee_sink", recipient.String())
	t.stage(func(pipe redis.Pipeliner) {
		pipe.IncrBy(ctx, key, amount)
	})
}

func (t *redisTx) SaveLockPlan(ctx context.Context, plan *domain.LockPlan) error {
	return t.stageSetJSON(ctx, t.repo.key("lock", formatID(plan.ID)), plan)
}

func (t *redisTx) SaveGoalPlan(ctx context.Context, plan *domain.GoalPlan) error {
	return t.stageSetJSON(ctx, t.repo.key("goal", formatID(plan.ID)), plan)
}

func (t *redisTx) SaveGroupPlan(ctx context.Context, plan *domain.GroupPlan) error {
	return t.stageSetJSON(ctx, t.repo.key("group", formatID(plan.ID)), plan)
}

func (t *redisTx) SaveGroupMember(ctx context.Context, member *domain.GroupMember) error {
	memberKey := t.repo.key("group_member", formatID(member.GroupID), member.UserID.String())
	if err := t.stageSetJSON(ctx, memberKey, member); err != nil {
		return err
	}
	rosterKey := t.repo.key("group_roster", formatID(member.GroupID))
	expire := t.stageExpire(ctx, rosterKey)
	t.stage(func(pipe redis.Pipeliner) {
		pipe.SAdd(ctx, rosterKey, member.UserID.String())
		expire(pipe)
	})
	return nil
}

func (t *redisTx) SaveSchedule(ctx context.Context, schedule *domain.AutoSaveSchedule) error {
	return t.stageSetJSON(ctx, t.repo.key("schedule", formatID(schedule.ID)), schedule)
}

func (t *redisTx) stageIndexAdd(ctx context.Context, key string, id uint64, expiring bool) {
	expire := t.stageExpire(ctx, key)
	t.stage(func(pipe redis.Pipeliner) {
		pipe.SAdd(ctx, key, formatID(id))
		if expiring {
			expire(pipe)
		}
	})
}

func (t *redisTx) AddLockPlanToOwner(ctx context.Context, owner uuid.UUID, planID uint64) {
	t.stageIndexAdd(ctx, t.repo.key("lock_index", owner.String()), planID, true)
}

func (t *redisTx) AddGoalPlanToOwner(ctx context.Context, owner uuid.UUID, planID uint64) {
	t.stageIndexAdd(ctx, t.repo.key("goal_index", owner.String()), planID, true)
}

func (t *redisTx) AddGroupPlanToMember(ctx context.Context, member uuid.UUID, planID uint64) {
	t.stageIndexAdd(ctx, t.repo.key("group_index", member.String()), planID, true)
}

func (t *redisTx) AddScheduleToOwner(ctx context.Context, owner uuid.UUID, scheduleID uint64) {
	t.stageIndexAdd(ctx, t.repo.key("schedule_index", owner.String()), scheduleID, true)
	// The global index drives the scheduler sweep and must not expire.
	t.stageIndexAdd(ctx, t.repo.key("schedule_all"), scheduleID, false)
}

// --- helpers ---

func (r *RedisRepository) nextID(ctx context.Context, product string) (uint64, error) {
	id, err := r.client.Incr(ctx, r.key("next_id", product)).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate %s id: %w", product, err)
	}
	return uint64(id), nil
}

func (r *RedisRepository) readIDSet(ctx context.Context, key string) ([]uint64, error) {
	raw, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", key, err)
	}
	r.touch(ctx, key)
	return parseIDs(raw)
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func parseIDs(raw []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode index entry %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
