/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the savings-service. By defining an interface,
 * we decouple the application's business logic from the specific storage
 * implementation (e.g., Redis), making the code more modular and easier to test.
 *
 * Mutating operations run as units of work through `Update`: reads inside the
 * unit see current state, writes are staged on a `Tx` and committed together,
 * and a concurrent change to any guarded record aborts the commit and reruns
 * the unit. Balance-shaped records (Flexi balances, the user ledger, the fee
 * sink) are written as deltas so commits commute under concurrency.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID generation and handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/nestvault/savings-service/internal/domain"
)

// Sentinel errors returned by Repository implementations. The service layer
// translates these into its own error taxonomy.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrPlanNotFound      = errors.New("plan not found")
	ErrMemberNotFound    = errors.New("group member not found")
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrConfigNotFound    = errors.New("protocol config not found")
	ErrTxConflict        = errors.New("unit of work aborted by concurrent updates")
)

// Guard names a record a unit of work depends on. Update aborts the commit
// and reruns the unit when a guarded record changes underneath it.
type Guard string

func GuardUser(userID uuid.UUID) Guard  { return Guard("user:" + userID.String()) }
func GuardFlexi(userID uuid.UUID) Guard { return Guard("flexi:" + userID.String()) }

func GuardLockPlan(planID uint64) Guard {
	return Guard("lock:" + strconv.FormatUint(planID, 10))
}

func GuardGoalPlan(planID uint64) Guard {
	return Guard("goal:" + strconv.FormatUint(planID, 10))
}

func GuardGroupPlan(planID uint64) Guard {
	return Guard("group:" + strconv.FormatUint(planID, 10))
}

func GuardGroupMember(groupID uint64, userID uuid.UUID) Guard {
	return Guard("group_member:" + strconv.FormatUint(groupID, 10) + ":" + userID.String())
}

func GuardSchedule(scheduleID uint64) Guard {
	return Guard("schedule:" + strconv.FormatUint(scheduleID, 10))
}

// Tx is the view a unit of work operates on. Find/Get methods read current
// state; the remaining methods stage writes that commit together when the
// unit returns nil. Staged writes are discarded when the unit errors.
type Tx interface {
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	GetFlexiBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	FindLockPlanByID(ctx context.Context, planID uint64) (*domain.LockPlan, error)
	FindGoalPlanByID(ctx context.Context, planID uint64) (*domain.GoalPlan, error)
	FindGroupPlanByID(ctx context.Context, planID uint64) (*domain.GroupPlan, error)
	FindGroupMember(ctx context.Context, groupID uint64, userID uuid.UUID) (*domain.GroupMember, error)
	FindScheduleByID(ctx context.Context, scheduleID uint64) (*domain.AutoSaveSchedule, error)

	IncrFlexiBalance(ctx context.Context, userID uuid.UUID, delta int64)
	AdjustUserTotal(ctx context.Context, userID uuid.UUID, delta int64)
	IncrSavingsCount(ctx context.Context, userID uuid.UUID)
	AddFeeBalance(ctx context.Context, recipient uuid.UUID, amount int64)
	SaveLockPlan(ctx context.Context, plan *domain.LockPlan) error
	SaveGoalPlan(ctx context.Context, plan *domain.GoalPlan) error
	SaveGroupPlan(ctx context.Context, plan *domain.GroupPlan) error
	SaveGroupMember(ctx context.Context, member *domain.GroupMember) error
	SaveSchedule(ctx context.Context, schedule *domain.AutoSaveSchedule) error
	AddLockPlanToOwner(ctx context.Context, owner uuid.UUID, planID uint64)
	AddGoalPlanToOwner(ctx context.Context, owner uuid.UUID, planID uint64)
	AddGroupPlanToMember(ctx context.Context, member uuid.UUID, planID uint64)
	AddScheduleToOwner(ctx context.Context, owner uuid.UUID, scheduleID uint64)
}

// Repository defines the set of methods for interacting with storage.
type Repository interface {
	// User ledger methods
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// Flexi account methods
	GetFlexiBalance(ctx context.Context, userID uuid.UUID) (int64, error)

	// Lock plan methods
	NextLockID(ctx context.Context) (uint64, error)
	FindLockPlanByID(ctx context.Context, planID uint64) (*domain.LockPlan, error)
	FindLockPlanIDsByOwner(ctx context.Context, owner uuid.UUID) ([]uint64, error)

	// Goal plan methods
	NextGoalID(ctx context.Context) (uint64, error)
	FindGoalPlanByID(ctx context.Context, planID uint64) (*domain.GoalPlan, error)
	FindGoalPlanIDsByOwner(ctx context.Context, owner uuid.UUID) ([]uint64, error)

	// Group plan methods
	NextGroupID(ctx context.Context) (uint64, error)
	FindGroupPlanByID(ctx context.Context, planID uint64) (*domain.GroupPlan, error)
	FindGroupPlanIDsByMember(ctx context.Context, member uuid.UUID) ([]uint64, error)
	FindGroupMember(ctx context.Context, groupID uint64, userID uuid.UUID) (*domain.GroupMember, error)
	FindGroupMembers(ctx context.Context, groupID uint64) ([]domain.GroupMember, error)

	// AutoSave schedule methods
	NextScheduleID(ctx context.Context) (uint64, error)
	FindScheduleByID(ctx context.Context, scheduleID uint64) (*domain.AutoSaveSchedule, error)
	FindScheduleIDsByOwner(ctx context.Context, owner uuid.UUID) ([]uint64, error)
	AllScheduleIDs(ctx context.Context) ([]uint64, error)

	// Fee sink methods
	GetFeeBalance(ctx context.Context, recipient uuid.UUID) (int64, error)

	// Protocol config methods
	InitProtocolConfig(ctx context.Context, cfg *domain.ProtocolConfig) error
	GetProtocolConfig(ctx context.Context) (*domain.ProtocolConfig, error)
	SaveProtocolConfig(ctx context.Context, cfg *domain.ProtocolConfig) error

	// Update runs fn as a unit of work. Writes staged on the Tx are
	// committed atomically after fn returns nil; fn may rerun after a
	// guarded-record conflict, so it must be side-effect free apart from
	// its staged writes. Returns ErrTxConflict when retries are exhausted.
	Update(ctx context.Context, guards []Guard, fn func(tx Tx) error) error
}
