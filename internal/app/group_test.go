package app

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/nestvault/savings-service/internal/domain"
)

func validGroupParams() CreateGroupParams {
	return CreateGroupParams{
		Title:              "Holiday pool",
		Description:        "Shared December travel fund",
		Category:           "travel",
		TargetAmount:       1000,
		ContributionType:   domain.ContributionFixed,
		ContributionAmount: 100,
		IsPublic:           true,
		StartTime:          1_700_000_000,
		EndTime:            1_710_000_000,
	}
}

func TestCreateGroupPlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.registerUser(t)

	plan, err := env.service.CreateGroupPlan(ctx, creator, validGroupParams())
	if err != nil {
		t.Fatalf("CreateGroupPlan returned error: %v", err)
	}
	if plan.MemberCount != 1 {
		t.Fatalf("member count = %d, want 1", plan.MemberCount)
	}
	if plan.Status != domain.GroupStatusLive {
		t.Fatalf("status = %s, want %s", plan.Status, domain.GroupStatusLive)
	}
	if !env.service.IsGroupMember(ctx, plan.ID, creator) {
		t.Fatal("creator not enrolled as a member")
	}
	// Enrollment alone contributes nothing.
	if got := env.service.MemberContribution(ctx, plan.ID, creator); got != 0 {
		t.Fatalf("creator contribution = %d, want 0", got)
	}
}

func TestCreateGroupPlan_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.registerUser(t)

	cases := []struct {
		name   string
		mutate func(*CreateGroupParams)
		want   error
	}{
		{"zero target", func(p *CreateGroupParams) { p.TargetAmount = 0 }, ErrInvalidAmount},
		{"zero contribution", func(p *CreateGroupParams) { p.ContributionAmount = 0 }, ErrInvalidAmount},
		{"start after end", func(p *CreateGroupParams) { p.StartTime = p.EndTime + 1 }, ErrInvalidTimestamp},
		{"start equals end", func(p *CreateGroupParams) { p.StartTime = p.EndTime }, ErrInvalidTimestamp},
		{"bad contribution type", func(p *CreateGroupParams) { p.ContributionType = 3 }, ErrInvalidGroupConfig},
		{"blank title", func(p *CreateGroupParams) { p.Title = "  " }, ErrInvalidGroupConfig},
		{"blank description", func(p *CreateGroupParams) { p.Description = "" }, ErrInvalidGroupConfig},
		{"blank category", func(p *CreateGroupParams) { p.Category = "" }, ErrInvalidGroupConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validGroupParams()
			tc.mutate(&params)
			if _, err := env.service.CreateGroupPlan(ctx, creator, params); err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestJoinGroupPlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.registerUser(t)
	joiner := env.registerUser(t)

	plan, err := env.service.CreateGroupPlan(ctx, creator, validGroupParams())
	if err != nil {
		t.Fatalf("CreateGroupPlan returned error: %v", err)
	}

	if err := env.service.JoinGroupPlan(ctx, joiner, plan.ID); err != nil {
		t.Fatalf("JoinGroupPlan returned error: %v", err)
	}
	stored, err := env.service.GetGroupPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("GetGroupPlan returned error: %v", err)
	}
	if stored.MemberCount != 2 {
		t.Fatalf("member count = %d, want 2", stored.MemberCount)
	}

	// A member cannot join twice.
	if err := env.service.JoinGroupPlan(ctx, joiner, plan.ID); err != ErrInvalidGroupConfig {
		t.Fatalf("second join: expected ErrInvalidGroupConfig, got %v", err)
	}
}

func TestJoinGroupPlan_PrivateGroupRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.registerUser(t)
	outsider := env.registerUser(t)

	params := validGroupParams()
	params.IsPublic = false
	plan, err := env.service.CreateGroupPlan(ctx, creator, params)
	if err != nil {
		t.Fatalf("CreateGroupPlan returned error: %v", err)
	}
	if err := env.service.JoinGroupPlan(ctx, outsider, plan.ID); err != ErrInvalidGroupConfig {
		t.Fatalf("expected ErrInvalidGroupConfig, got %v", err)
	}
}

func TestContributeToGroup_CompletionFlip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	// Fees never apply to group contributions even when configured.
	recipient := uuid.New()
	env.setFees(t, 500, 0, recipient)
	creator := env.registerUser(t)
	member := env.registerUser(t)

	plan, err := env.service.CreateGroupPlan(ctx, creator, validGroupParams())
	if err != nil {
		t.Fatalf("CreateGroupPlan returned error: %v", err)
	}
	if err := env.service.JoinGroupPlan(ctx, member, plan.ID); err != nil {
		t.Fatalf("JoinGroupPlan returned error: %v", err)
	}

	plan, err = env.service.ContributeToGroup(ctx, creator, plan.ID, 300)
	if err != nil {
		t.Fatalf("ContributeToGroup returned error: %v", err)
	}
	if plan.CurrentAmount != 300 || plan.Status != domain.GroupStatusLive {
		t.Fatalf("pool = %d status = %s, want 300 live", plan.CurrentAmount, plan.Status)
	}

	plan, err = env.service.ContributeToGroup(ctx, member, plan.ID, 200)
	if err != nil {
		t.Fatalf("ContributeToGroup returned error: %v", err)
	}
	if plan.CurrentAmount != 500 || plan.Status != domain.GroupStatusLive {
		t.Fatalf("pool = %d status = %s, want 500 live", plan.CurrentAmount, plan.Status)
	}

	plan, err = env.service.ContributeToGroup(ctx, member, plan.ID, 500)
	if err != nil {
		t.Fatalf("ContributeToGroup returned error: %v", err)
	}
	if plan.CurrentAmount != 1000 || plan.Status != domain.GroupStatusCompleted {
		t.Fatalf("pool = %d status = %s, want 1000 completed", plan.CurrentAmount, plan.Status)
	}

	// The pool fills with the full contributed amounts and nothing reaches
	// the fee sink.
	sink, err := env.service.FeeBalance(ctx, recipient)
	if err != nil {
		t.Fatalf("FeeBalance returned error: %v", err)
	}
	if sink != 0 {
		t.Fatalf("fee sink = %d, want 0", sink)
	}

	if got := env.service.MemberContribution(ctx, plan.ID, creator); got != 300 {
		t.Fatalf("creator contribution = %d, want 300", got)
	}
	if got := env.service.MemberContribution(ctx, plan.ID, member); got != 700 {
		t.Fatalf("member contribution = %d, want 700", got)
	}
}

func TestContributeToGroup_NonMemberRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.registerUser(t)
	outsider := env.registerUser(t)

	plan, err := env.service.CreateGroupPlan(ctx, creator, validGroupParams())
	if err != nil {
		t.Fatalf("CreateGroupPlan returned error: %v", err)
	}
	if _, err := env.service.ContributeToGroup(ctx, outsider, plan.ID, 100); err != ErrNotGroupMember {
		t.Fatalf("expected ErrNotGroupMember, got %v", err)
	}
	if got := env.service.MemberContribution(ctx, plan.ID, outsider); got != 0 {
		t.Fatalf("outsider contribution = %d, want 0", got)
	}
}

func TestGroupMembers_Roster(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.registerUser(t)
	joiner := env.registerUser(t)

	plan, err := env.service.CreateGroupPlan(ctx, creator, validGroupParams())
	if err != nil {
		t.Fatalf("CreateGroupPlan returned error: %v", err)
	}
	env.advance(60)
	if err := env.service.JoinGroupPlan(ctx, joiner, plan.ID); err != nil {
		t.Fatalf("JoinGroupPlan returned error: %v", err)
	}

	members, err := env.service.GroupMembers(ctx, plan.ID)
	if err != nil {
		t.Fatalf("GroupMembers returned error: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("roster size = %d, want 2", len(members))
	}
	if members[0].UserID != creator || members[1].UserID != joiner {
		t.Fatalf("roster order = %v, want creator before joiner", members)
	}
}

func TestListGroupPlans_StatusFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.registerUser(t)

	if _, err := env.service.CreateGroupPlan(ctx, creator, validGroupParams()); err != nil {
		t.Fatalf("CreateGroupPlan returned error: %v", err)
	}

	params := validGroupParams()
	params.TargetAmount = 100
	done, err := env.service.CreateGroupPlan(ctx, creator, params)
	if err != nil {
		t.Fatalf("CreateGroupPlan returned error: %v", err)
	}
	if _, err := env.service.ContributeToGroup(ctx, creator, done.ID, 100); err != nil {
		t.Fatalf("ContributeToGroup returned error: %v", err)
	}

	completed, err := env.service.ListGroupPlans(ctx, creator, domain.GroupStatusCompleted)
	if err != nil {
		t.Fatalf("ListGroupPlans returned error: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != done.ID {
		t.Fatalf("completed list = %v, want only group %d", completed, done.ID)
	}

	all, err := env.service.ListGroupPlans(ctx, creator)
	if err != nil {
		t.Fatalf("ListGroupPlans returned error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("unfiltered list size = %d, want 2", len(all))
	}
}
