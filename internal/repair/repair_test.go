package repair_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/clubledger/internal/ingest"
	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
	"github.com/MrJamesThe3rd/clubledger/internal/ledger/ledgertest"
	"github.com/MrJamesThe3rd/clubledger/internal/member"
	"github.com/MrJamesThe3rd/clubledger/internal/member/membertest"
	"github.com/MrJamesThe3rd/clubledger/internal/repair"
)

var (
	accountA = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	memberM2 = uuid.MustParse("20000000-0000-0000-0000-000000000002")
	memberM3 = uuid.MustParse("30000000-0000-0000-0000-000000000003")
	rowP1    = uuid.MustParse("a0000000-0000-0000-0000-000000000001")
	rowX     = uuid.MustParse("a0000000-0000-0000-0000-000000000002")
)

type env struct {
	ledger  *ledgertest.Repository
	members *membertest.Repository
	toolkit *repair.Toolkit
}

func newEnv(opts ...repair.Option) env {
	l := ledgertest.New()
	m := membertest.New()
	m.AddAccount(member.Account{ID: accountA, GatewayCustomerID: "cus_A"})

	return env{
		ledger:  l,
		members: m,
		toolkit: repair.New(ledger.NewService(l), member.NewService(m), opts...),
	}
}

func at(d int) *time.Time {
	t := time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestLinkOrphans_DryRunThenApply(t *testing.T) {
	e := newEnv()
	e.members.AddMember(member.Member{ID: memberM2, AccountID: accountA, ExternalUpfrontPaymentID: "P1"})
	e.ledger.Seed(
		&ledger.Record{ID: rowP1, ExternalID: "P1", Type: ledger.TypeUpfrontPayment, Status: ledger.StatusSucceeded},
		&ledger.Record{ID: rowX, ExternalID: "P9", Type: ledger.TypeUpfrontPayment, Status: ledger.StatusSucceeded},
	)

	want := []repair.Change{{
		Target:     repair.TargetLedger,
		TargetID:   rowP1,
		ExternalID: "P1",
		Field:      "member_id",
		To:         memberM2.String(),
	}}

	dry, err := e.toolkit.LinkOrphans(context.Background(), repair.Options{DryRun: true})
	require.NoError(t, err)
	assert.True(t, dry.DryRun)
	assert.Equal(t, 2, dry.Examined)
	assert.Equal(t, want, dry.Changes)
	assert.Zero(t, dry.Applied)
	assert.Zero(t, e.ledger.Writes)
	assert.Zero(t, e.members.Writes)

	applied, err := e.toolkit.LinkOrphans(context.Background(), repair.Options{})
	require.NoError(t, err)
	assert.Equal(t, want, applied.Changes)
	assert.Equal(t, 1, applied.Applied)

	p1, err := e.ledger.GetByExternalID(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, &memberM2, p1.MemberID)
	assert.Equal(t, &accountA, p1.AccountID)

	p9, err := e.ledger.GetByExternalID(context.Background(), "P9")
	require.NoError(t, err)
	assert.Nil(t, p9.MemberID)

	again, err := e.toolkit.LinkOrphans(context.Background(), repair.Options{})
	require.NoError(t, err)
	assert.Empty(t, again.Changes)
}

func TestLinkOrphans_MonthlyPaymentFollowsParent(t *testing.T) {
	e := newEnv()
	e.members.AddMember(member.Member{ID: memberM2, AccountID: accountA, ExternalSubscriptionID: "sub_1"})
	e.ledger.Seed(&ledger.Record{
		ID: rowP1, ExternalID: "in_1", ExternalParentID: "sub_1",
		Type: ledger.TypeMonthlyPayment, Status: ledger.StatusSucceeded,
	})

	report, err := e.toolkit.LinkOrphans(context.Background(), repair.Options{})
	require.NoError(t, err)
	require.Len(t, report.Changes, 1)
	assert.Equal(t, "in_1", report.Changes[0].ExternalID)
	assert.Equal(t, 1, report.Applied)
}

func TestLinkOrphans_ApplyFailures(t *testing.T) {
	tests := []struct {
		name      string
		attachErr error
		wantErr   error
	}{
		{
			name:      "FailureIsCounted",
			attachErr: errors.New("deadlock detected"),
		},
		{
			name:      "StoreUnavailableStops",
			attachErr: driver.ErrBadConn,
			wantErr:   ingest.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := ledger.NewMockRepository(ctrl)
			repo.EXPECT().ListRecords(gomock.Any(), ledger.ListFilter{OrphanedOnly: true}).Return([]*ledger.Record{
				{ID: rowP1, ExternalID: "P1", Type: ledger.TypeUpfrontPayment},
			}, nil)
			repo.EXPECT().AttachMember(gomock.Any(), rowP1, memberM2, &accountA).Return(false, tt.attachErr)

			members := membertest.New()
			members.AddMember(member.Member{ID: memberM2, AccountID: accountA, ExternalUpfrontPaymentID: "P1"})

			toolkit := repair.New(ledger.NewService(repo), member.NewService(members))

			report, err := toolkit.LinkOrphans(context.Background(), repair.Options{})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			require.NotNil(t, report)
			assert.Equal(t, 1, report.Failed)
			assert.Zero(t, report.Applied)
		})
	}
}

func TestApplyLink(t *testing.T) {
	e := newEnv()
	e.members.AddMember(member.Member{ID: memberM2, AccountID: accountA, ExternalUpfrontPaymentID: "P1"})
	e.ledger.Seed(&ledger.Record{ID: rowP1, ExternalID: "P1", Type: ledger.TypeUpfrontPayment, Status: ledger.StatusSucceeded})

	plan, err := e.toolkit.LinkOrphans(context.Background(), repair.Options{DryRun: true})
	require.NoError(t, err)
	require.Len(t, plan.Changes, 1)

	ok, err := e.toolkit.ApplyLink(context.Background(), plan.Changes[0])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.toolkit.ApplyLink(context.Background(), plan.Changes[0])
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.toolkit.ApplyLink(context.Background(), repair.Change{Target: repair.TargetMember, Field: "metadata"})
	assert.Error(t, err)
}

func TestBackfillMemberIDs(t *testing.T) {
	e := newEnv()
	e.members.AddMember(member.Member{ID: memberM3, AccountID: accountA})
	e.ledger.Seed(
		&ledger.Record{ExternalID: "sub_old", Type: ledger.TypeSubscription, Status: ledger.StatusCanceled, MemberID: &memberM3, GatewayCreatedAt: at(1)},
		&ledger.Record{ExternalID: "sub_new", Type: ledger.TypeSubscription, Status: ledger.StatusActive, MemberID: &memberM3, GatewayCreatedAt: at(5)},
		&ledger.Record{ExternalID: "pi_fee", Type: ledger.TypeRegistrationFee, Status: ledger.StatusSucceeded, MemberID: &memberM3, GatewayCreatedAt: at(5)},
	)

	dry, err := e.toolkit.BackfillMemberIDs(context.Background(), repair.Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, dry.Examined)
	assert.Equal(t, []repair.Change{
		{Target: repair.TargetMember, TargetID: memberM3, ExternalID: "sub_new", Field: "external_subscription_id", To: "sub_new"},
		{Target: repair.TargetMember, TargetID: memberM3, ExternalID: "pi_fee", Field: "external_registration_fee_id", To: "pi_fee"},
	}, dry.Changes)
	assert.Zero(t, e.members.Writes)
	assert.Empty(t, e.members.Member(memberM3).ExternalSubscriptionID)

	applied, err := e.toolkit.BackfillMemberIDs(context.Background(), repair.Options{})
	require.NoError(t, err)
	assert.Equal(t, dry.Changes, applied.Changes)
	assert.Equal(t, 2, applied.Applied)

	got := e.members.Member(memberM3)
	assert.Equal(t, "sub_new", got.ExternalSubscriptionID)
	assert.Equal(t, "pi_fee", got.ExternalRegistrationFeeID)
	assert.Empty(t, got.ExternalUpfrontPaymentID)
}

func TestNormalizeMetadata(t *testing.T) {
	e := newEnv(repair.WithPageSize(1))

	broken := uuid.MustParse("b0000000-0000-0000-0000-000000000001")
	clean := uuid.MustParse("b0000000-0000-0000-0000-000000000002")
	missing := uuid.MustParse("b0000000-0000-0000-0000-000000000003")
	array := uuid.MustParse("b0000000-0000-0000-0000-000000000004")

	e.ledger.Seed(
		&ledger.Record{ID: broken, ExternalID: "in_1", Type: ledger.TypeMonthlyPayment, Status: ledger.StatusSucceeded},
		&ledger.Record{ID: clean, ExternalID: "in_2", Type: ledger.TypeMonthlyPayment, Status: ledger.StatusSucceeded},
		&ledger.Record{ID: missing, ExternalID: "in_3", Type: ledger.TypeMonthlyPayment, Status: ledger.StatusSucceeded},
		&ledger.Record{ID: array, ExternalID: "in_4", Type: ledger.TypeMonthlyPayment, Status: ledger.StatusSucceeded},
	)
	e.ledger.SeedRawMetadata(broken, new("[object Object]"))
	e.ledger.SeedRawMetadata(clean, new(`{"a":1}`))
	e.ledger.SeedRawMetadata(missing, nil)
	e.ledger.SeedRawMetadata(array, new(`[1,2]`))

	dry, err := e.toolkit.NormalizeMetadata(context.Background(), repair.Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 4, dry.Examined)
	require.Len(t, dry.Changes, 3)
	assert.Equal(t, "[object Object]", dry.Changes[0].From)
	assert.Equal(t, "NULL", dry.Changes[1].From)
	assert.Equal(t, "[1,2]", dry.Changes[2].From)
	assert.Zero(t, e.ledger.Writes)

	applied, err := e.toolkit.NormalizeMetadata(context.Background(), repair.Options{})
	require.NoError(t, err)
	assert.Equal(t, dry.Changes, applied.Changes)
	assert.Equal(t, 3, applied.Applied)
	assert.Equal(t, 3, e.ledger.Writes)

	assert.Equal(t, "{}", *e.ledger.RawMetadata(broken))
	assert.Equal(t, "{}", *e.ledger.RawMetadata(missing))
	assert.Equal(t, "{}", *e.ledger.RawMetadata(array))
	assert.Equal(t, `{"a":1}`, *e.ledger.RawMetadata(clean))

	again, err := e.toolkit.NormalizeMetadata(context.Background(), repair.Options{})
	require.NoError(t, err)
	assert.Empty(t, again.Changes)
}
