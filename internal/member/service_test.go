package member_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
	"github.com/MrJamesThe3rd/clubledger/internal/member"
)

func TestService_FirstByAccount(t *testing.T) {
	accountID := uuid.New()
	first := &member.Member{ID: uuid.New(), AccountID: accountID, CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
	second := &member.Member{ID: uuid.New(), AccountID: accountID, CreatedAt: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		name      string
		setupMock func(m *member.MockRepository)
		want      *member.Member
		wantErr   error
	}{
		{
			name: "ReturnsEarliest",
			setupMock: func(m *member.MockRepository) {
				m.EXPECT().ListByAccount(gomock.Any(), accountID).Return([]*member.Member{first, second}, nil)
			},
			want: first,
		},
		{
			name: "NoMembers",
			setupMock: func(m *member.MockRepository) {
				m.EXPECT().ListByAccount(gomock.Any(), accountID).Return(nil, nil)
			},
			wantErr: member.ErrNotFound,
		},
		{
			name: "RepoError",
			setupMock: func(m *member.MockRepository) {
				m.EXPECT().ListByAccount(gomock.Any(), accountID).Return(nil, errors.New("timeout"))
			},
			wantErr: errors.New("timeout"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := member.NewMockRepository(ctrl)
			tt.setupMock(repo)

			got, err := member.NewService(repo).FirstByAccount(context.Background(), accountID)
			if tt.wantErr != nil {
				assert.EqualError(t, err, tt.wantErr.Error())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_RejectsUnknownField(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := member.NewService(member.NewMockRepository(ctrl))

	_, err := svc.FindByExternalID(context.Background(), member.Field("email; DROP TABLE members"), "x")
	assert.Error(t, err)

	_, err = svc.SetExternalID(context.Background(), uuid.New(), member.Field("email"), "x")
	assert.Error(t, err)
}

func TestFieldForType(t *testing.T) {
	tests := []struct {
		typ    ledger.Type
		want   member.Field
		wantOK bool
	}{
		{typ: ledger.TypeSubscription, want: member.FieldSubscription, wantOK: true},
		{typ: ledger.TypeUpfrontPayment, want: member.FieldUpfrontPayment, wantOK: true},
		{typ: ledger.TypeRegistrationFee, want: member.FieldRegistrationFee, wantOK: true},
		{typ: ledger.TypeMonthlyPayment, wantOK: false},
		{typ: ledger.TypeRefund, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			got, ok := member.FieldForType(tt.typ)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)

			if ok {
				assert.Equal(t, tt.typ, got.Type())
			}
		})
	}
}

func TestMember_Missing(t *testing.T) {
	m := member.Member{ExternalSubscriptionID: "sub_1"}

	assert.Equal(t, []member.Field{member.FieldUpfrontPayment, member.FieldRegistrationFee}, m.Missing())
	assert.Equal(t, "sub_1", m.Get(member.FieldSubscription))
}
