package webhook_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/clubledger/internal/ingest"
	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
	"github.com/MrJamesThe3rd/clubledger/internal/ledger/ledgertest"
	"github.com/MrJamesThe3rd/clubledger/internal/linker"
	"github.com/MrJamesThe3rd/clubledger/internal/webhook"
)

const secret = "whsec_test"

var storedID = uuid.MustParse("e0000000-0000-0000-0000-000000000001")

func sign(payload []byte) string {
	ts := time.Now().Unix()

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)

	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func envelope(eventType, object string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_1","object":"event","api_version":"2020-08-27","type":%q,"data":{"object":%s}}`,
		eventType, object,
	))
}

const subscriptionObject = `{"id":"sub_1","object":"subscription","status":"active","customer":"cus_1","currency":"eur","created":1700000000}`

func TestService_Handle(t *testing.T) {
	processedAt := time.Now()

	tests := []struct {
		name        string
		payload     []byte
		signature   func([]byte) string
		setupMock   func(repo *webhook.MockRepository)
		wantOutcome webhook.Outcome
		wantErr     error
		wantRows    int
	}{
		{
			name:    "Processed",
			payload: envelope("customer.subscription.created", subscriptionObject),
			setupMock: func(repo *webhook.MockRepository) {
				repo.EXPECT().CreateIfNotExists(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, e *webhook.Event) (bool, *webhook.Event, error) {
						assert.Equal(t, "evt_1", e.EventID)
						assert.Equal(t, "customer.subscription.created", e.Type)

						stored := *e
						stored.ID = storedID

						return true, &stored, nil
					})
				repo.EXPECT().MarkProcessed(gomock.Any(), storedID, "").Return(nil)
			},
			wantOutcome: webhook.OutcomeProcessed,
			wantRows:    1,
		},
		{
			name:    "DuplicateIsAcknowledged",
			payload: envelope("customer.subscription.created", subscriptionObject),
			setupMock: func(repo *webhook.MockRepository) {
				repo.EXPECT().CreateIfNotExists(gomock.Any(), gomock.Any()).
					Return(false, &webhook.Event{ID: storedID, ProcessedAt: &processedAt}, nil)
			},
			wantOutcome: webhook.OutcomeDuplicate,
		},
		{
			name:    "UnfinishedRedeliveryIsRetried",
			payload: envelope("customer.subscription.updated", subscriptionObject),
			setupMock: func(repo *webhook.MockRepository) {
				repo.EXPECT().CreateIfNotExists(gomock.Any(), gomock.Any()).
					Return(false, &webhook.Event{ID: storedID}, nil)
				repo.EXPECT().MarkProcessed(gomock.Any(), storedID, "").Return(nil)
			},
			wantOutcome: webhook.OutcomeProcessed,
			wantRows:    1,
		},
		{
			name:    "UnsupportedTypeIgnored",
			payload: envelope("customer.created", `{"id":"cus_1","object":"customer"}`),
			setupMock: func(repo *webhook.MockRepository) {
				repo.EXPECT().CreateIfNotExists(gomock.Any(), gomock.Any()).
					Return(true, &webhook.Event{ID: storedID}, nil)
				repo.EXPECT().MarkProcessed(gomock.Any(), storedID, "").Return(nil)
			},
			wantOutcome: webhook.OutcomeIgnored,
		},
		{
			name:    "InvalidRecordStoredAsError",
			payload: envelope("invoice.paid", `{"id":"in_1","object":"invoice","status":"paid","amount_paid":-5,"created":1700000000}`),
			setupMock: func(repo *webhook.MockRepository) {
				repo.EXPECT().CreateIfNotExists(gomock.Any(), gomock.Any()).
					Return(true, &webhook.Event{ID: storedID}, nil)
				repo.EXPECT().MarkProcessed(gomock.Any(), storedID, gomock.Not("")).Return(nil)
			},
			wantOutcome: webhook.OutcomeFailed,
		},
		{
			name:      "BadSignature",
			payload:   envelope("customer.subscription.created", subscriptionObject),
			signature: func([]byte) string { return "t=1,v1=deadbeef" },
			setupMock: func(*webhook.MockRepository) {},
			wantErr:   webhook.ErrInvalidEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := webhook.NewMockRepository(ctrl)
			tt.setupMock(repo)

			ledgerRepo := ledgertest.New()
			svc := webhook.NewService(repo, ingest.New(ledger.NewService(ledgerRepo), linker.New()), secret)

			signature := sign(tt.payload)
			if tt.signature != nil {
				signature = tt.signature(tt.payload)
			}

			res, err := svc.Handle(context.Background(), tt.payload, signature)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, res.Outcome)
			assert.Equal(t, "evt_1", res.EventID)
			assert.Len(t, ledgerRepo.All(), tt.wantRows)
		})
	}
}

func TestService_Handle_StoreUnavailableLeavesEventOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := webhook.NewMockRepository(ctrl)
	repo.EXPECT().CreateIfNotExists(gomock.Any(), gomock.Any()).Return(true, &webhook.Event{ID: storedID}, nil)

	ledgerRepo := ledger.NewMockRepository(ctrl)
	ledgerRepo.EXPECT().GetByExternalID(gomock.Any(), "sub_1").Return(nil, driver.ErrBadConn)

	svc := webhook.NewService(repo, ingest.New(ledger.NewService(ledgerRepo), linker.New()), secret)

	payload := envelope("customer.subscription.created", subscriptionObject)

	_, err := svc.Handle(context.Background(), payload, sign(payload))
	require.ErrorIs(t, err, ingest.ErrStoreUnavailable)
}
