package slots

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	services "github.com/magabrotheeeer/slot-gate/internal/services/subscription"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) SlotsStatus(ctx context.Context) ([]services.SlotStatus, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).([]services.SlotStatus)
	return res, args.Error(1)
}

func TestSlotsHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eta := int64(1800)

	tests := []struct {
		name        string
		setup       func(*MockService)
		wantStatus  int
		wantContain []string
	}{
		{
			name: "tiers listed",
			setup: func(m *MockService) {
				m.On("SlotsStatus", mock.Anything).Return([]services.SlotStatus{
					{Tier: 1, Name: "Basic", ActiveUsers: 1, MaxSlots: 2},
					{Tier: 3, Name: "Elite", ActiveUsers: 1, MaxSlots: 1, NextSlotInSeconds: &eta},
				}, nil)
			},
			wantStatus:  http.StatusOK,
			wantContain: []string{`"name":"Basic"`, `"next_slot_in_seconds":1800`},
		},
		{
			name: "service error",
			setup: func(m *MockService) {
				m.On("SlotsStatus", mock.Anything).Return(nil, errors.New("load failed"))
			},
			wantStatus:  http.StatusInternalServerError,
			wantContain: []string{"internal error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setup(svc)

			rec := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/slots", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			for _, s := range tt.wantContain {
				assert.Contains(t, rec.Body.String(), s)
			}
			svc.AssertExpectations(t)
		})
	}
}
