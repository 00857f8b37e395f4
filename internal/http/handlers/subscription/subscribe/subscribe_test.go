package subscribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/slot-gate/internal/http/middlewarectx"
	services "github.com/magabrotheeeer/slot-gate/internal/services/subscription"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Subscribe(ctx context.Context, userID string, tier int, hours float64) (*services.SubscribeResult, error) {
	args := m.Called(ctx, userID, tier, hours)
	res, _ := args.Get(0).(*services.SubscribeResult)
	return res, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestSubscribeHandler(t *testing.T) {
	tests := []struct {
		name        string
		userID      string
		body        any
		setup       func(*MockService)
		wantStatus  int
		wantContain []string
	}{
		{
			name:   "success",
			userID: "u1",
			body:   Request{Tier: 3, Hours: 2},
			setup: func(m *MockService) {
				m.On("Subscribe", mock.Anything, "u1", 3, 2.0).Return(&services.SubscribeResult{
					Tier:           3,
					NewBalance:     3,
					ExpiresAt:      time.Date(2026, 3, 1, 16, 51, 0, 0, time.UTC),
					ConvertedHours: 2.857,
					TotalHours:     4.857,
				}, nil)
			},
			wantStatus:  http.StatusOK,
			wantContain: []string{`"new_balance":3`, `"total_hours":4.857`},
		},
		{
			name:        "unauthorized",
			body:        Request{Tier: 3, Hours: 2},
			setup:       func(*MockService) {},
			wantStatus:  http.StatusUnauthorized,
			wantContain: []string{"unauthorized"},
		},
		{
			name:        "invalid json",
			userID:      "u1",
			body:        "{",
			setup:       func(*MockService) {},
			wantStatus:  http.StatusBadRequest,
			wantContain: []string{"invalid request body"},
		},
		{
			name:        "missing hours",
			userID:      "u1",
			body:        Request{Tier: 1},
			setup:       func(*MockService) {},
			wantStatus:  http.StatusUnprocessableEntity,
			wantContain: []string{"field Hours is a required field"},
		},
		{
			name:   "slots full",
			userID: "u1",
			body:   Request{Tier: 3, Hours: 1},
			setup: func(m *MockService) {
				m.On("Subscribe", mock.Anything, "u1", 3, 1.0).
					Return(nil, &services.SlotsFullError{Tier: 3, Active: 1, Max: 1})
			},
			wantStatus:  http.StatusConflict,
			wantContain: []string{`"kind":"capacity"`, `"max":1`},
		},
		{
			name:   "insufficient balance",
			userID: "u1",
			body:   Request{Tier: 1, Hours: 10},
			setup: func(m *MockService) {
				m.On("Subscribe", mock.Anything, "u1", 1, 10.0).
					Return(nil, &services.InsufficientBalanceError{Needed: 10, Have: 2})
			},
			wantStatus:  http.StatusPaymentRequired,
			wantContain: []string{`"kind":"funds"`, `"needed":10`},
		},
		{
			name:   "paused",
			userID: "u1",
			body:   Request{Tier: 1, Hours: 1},
			setup: func(m *MockService) {
				m.On("Subscribe", mock.Anything, "u1", 1, 1.0).Return(nil, services.ErrPaused)
			},
			wantStatus:  http.StatusConflict,
			wantContain: []string{`"kind":"state"`},
		},
		{
			name:   "unknown plan",
			userID: "u1",
			body:   Request{Tier: 9, Hours: 1},
			setup: func(m *MockService) {
				m.On("Subscribe", mock.Anything, "u1", 9, 1.0).Return(nil, services.ErrUnknownPlan)
			},
			wantStatus:  http.StatusNotFound,
			wantContain: []string{"unknown plan"},
		},
		{
			name:   "internal",
			userID: "u1",
			body:   Request{Tier: 1, Hours: 1},
			setup: func(m *MockService) {
				m.On("Subscribe", mock.Anything, "u1", 1, 1.0).Return(nil, errors.New("boom"))
			},
			wantStatus:  http.StatusInternalServerError,
			wantContain: []string{"internal error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setup(svc)

			var body []byte
			if s, ok := tt.body.(string); ok {
				body = []byte(s)
			} else {
				var err error
				body, err = json.Marshal(tt.body)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/subscribe", bytes.NewReader(body))
			ctx := context.WithValue(req.Context(), middlewarectx.UserID, tt.userID)
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-id")
			req = req.WithContext(ctx)
			rec := httptest.NewRecorder()

			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			for _, s := range tt.wantContain {
				assert.Contains(t, rec.Body.String(), s)
			}
			svc.AssertExpectations(t)
		})
	}
}
