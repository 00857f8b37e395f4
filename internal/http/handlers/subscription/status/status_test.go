package status

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/slot-gate/internal/http/middlewarectx"
	services "github.com/magabrotheeeer/slot-gate/internal/services/subscription"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Status(ctx context.Context, userID string) (*services.UserStatus, error) {
	args := m.Called(ctx, userID)
	st, _ := args.Get(0).(*services.UserStatus)
	return st, args.Error(1)
}

func TestStatusHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name        string
		userID      string
		setup       func(*MockService)
		wantStatus  int
		wantContain string
	}{
		{
			name:   "active subscription",
			userID: "u1",
			setup: func(m *MockService) {
				m.On("Status", mock.Anything, "u1").Return(&services.UserStatus{
					UserID: "u1", Tier: 1, Status: services.StatusActive, Active: true, RemainingSeconds: 3600,
				}, nil)
			},
			wantStatus:  http.StatusOK,
			wantContain: `"remaining_seconds":3600`,
		},
		{
			name:        "unauthorized",
			setup:       func(*MockService) {},
			wantStatus:  http.StatusUnauthorized,
			wantContain: "unauthorized",
		},
		{
			name:   "unknown user",
			userID: "ghost",
			setup: func(m *MockService) {
				m.On("Status", mock.Anything, "ghost").Return(nil, fmt.Errorf("op: %w", services.ErrUnknownUser))
			},
			wantStatus:  http.StatusNotFound,
			wantContain: `"kind":"not_found"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setup(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			ctx := context.WithValue(req.Context(), middlewarectx.UserID, tt.userID)
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-id")
			rec := httptest.NewRecorder()

			New(logger, svc).ServeHTTP(rec, req.WithContext(ctx))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantContain)
			svc.AssertExpectations(t)
		})
	}
}
