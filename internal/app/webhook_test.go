package app

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quickshow/quickshow/internal/domain"
	"github.com/quickshow/quickshow/internal/mocks"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test"

type WebhookTestSuite struct {
	suite.Suite
	app             *application
	bookingRepo     *mocks.MockBookingRepo
	paymentProvider *mocks.MockPaymentProvider
	redisClient     *mocks.MockRedisClient
}

func (s *WebhookTestSuite) SetupTest() {
	s.bookingRepo = new(mocks.MockBookingRepo)
	s.paymentProvider = new(mocks.MockPaymentProvider)
	s.redisClient = new(mocks.MockRedisClient)

	s.app = newTestApplication(func(a *application) {
		a.bookingRepo = s.bookingRepo
		a.paymentProvider = s.paymentProvider
		a.redis = s.redisClient
		a.config.stripe.webhookSecret = testWebhookSecret
	})
}

func TestWebhookSuite(t *testing.T) {
	suite.Run(t, new(WebhookTestSuite))
}

func signedWebhookRequest(t *testing.T, payload string) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	now := time.Now()
	signature := webhook.ComputeSignature(now, []byte(payload), testWebhookSecret)

	r := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	r.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%x", now.Unix(), signature))
	w := httptest.NewRecorder()

	return w, r
}

func checkoutCompletedPayload(eventID string, metadata string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_123",
				"metadata": %s
			}
		}
	}`, eventID, metadata)
}

func (s *WebhookTestSuite) TestStripeWebhookHandler() {
	bookingID := uuid.New()

	tests := []struct {
		name       string
		payload    string
		signed     bool
		setupMocks func()
		wantStatus int
	}{
		{
			name:       "should reject an unsigned delivery",
			payload:    checkoutCompletedPayload("evt_1", `{"booking_id": "`+bookingID.String()+`"}`),
			signed:     false,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:    "should skip an already processed event",
			payload: checkoutCompletedPayload("evt_2", `{"booking_id": "`+bookingID.String()+`"}`),
			signed:  true,
			setupMocks: func() {
				s.redisClient.On("SetNX", mock.Anything, webhookDedupKey("evt_2"), mock.Anything, mock.Anything).
					Return(redis.NewBoolResult(false, nil)).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:    "should settle the booking on checkout completion",
			payload: checkoutCompletedPayload("evt_3", `{"booking_id": "`+bookingID.String()+`"}`),
			signed:  true,
			setupMocks: func() {
				s.redisClient.On("SetNX", mock.Anything, webhookDedupKey("evt_3"), mock.Anything, mock.Anything).
					Return(redis.NewBoolResult(true, nil)).Once()
				s.bookingRepo.On("MarkPaid", mock.Anything, bookingID).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:    "should acknowledge a session without a booking reference",
			payload: checkoutCompletedPayload("evt_4", `{}`),
			signed:  true,
			setupMocks: func() {
				s.redisClient.On("SetNX", mock.Anything, webhookDedupKey("evt_4"), mock.Anything, mock.Anything).
					Return(redis.NewBoolResult(true, nil)).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:    "should release the dedup key and fail when settling fails",
			payload: checkoutCompletedPayload("evt_5", `{"booking_id": "`+bookingID.String()+`"}`),
			signed:  true,
			setupMocks: func() {
				s.redisClient.On("SetNX", mock.Anything, webhookDedupKey("evt_5"), mock.Anything, mock.Anything).
					Return(redis.NewBoolResult(true, nil)).Once()
				s.bookingRepo.On("MarkPaid", mock.Anything, bookingID).
					Return(fmt.Errorf("connection reset")).Once()
				s.redisClient.On("Del", mock.Anything, []string{webhookDedupKey("evt_5")}).
					Return(redis.NewIntResult(1, nil)).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:    "should acknowledge a payment that can no longer settle its booking",
			payload: checkoutCompletedPayload("evt_6", `{"booking_id": "`+bookingID.String()+`"}`),
			signed:  true,
			setupMocks: func() {
				s.redisClient.On("SetNX", mock.Anything, webhookDedupKey("evt_6"), mock.Anything, mock.Anything).
					Return(redis.NewBoolResult(true, nil)).Once()
				s.bookingRepo.On("MarkPaid", mock.Anything, bookingID).
					Return(domain.ErrInvalidTransition).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "should settle the booking via payment intent lookup",
			payload: `{
				"id": "evt_7",
				"type": "payment_intent.succeeded",
				"data": {"object": {"id": "pi_123"}}
			}`,
			signed: true,
			setupMocks: func() {
				s.redisClient.On("SetNX", mock.Anything, webhookDedupKey("evt_7"), mock.Anything, mock.Anything).
					Return(redis.NewBoolResult(true, nil)).Once()
				s.paymentProvider.On("CheckoutSessionsByPaymentIntent", mock.Anything, "pi_123").
					Return([]*stripe.CheckoutSession{
						{ID: "cs_other", Metadata: map[string]string{}},
						{ID: "cs_123", Metadata: map[string]string{"booking_id": bookingID.String()}},
					}, nil).Once()
				s.bookingRepo.On("MarkPaid", mock.Anything, bookingID).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "should acknowledge a payment intent with no matching booking",
			payload: `{
				"id": "evt_8",
				"type": "payment_intent.succeeded",
				"data": {"object": {"id": "pi_456"}}
			}`,
			signed: true,
			setupMocks: func() {
				s.redisClient.On("SetNX", mock.Anything, webhookDedupKey("evt_8"), mock.Anything, mock.Anything).
					Return(redis.NewBoolResult(true, nil)).Once()
				s.paymentProvider.On("CheckoutSessionsByPaymentIntent", mock.Anything, "pi_456").
					Return([]*stripe.CheckoutSession{}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "should ignore unrelated event types",
			payload: `{
				"id": "evt_9",
				"type": "charge.refunded",
				"data": {"object": {}}
			}`,
			signed: true,
			setupMocks: func() {
				s.redisClient.On("SetNX", mock.Anything, webhookDedupKey("evt_9"), mock.Anything, mock.Anything).
					Return(redis.NewBoolResult(true, nil)).Once()
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			defer s.bookingRepo.AssertExpectations(s.T())
			defer s.paymentProvider.AssertExpectations(s.T())
			defer s.redisClient.AssertExpectations(s.T())

			if tt.setupMocks != nil {
				tt.setupMocks()
			}

			var w *httptest.ResponseRecorder
			var r *http.Request

			if tt.signed {
				w, r = signedWebhookRequest(s.T(), tt.payload)
			} else {
				r = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(tt.payload))
				w = httptest.NewRecorder()
			}

			s.app.StripeWebhookHandler(w, r)

			s.Equal(tt.wantStatus, w.Code)
		})
	}
}
