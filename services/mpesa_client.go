package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"storefront/models"
	"storefront/repository"

	"go.uber.org/zap"
)

const mpesaTimestampLayout = "20060102150405"

// MpesaConfig holds Daraja API credentials. Empty credentials put the adapter
// into degraded mode: orders still go through, payments stay pending with no
// reference and get reconciled manually.
type MpesaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	BaseURL        string
	CallbackURL    string
}

// Configured reports whether all required credentials are present.
func (c MpesaConfig) Configured() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.ShortCode != "" && c.Passkey != ""
}

// MpesaService initiates STK push payments and translates Daraja callbacks.
type MpesaService struct {
	cfg        MpesaConfig
	httpClient *http.Client
	payments   repository.PaymentRepository
	logger     *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewMpesaService(cfg MpesaConfig, payments repository.PaymentRepository, logger *zap.Logger) *MpesaService {
	return &MpesaService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		payments:   payments,
		logger:     logger,
	}
}

func (s *MpesaService) Method() string {
	return models.PaymentMethodMpesa
}

type mpesaTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// accessToken returns a cached OAuth token, refreshing it when within 30
// seconds of expiry.
func (s *MpesaService) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.tokenExpiry.Add(-30*time.Second)) {
		return s.token, nil
	}

	url := s.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.cfg.ConsumerKey, s.cfg.ConsumerSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mpesa token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mpesa token request returned %d", resp.StatusCode)
	}

	var tok mpesaTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("mpesa token decode failed: %w", err)
	}

	ttl, err := strconv.Atoi(tok.ExpiresIn)
	if err != nil || ttl <= 0 {
		ttl = 3600
	}
	s.token = tok.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(ttl) * time.Second)
	return s.token, nil
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// BeginSettlement triggers an STK push prompt on the customer's phone and
// records the Payment row. The order is never rolled back here: provider
// failures leave a failed Payment behind and the caller reports the order as
// awaiting payment.
func (s *MpesaService) BeginSettlement(ctx context.Context, order *models.Order, phone string) (*models.Payment, *PaymentInstructions, error) {
	payment := &models.Payment{
		OrderID: order.ID,
		Method:  models.PaymentMethodMpesa,
		Amount:  order.TotalAmount,
		Status:  models.PaymentStatusPending,
	}

	if !s.cfg.Configured() {
		s.logger.Warn("mpesa credentials not configured, payment left pending",
			zap.String("order_id", order.ID.String()))
		if err := s.payments.Create(ctx, payment); err != nil {
			return nil, nil, err
		}
		return payment, &PaymentInstructions{
			Pending: true,
			Message: "Payment service unavailable, order placed and awaiting payment",
		}, nil
	}

	token, err := s.accessToken(ctx)
	if err != nil {
		return s.failPayment(ctx, payment, err)
	}

	now := time.Now()
	timestamp := now.Format(mpesaTimestampLayout)
	password := base64.StdEncoding.EncodeToString([]byte(s.cfg.ShortCode + s.cfg.Passkey + timestamp))

	payload := stkPushRequest{
		BusinessShortCode: s.cfg.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int(math.Round(order.TotalAmount)),
		PartyA:            phone,
		PartyB:            s.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       s.cfg.CallbackURL,
		AccountReference:  order.ID.String(),
		TransactionDesc:   "Order " + order.OrderNumber,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return s.failPayment(ctx, payment, err)
	}

	url := s.cfg.BaseURL + "/mpesa/stkpush/v1/processrequest"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return s.failPayment(ctx, payment, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return s.failPayment(ctx, payment, fmt.Errorf("mpesa stk push request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return s.failPayment(ctx, payment, err)
	}
	raw := string(respBody)
	payment.RawPayload = &raw

	var stk stkPushResponse
	if err := json.Unmarshal(respBody, &stk); err != nil {
		return s.failPayment(ctx, payment, fmt.Errorf("mpesa stk push decode failed: %w", err))
	}

	if stk.ResponseCode != "0" {
		return s.failPayment(ctx, payment,
			fmt.Errorf("mpesa stk push rejected: code=%s desc=%s", stk.ResponseCode, stk.ResponseDescription))
	}

	payment.Reference = &stk.CheckoutRequestID
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, nil, err
	}

	s.logger.Info("mpesa stk push initiated",
		zap.String("order_id", order.ID.String()),
		zap.String("checkout_request_id", stk.CheckoutRequestID))

	return payment, &PaymentInstructions{
		Pending: true,
		Message: "Check your phone to complete the M-Pesa payment",
	}, nil
}

// failPayment persists the Payment as failed and surfaces the provider error.
func (s *MpesaService) failPayment(ctx context.Context, payment *models.Payment, cause error) (*models.Payment, *PaymentInstructions, error) {
	payment.Status = models.PaymentStatusFailed
	s.logger.Error("mpesa payment initiation failed",
		zap.String("order_id", payment.OrderID.String()),
		zap.Error(cause))
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, nil, err
	}
	return payment, nil, cause
}

type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// TranslateMpesaCallback maps a Daraja STK callback body onto the
// provider-neutral settlement event. ResultCode 0 means the customer paid;
// the order id rides along as the AccountReference metadata item for payments
// that never got a reference recorded.
func TranslateMpesaCallback(raw []byte) (*SettlementEvent, error) {
	var env stkCallbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed mpesa callback: %w", err)
	}

	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" && len(cb.CallbackMetadata.Item) == 0 {
		return nil, fmt.Errorf("mpesa callback carries no identifiers")
	}

	event := &SettlementEvent{
		Reference: cb.CheckoutRequestID,
		Succeeded: cb.ResultCode == 0,
		Raw:       raw,
	}
	for _, item := range cb.CallbackMetadata.Item {
		if item.Name == "AccountReference" {
			if v, ok := item.Value.(string); ok {
				event.OrderID = v
			}
		}
	}
	return event, nil
}
