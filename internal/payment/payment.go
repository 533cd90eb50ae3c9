// Package payment implements the payment flows for contract installments:
// PIX, boleto and credit card. PIX and boleto are asynchronous and are
// watched by a StatusPoller; credit-card charges settle in the request.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/cartaomais/appcore/internal/api"
	"github.com/cartaomais/appcore/internal/logging"
)

// Method identifies a payment method.
type Method string

const (
	MethodPix        Method = "pix"
	MethodBoleto     Method = "boleto"
	MethodCreditCard Method = "credit_card"
)

// PixCharge is a created PIX charge.
type PixCharge struct {
	ID        string    `json:"id"`
	QRCode    string    `json:"qr_code"`
	CopyPaste string    `json:"copy_paste"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Boleto is a created boleto.
type Boleto struct {
	ID            string    `json:"id"`
	Barcode       string    `json:"barcode"`
	DigitableLine string    `json:"digitable_line"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Receipt is the result of a synchronous charge.
type Receipt struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// MethodInfo is one payment method offered for an installment.
type MethodInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Service exposes the payment endpoints.
type Service struct {
	client *api.Client
	log    *logging.Logger
}

// NewService creates the payment service.
func NewService(client *api.Client, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("payment")
	}
	return &Service{client: client, log: log}
}

// ListMethods returns the payment methods available for an installment.
func (s *Service) ListMethods(ctx context.Context, installmentID string) ([]MethodInfo, error) {
	var out struct {
		Methods []MethodInfo `json:"methods"`
	}
	path := fmt.Sprintf("/installments/%s/payment-methods", installmentID)
	if err := s.client.GetJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Methods, nil
}

// CreatePixCharge creates a PIX charge for an installment.
func (s *Service) CreatePixCharge(ctx context.Context, installmentID string) (PixCharge, error) {
	var out PixCharge
	body := map[string]string{"installment_id": installmentID}
	if err := s.client.PostJSON(ctx, "/payments/pix", body, &out); err != nil {
		return PixCharge{}, err
	}
	return out, nil
}

// CreateBoleto creates a boleto for an installment.
func (s *Service) CreateBoleto(ctx context.Context, installmentID string) (Boleto, error) {
	var out Boleto
	body := map[string]string{"installment_id": installmentID}
	if err := s.client.PostJSON(ctx, "/payments/boleto", body, &out); err != nil {
		return Boleto{}, err
	}
	return out, nil
}

// ChargeCreditCard charges a stored card for an installment.
func (s *Service) ChargeCreditCard(ctx context.Context, installmentID, cardID string, installments int) (Receipt, error) {
	var out Receipt
	body := map[string]any{
		"installment_id": installmentID,
		"card_id":        cardID,
		"installments":   installments,
	}
	if err := s.client.PostJSON(ctx, "/payments/credit-card", body, &out); err != nil {
		return Receipt{}, err
	}
	return out, nil
}

// ChargeStatus fetches the current status of an asynchronous charge.
func (s *Service) ChargeStatus(ctx context.Context, chargeID string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := s.client.GetJSON(ctx, fmt.Sprintf("/payments/%s/status", chargeID), &out); err != nil {
		return "", err
	}
	return out.Status, nil
}
