package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cartaomais/appcore/internal/api"
	"github.com/cartaomais/appcore/internal/apperrors"
	"github.com/cartaomais/appcore/internal/logging"
)

func testService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := api.New(api.Config{BaseURL: srv.URL, Logger: logging.Discard()})
	return NewService(client, logging.Discard())
}

func TestCreatePixCharge(t *testing.T) {
	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payments/pix" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["installment_id"] != "inst-1" {
			t.Errorf("installment_id = %q", body["installment_id"])
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id":         "pix-1",
			"qr_code":    "data:image/png;base64,abc",
			"copy_paste": "00020126580014br.gov.bcb.pix",
			"expires_at": "2026-08-29T15:04:05Z",
		})
	})

	charge, err := svc.CreatePixCharge(context.Background(), "inst-1")
	if err != nil {
		t.Fatalf("CreatePixCharge: %v", err)
	}
	if charge.ID != "pix-1" || charge.CopyPaste == "" {
		t.Fatalf("charge = %+v", charge)
	}
	if charge.ExpiresAt.IsZero() {
		t.Fatal("expiry not parsed")
	}
}

func TestCreateBoleto(t *testing.T) {
	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"id":             "bol-1",
			"barcode":        "23790000012345",
			"digitable_line": "23790.00001 23456.000000",
			"expires_at":     "2026-09-01T23:59:59Z",
		})
	})

	boleto, err := svc.CreateBoleto(context.Background(), "inst-1")
	if err != nil {
		t.Fatalf("CreateBoleto: %v", err)
	}
	if boleto.DigitableLine == "" || boleto.ExpiresAt.IsZero() {
		t.Fatalf("boleto = %+v", boleto)
	}
}

func TestChargeCreditCard(t *testing.T) {
	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["card_id"] != "card-9" {
			t.Errorf("card_id = %v", body["card_id"])
		}
		if n, _ := body["installments"].(float64); n != 3 {
			t.Errorf("installments = %v", body["installments"])
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "rcpt-1", "status": "APPROVED"})
	})

	receipt, err := svc.ChargeCreditCard(context.Background(), "inst-1", "card-9", 3)
	if err != nil {
		t.Fatalf("ChargeCreditCard: %v", err)
	}
	if receipt.Status != "APPROVED" {
		t.Fatalf("receipt = %+v", receipt)
	}
}

func TestChargeCreditCardRefused(t *testing.T) {
	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "cartão recusado pelo emissor",
			"error":   map[string]string{"code": "CARD_REFUSED"},
		})
	})

	_, err := svc.ChargeCreditCard(context.Background(), "inst-1", "card-9", 1)
	if !apperrors.IsCode(err, apperrors.CodeBusiness) {
		t.Fatalf("err = %v, want business error", err)
	}
}

func TestListMethods(t *testing.T) {
	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/installments/inst-1/payment-methods" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"methods": []map[string]string{
				{"id": "pix", "name": "PIX"},
				{"id": "boleto", "name": "Boleto bancário"},
			},
		})
	})

	methods, err := svc.ListMethods(context.Background(), "inst-1")
	if err != nil {
		t.Fatalf("ListMethods: %v", err)
	}
	if len(methods) != 2 || methods[0].ID != "pix" {
		t.Fatalf("methods = %+v", methods)
	}
}

func TestChargeStatus(t *testing.T) {
	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payments/pix-1/status" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "PENDING"})
	})

	status, err := svc.ChargeStatus(context.Background(), "pix-1")
	if err != nil {
		t.Fatalf("ChargeStatus: %v", err)
	}
	if status != "PENDING" {
		t.Fatalf("status = %q", status)
	}
}
