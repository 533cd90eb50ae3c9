// Package acquisition holds the transient state of the multi-step
// plan-purchase flow: choose plan, choose payment method, pay. Nothing
// here is persisted; the flow is discarded when it completes or unmounts.
package acquisition

import (
	"sync"

	"github.com/cartaomais/appcore/internal/apperrors"
)

// Plan is a purchasable subscription plan.
type Plan struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	MonthlyPrice float64 `json:"monthly_price"`
	AnnualPrice  float64 `json:"annual_price"`
}

// Contract is the contract created for the chosen plan.
type Contract struct {
	ID     string `json:"id"`
	PlanID string `json:"plan_id"`
	Active bool   `json:"active"`
}

// Installment is the first installment generated for the contract.
type Installment struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount_cents"`
	DueDate     string `json:"due_date"`
}

// PaymentPlan is the chosen installment schedule.
type PaymentPlan struct {
	ID           string `json:"id"`
	Installments int    `json:"installments"`
	AmountCents  int64  `json:"amount_cents"`
}

// State is a snapshot of the flow.
type State struct {
	Plan             *Plan
	PaymentMethodID  string
	Annual           bool
	Contract         *Contract
	FirstInstallment *Installment
	PaymentPlan      *PaymentPlan
	Voucher          string
}

// Flow is the transient acquisition-flow store. It exists to pass state
// between screens that are not parent/child in the navigation tree; each
// screen validates what it needs before advancing.
type Flow struct {
	mu    sync.RWMutex
	state State
}

// NewFlow creates an empty flow.
func NewFlow() *Flow {
	return &Flow{}
}

// SetPlan records the chosen plan.
func (f *Flow) SetPlan(p Plan) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Plan = &p
}

// Plan returns the chosen plan, if any.
func (f *Flow) Plan() (Plan, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.state.Plan == nil {
		return Plan{}, false
	}
	return *f.state.Plan, true
}

// ClearPlan resets only the plan field.
func (f *Flow) ClearPlan() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Plan = nil
}

// SetPaymentMethod records the chosen payment-method id.
func (f *Flow) SetPaymentMethod(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.PaymentMethodID = id
}

// PaymentMethod returns the chosen payment-method id.
func (f *Flow) PaymentMethod() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.PaymentMethodID
}

// SetAnnual records the annual-vs-monthly choice.
func (f *Flow) SetAnnual(annual bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Annual = annual
}

// Annual reports the annual-vs-monthly choice.
func (f *Flow) Annual() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.Annual
}

// SetContract records the created contract.
func (f *Flow) SetContract(c Contract) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Contract = &c
}

// Contract returns the created contract, if any.
func (f *Flow) Contract() (Contract, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.state.Contract == nil {
		return Contract{}, false
	}
	return *f.state.Contract, true
}

// SetFirstInstallment records the first installment.
func (f *Flow) SetFirstInstallment(i Installment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.FirstInstallment = &i
}

// FirstInstallment returns the first installment, if any.
func (f *Flow) FirstInstallment() (Installment, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.state.FirstInstallment == nil {
		return Installment{}, false
	}
	return *f.state.FirstInstallment, true
}

// SetPaymentPlan records the chosen installment schedule.
func (f *Flow) SetPaymentPlan(p PaymentPlan) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.PaymentPlan = &p
}

// PaymentPlan returns the chosen installment schedule, if any.
func (f *Flow) PaymentPlan() (PaymentPlan, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.state.PaymentPlan == nil {
		return PaymentPlan{}, false
	}
	return *f.state.PaymentPlan, true
}

// SetVoucher records the promo voucher string.
func (f *Flow) SetVoucher(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Voucher = v
}

// Voucher returns the promo voucher string.
func (f *Flow) Voucher() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.Voucher
}

// Snapshot returns a copy of the whole flow state.
func (f *Flow) Snapshot() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return cloneState(f.state)
}

// Reset discards the entire flow.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = State{}
}

// ValidateForPayment reports the first missing field a payment screen
// requires. Any missing field is a fatal inconsistent-state condition;
// the screen must show an error rather than proceed.
func (f *Flow) ValidateForPayment() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	switch {
	case f.state.Plan == nil:
		return apperrors.Inconsistent("no plan selected")
	case f.state.PaymentMethodID == "":
		return apperrors.Inconsistent("no payment method selected")
	case f.state.Contract == nil:
		return apperrors.Inconsistent("no contract created")
	case f.state.FirstInstallment == nil:
		return apperrors.Inconsistent("no installment generated")
	case f.state.PaymentPlan == nil:
		return apperrors.Inconsistent("no payment plan chosen")
	}
	return nil
}

func cloneState(in State) State {
	out := in
	if in.Plan != nil {
		p := *in.Plan
		out.Plan = &p
	}
	if in.Contract != nil {
		c := *in.Contract
		out.Contract = &c
	}
	if in.FirstInstallment != nil {
		i := *in.FirstInstallment
		out.FirstInstallment = &i
	}
	if in.PaymentPlan != nil {
		p := *in.PaymentPlan
		out.PaymentPlan = &p
	}
	return out
}
