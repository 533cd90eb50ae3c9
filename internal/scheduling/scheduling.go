// Package scheduling covers in-person appointment booking and the
// procedure catalog. It is a thin, stateless layer over the API client;
// nothing here is persisted.
package scheduling

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/cartaomais/appcore/internal/api"
	"github.com/cartaomais/appcore/internal/logging"
	"github.com/cartaomais/appcore/pkg/money"
)

// Specialty is one bookable medical specialty.
type Specialty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Slot is one bookable time slot at a clinic.
type Slot struct {
	ID        string    `json:"id"`
	ClinicID  string    `json:"clinic_id"`
	Clinic    string    `json:"clinic"`
	StartsAt  time.Time `json:"starts_at"`
	Physician string    `json:"physician"`
}

// Appointment is a booked appointment.
type Appointment struct {
	ID        string    `json:"id"`
	SlotID    string    `json:"slot_id"`
	Specialty string    `json:"specialty"`
	StartsAt  time.Time `json:"starts_at"`
	Status    string    `json:"status"`
}

// Procedure is one catalog item (exam or procedure) with its price.
type Procedure struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// ProcedureGroup aggregates the catalog by category.
type ProcedureGroup struct {
	Category   string
	Count      int
	TotalCents int64
	Items      []Procedure
}

// Service exposes the scheduling endpoints.
type Service struct {
	client *api.Client
	log    *logging.Logger
}

// NewService creates the scheduling service.
func NewService(client *api.Client, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("scheduling")
	}
	return &Service{client: client, log: log}
}

// ListSpecialties returns the bookable specialties.
func (s *Service) ListSpecialties(ctx context.Context) ([]Specialty, error) {
	var out struct {
		Specialties []Specialty `json:"specialties"`
	}
	if err := s.client.GetJSON(ctx, "/scheduling/specialties", &out); err != nil {
		return nil, err
	}
	return out.Specialties, nil
}

// ListAvailableSlots returns open slots for a specialty on a given day.
func (s *Service) ListAvailableSlots(ctx context.Context, specialtyID string, day time.Time) ([]Slot, error) {
	var out struct {
		Slots []Slot `json:"slots"`
	}
	path := fmt.Sprintf("/scheduling/specialties/%s/slots?date=%s",
		url.PathEscape(specialtyID), day.Format("2006-01-02"))
	if err := s.client.GetJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Slots, nil
}

// BookAppointment books a slot for the logged-in user.
func (s *Service) BookAppointment(ctx context.Context, slotID string) (Appointment, error) {
	var out Appointment
	body := map[string]string{"slot_id": slotID}
	if err := s.client.PostJSON(ctx, "/scheduling/appointments", body, &out); err != nil {
		return Appointment{}, err
	}
	s.log.WithField("appointment_id", out.ID).Info("appointment booked")
	return out, nil
}

// CancelAppointment cancels a booked appointment.
func (s *Service) CancelAppointment(ctx context.Context, appointmentID string) error {
	resp, err := s.client.Delete(ctx, fmt.Sprintf("/scheduling/appointments/%s", url.PathEscape(appointmentID)))
	if err != nil {
		return err
	}
	return api.DecodeResponse(resp, nil)
}

// ListProcedures returns the procedure catalog, optionally filtered by a
// free-text search term.
func (s *Service) ListProcedures(ctx context.Context, search string) ([]Procedure, error) {
	path := "/procedures"
	if search != "" {
		path += "?q=" + url.QueryEscape(search)
	}
	var out struct {
		Procedures []Procedure `json:"procedures"`
	}
	if err := s.client.GetJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Procedures, nil
}

// GroupProcedures buckets procedures by category, with per-category item
// counts and integer-cents totals. Groups come back sorted by category
// name; item order inside a group follows the input.
func GroupProcedures(items []Procedure) []ProcedureGroup {
	byCategory := make(map[string]*ProcedureGroup)
	for _, p := range items {
		g, ok := byCategory[p.Category]
		if !ok {
			g = &ProcedureGroup{Category: p.Category}
			byCategory[p.Category] = g
		}
		g.Count++
		g.TotalCents += money.ToCents(p.Price)
		g.Items = append(g.Items, p)
	}

	groups := make([]ProcedureGroup, 0, len(byCategory))
	for _, g := range byCategory {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Category < groups[j].Category
	})
	return groups
}
