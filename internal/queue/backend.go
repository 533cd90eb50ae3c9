package queue

import (
	"context"

	"github.com/cartaomais/appcore/internal/api"
)

// APIBackend implements Backend against the remote telemedicine API.
type APIBackend struct {
	client *api.Client
}

// NewAPIBackend creates a backend over the shared API client.
func NewAPIBackend(client *api.Client) *APIBackend {
	return &APIBackend{client: client}
}

// Join enters the patient into the virtual queue for a specialty.
func (b *APIBackend) Join(ctx context.Context, patientToken, specialty string) (string, error) {
	var out struct {
		AppointmentID string `json:"appointment_id"`
	}
	body := map[string]string{"patient_token": patientToken, "specialty": specialty}
	if err := b.client.PostJSON(ctx, "/telemedicine/queue", body, &out); err != nil {
		return "", err
	}
	return out.AppointmentID, nil
}

// Snapshot fetches the raw queue snapshot. The body is returned untouched
// because its shape varies across server versions.
func (b *APIBackend) Snapshot(ctx context.Context) ([]byte, error) {
	resp, err := b.client.Get(ctx, "/telemedicine/queue")
	if err != nil {
		return nil, err
	}
	if err := api.DecodeResponse(resp, nil); err != nil {
		return nil, err
	}
	return resp.Body, nil
}
