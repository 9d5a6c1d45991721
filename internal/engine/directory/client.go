// Package directory resolves clients, patients and appointments from the
// practice-management service that owns them. The engine only reads the few
// fields needed for recipients and template variables.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "vetcare-reminders/internal/common/errors"
	"vetcare-reminders/internal/models"
)

// Contact carries the delivery addresses resolved for a reminder's client.
type Contact struct {
	Email string
	Phone string
}

// Client is a thin REST client for the practice directory.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Resolve looks up the reminder's linked records and builds the variable
// context used for template rendering. A missing client is permanent (there
// is no recipient); missing patient/appointment records only leave their
// variables out of the context, surfacing later as render errors if a
// template actually needs them.
func (c *Client) Resolve(ctx context.Context, rem *models.Reminder) (*Contact, map[string]string, error) {
	vars := map[string]string{}

	client, err := c.getJSON(ctx, "/api/clients/"+rem.ClientID)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return nil, nil, &apperrors.Error{
			Code:      apperrors.ErrCodeChannelError,
			Message:   "recipient lookup failed",
			Details:   "client not found: " + rem.ClientID,
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	}

	contact := &Contact{
		Email: str(client["email"]),
		Phone: str(client["phone"]),
	}
	name := strings.TrimSpace(str(client["first_name"]) + " " + str(client["last_name"]))
	if name == "" {
		name = str(client["name"])
	}
	if name != "" {
		vars["client_name"] = name
	}
	if contact.Email != "" {
		vars["client_email"] = contact.Email
	}
	if contact.Phone != "" {
		vars["client_phone"] = contact.Phone
	}

	if rem.PatientID != nil {
		patient, err := c.getJSON(ctx, "/api/patients/"+*rem.PatientID)
		if err != nil {
			return nil, nil, err
		}
		if patient != nil {
			if v := str(patient["name"]); v != "" {
				vars["patient_name"] = v
			}
			if v := str(patient["species"]); v != "" {
				vars["patient_species"] = v
			}
		}
	}

	if rem.AppointmentID != nil {
		appt, err := c.getJSON(ctx, "/api/appointments/"+*rem.AppointmentID)
		if err != nil {
			return nil, nil, err
		}
		if appt != nil {
			if v := str(appt["appointment_date"]); v != "" {
				vars["date"] = v
			} else if v := str(appt["date"]); v != "" {
				vars["date"] = v
			}
			if v := str(appt["appointment_time"]); v != "" {
				vars["time"] = v
			} else if v := str(appt["time"]); v != "" {
				vars["time"] = v
			}
		}
	}

	// The reminder's own schedule backs the date/time variables when no
	// appointment is linked.
	if _, ok := vars["date"]; !ok && rem.ScheduledDate != "" {
		vars["date"] = rem.ScheduledDate
	}
	if _, ok := vars["time"]; !ok && rem.ScheduledTime != "" {
		vars["time"] = rem.ScheduledTime
	}

	return contact, vars, nil
}

// getJSON returns nil without error on 404 so callers decide how much a
// missing record matters.
func (c *Client) getJSON(ctx context.Context, path string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewChannelError("directory", true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewChannelError("directory", resp.StatusCode >= 500,
			fmt.Errorf("directory returned %d for %s", resp.StatusCode, path))
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.NewChannelError("directory", true, err)
	}
	return body, nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}
