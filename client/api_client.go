package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Kelas error API; transisi yang ditolak (ErrConflict) tidak boleh
// di-retry otomatis — ulangi tetap tidak valid.
var (
	ErrUnauthorized = errors.New("authentication failed")
	ErrForbidden    = errors.New("permission denied")
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("transition rejected")
)

// API adalah client HTTP untuk backend wine service, dipakai kedua sync engine.
type API struct {
	http *resty.Client
}

func New(baseURL, token string) *API {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	return &API{http: c}
}

// envelope respons server (utils.JSONResponse)
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type TableSummary struct {
	ID          uint       `json:"id"`
	TableNumber string     `json:"table_number"`
	Location    string     `json:"location,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Status      string     `json:"status"`
	StepIndex   int        `json:"step_index"`
	GuestCount  int        `json:"guest_count"`
	ArrivedAt   *time.Time `json:"arrived_at,omitempty"`
	SeatedAt    *time.Time `json:"seated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ListPage struct {
	Items []TableSummary `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type Guest struct {
	ID            uint      `json:"id"`
	TableID       uint      `json:"table_id"`
	Name          string    `json:"name,omitempty"`
	Allergy       string    `json:"allergy,omitempty"`
	ProteinSub    string    `json:"protein_sub,omitempty"`
	Doneness      string    `json:"doneness,omitempty"`
	Substitutions string    `json:"substitutions,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type WineEntry struct {
	ID        uint      `json:"id"`
	TableID   uint      `json:"table_id"`
	Kind      string    `json:"kind"`
	WineID    *uint     `json:"wine_id,omitempty"`
	Label     string    `json:"label,omitempty"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StepEvent struct {
	ID        uint      `json:"id"`
	TableID   uint      `json:"table_id"`
	EventType string    `json:"event_type"`
	FromStep  *int      `json:"from_step,omitempty"`
	ToStep    *int      `json:"to_step,omitempty"`
	Payload   string    `json:"payload,omitempty"`
	ActorID   *uint     `json:"actor_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableDetail adalah proyeksi penuh satu meja
type TableDetail struct {
	TableSummary
	Guests      []Guest     `json:"guests"`
	WineEntries []WineEntry `json:"wine_entries"`
	StepEvents  []StepEvent `json:"step_events"`
}

// TransitionState adalah state minimal yang dikembalikan endpoint transisi
type TransitionState struct {
	TableID   uint      `json:"table_id"`
	Status    string    `json:"status"`
	StepIndex int       `json:"step_index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListTables -> roster; updatedSince zero value berarti full load
func (a *API) ListTables(ctx context.Context, status string, page, limit int, updatedSince time.Time) (*ListPage, error) {
	query := map[string]string{
		"page":  strconv.Itoa(page),
		"limit": strconv.Itoa(limit),
	}
	if status != "" {
		query["status"] = status
	}
	if !updatedSince.IsZero() {
		query["updated_since"] = updatedSince.Format(time.RFC3339Nano)
	}

	var result ListPage
	if err := a.get(ctx, "/admin/tables", query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTable -> proyeksi penuh satu meja
func (a *API) GetTable(ctx context.Context, tableID uint) (*TableDetail, error) {
	var result TableDetail
	path := fmt.Sprintf("/admin/tables/%d", tableID)
	if err := a.get(ctx, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Transition -> op: arrive, seat, next, undo, complete, cancel
func (a *API) Transition(ctx context.Context, tableID uint, op string) (*TransitionState, error) {
	path := fmt.Sprintf("/admin/tables/%d/%s", tableID, op)
	resp, err := a.http.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", uuid.NewString()).
		Post(path)
	if err != nil {
		return nil, err
	}

	var result TransitionState
	if err := decode(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *API) get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	req := a.http.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", uuid.NewString())
	if query != nil {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *resty.Response, out interface{}) error {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return statusError(resp.StatusCode(), env.Message)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func statusError(code int, message string) error {
	switch code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, message)
	default:
		return fmt.Errorf("server returned %d: %s", code, message)
	}
}
