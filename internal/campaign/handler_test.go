package campaign

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestValidateSocialRequest(t *testing.T) {
	when := time.Now().Add(time.Hour)
	tests := []struct {
		name    string
		request SocialScheduleRequest
		wantErr bool
	}{
		{
			name:    "valid",
			request: SocialScheduleRequest{Channel: ChannelLinkedIn, Content: "post", ScheduledAt: when},
		},
		{
			name:    "missing channel",
			request: SocialScheduleRequest{Content: "post", ScheduledAt: when},
			wantErr: true,
		},
		{
			name:    "unknown channel",
			request: SocialScheduleRequest{Channel: "myspace", Content: "post", ScheduledAt: when},
			wantErr: true,
		},
		{
			name:    "email is not a social channel",
			request: SocialScheduleRequest{Channel: ChannelEmail, Content: "post", ScheduledAt: when},
			wantErr: true,
		},
		{
			name:    "missing content",
			request: SocialScheduleRequest{Channel: ChannelX, ScheduledAt: when},
			wantErr: true,
		},
		{
			name:    "missing time",
			request: SocialScheduleRequest{Channel: ChannelX, Content: "post"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateSocialRequest(tc.request)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateEmailRequest(t *testing.T) {
	when := time.Now().Add(time.Hour)
	tests := []struct {
		name    string
		request EmailScheduleRequest
		wantErr bool
	}{
		{
			name:    "valid",
			request: EmailScheduleRequest{Subject: "s", Body: "b", ToList: "a@b.com", ScheduledAt: when},
		},
		{
			name:    "missing subject",
			request: EmailScheduleRequest{Body: "b", ToList: "a@b.com", ScheduledAt: when},
			wantErr: true,
		},
		{
			name:    "missing body",
			request: EmailScheduleRequest{Subject: "s", ToList: "a@b.com", ScheduledAt: when},
			wantErr: true,
		},
		{
			name:    "missing list",
			request: EmailScheduleRequest{Subject: "s", Body: "b", ScheduledAt: when},
			wantErr: true,
		},
		{
			name:    "missing time",
			request: EmailScheduleRequest{Subject: "s", Body: "b", ToList: "a@b.com"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateEmailRequest(tc.request)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

type memAdminStore struct {
	items []Item
	err   error
}

func (m *memAdminStore) CreateItem(ctx context.Context, item Item) error {
	if m.err != nil {
		return m.err
	}
	m.items = append(m.items, item)
	return nil
}

func (m *memAdminStore) ListRecent(ctx context.Context, limit int) ([]Item, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.items, nil
}

type stubTrigger struct {
	err error
}

func (s *stubTrigger) RunOnce(ctx context.Context) error { return s.err }

func TestScheduleSocialEndpoint(t *testing.T) {
	store := &memAdminStore{}
	h := NewHandler(store, &stubTrigger{}, zerolog.Nop())
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	body := `{"channel":"linkedin","content":"new issue out","scheduled_at":"2026-09-01T10:00:00Z"}`
	resp, err := http.Post(srv.URL+"/api/schedule/social", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ok, _ := out["ok"].(bool); !ok {
		t.Fatalf("response not ok: %v", out)
	}

	if len(store.items) != 1 {
		t.Fatalf("stored %d items, want 1", len(store.items))
	}
	item := store.items[0]
	if item.Status != StatusPending {
		t.Fatalf("new item status %s, want pending", item.Status)
	}
	if item.Channel != ChannelLinkedIn {
		t.Fatalf("new item channel %s, want linkedin", item.Channel)
	}
	if item.ID == "" {
		t.Fatal("new item has no id")
	}
}

func TestScheduleEmailEndpointWrapsPayload(t *testing.T) {
	store := &memAdminStore{}
	h := NewHandler(store, &stubTrigger{}, zerolog.Nop())
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	body := `{"subject":"hello","body":"<b>hi</b>","to_list":"subscribers@dpd","scheduled_at":"2026-09-01T10:00:00Z"}`
	resp, err := http.Post(srv.URL+"/api/schedule/email", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	if len(store.items) != 1 {
		t.Fatalf("stored %d items, want 1", len(store.items))
	}
	var payload EmailPayload
	if err := json.Unmarshal([]byte(store.items[0].Payload), &payload); err != nil {
		t.Fatalf("stored payload not valid json: %v", err)
	}
	if payload.Subject != "hello" || payload.ToList != "subscribers@dpd" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestScheduleSocialRejectsInvalid(t *testing.T) {
	h := NewHandler(&memAdminStore{}, &stubTrigger{}, zerolog.Nop())
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/schedule/social", "application/json", strings.NewReader(`{"channel":"x"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestRunNowConflictWhileCycleRunning(t *testing.T) {
	h := NewHandler(&memAdminStore{}, &stubTrigger{err: ErrCycleRunning}, zerolog.Nop())
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/campaigns/run", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestListCampaignsEmpty(t *testing.T) {
	h := NewHandler(&memAdminStore{}, &stubTrigger{}, zerolog.Nop())
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/campaigns")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("got %d items, want 0", len(items))
	}
}
