package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wingedflyer/backend/config"
	"github.com/wingedflyer/backend/internal/models"
	"github.com/wingedflyer/backend/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.Event
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: make(map[uuid.UUID]*models.Event)}
}

func (s *fakeStore) Create(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	s.events[e.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *fakeStore) Update(_ context.Context, id uuid.UUID, title, content string, isPublic bool) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	e.Title, e.Content, e.IsPublic = title, content, isPublic
	e.UpdatedAt = time.Now()
	cp := *e
	return &cp, nil
}

func (s *fakeStore) SetUrgentMessage(_ context.Context, id uuid.UUID, msg string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	e.UrgentMessage = msg
	e.UpdatedAt = time.Now()
	cp := *e
	return &cp, nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

type fakeArtifacts struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{files: make(map[string][]byte)}
}

func (a *fakeArtifacts) Write(eventID string, png []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[eventID] = png
	return nil
}

func (a *fakeArtifacts) Remove(eventID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.files, eventID)
	return nil
}

func (a *fakeArtifacts) get(eventID string) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.files[eventID]
}

type fakeMirror struct {
	mu      sync.Mutex
	deleted []string
}

func (m *fakeMirror) DeleteQR(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	return nil
}

var testApp = config.AppConfig{PublicBaseURL: "https://flyer.example.com", QRSizePx: 128}

func newTestRouter(store *fakeStore, arts *fakeArtifacts) *gin.Engine {
	return newTestRouterWithMirror(store, arts, nil)
}

func newTestRouterWithMirror(store *fakeStore, arts *fakeArtifacts, mirror MirrorStore) *gin.Engine {
	h := NewHandler(store, arts, mirror, nil, nil, nil, testApp, zap.NewNop())
	requireKey := RequireEditKey(store)

	r := gin.New()
	r.POST("/events", h.Create)
	r.GET("/events/:id", h.GetByID)
	r.PATCH("/events/:id", requireKey, h.Update)
	r.DELETE("/events/:id", requireKey, h.Delete)
	r.PUT("/events/:id/urgent", requireKey, h.SetUrgent)
	r.GET("/events/:id/stats", requireKey, h.Stats)
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer, out interface{}) {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, body.String())
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func doRequest(r *gin.Engine, method, path, body, editKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if editKey != "" {
		req.Header.Set(HeaderEditKey, editKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedEvent(t *testing.T, store *fakeStore, editKey string) *models.Event {
	t.Helper()
	hash, err := utils.HashEditKey(editKey)
	if err != nil {
		t.Fatalf("hash edit key: %v", err)
	}
	e := &models.Event{
		Title:       "Launch Party",
		Content:     "# Welcome\n\nDoors open at 7pm.",
		IsPublic:    true,
		EditKeyHash: hash,
	}
	if err := store.Create(context.Background(), e); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return e
}

func TestCreateEvent(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedTitle  string
	}{
		{
			name:           "full body",
			body:           `{"title":"Launch Party","content":"# Welcome"}`,
			expectedStatus: http.StatusCreated,
			expectedTitle:  "Launch Party",
		},
		{
			name:           "title defaulted",
			body:           `{"content":"# Welcome"}`,
			expectedStatus: http.StatusCreated,
			expectedTitle:  models.DefaultTitle,
		},
		{
			name:           "missing content",
			body:           `{"title":"No content"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid json",
			body:           `{"title":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			arts := newFakeArtifacts()
			r := newTestRouter(store, arts)

			w := doRequest(r, http.MethodPost, "/events", tt.body, "")
			if w.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.expectedStatus, w.Body.String())
			}
			if tt.expectedStatus != http.StatusCreated {
				return
			}

			var resp CreateResponse
			decodeEnvelope(t, w.Body, &resp)
			if resp.Event.Title != tt.expectedTitle {
				t.Errorf("title = %q, want %q", resp.Event.Title, tt.expectedTitle)
			}
			if resp.EditKey == "" {
				t.Errorf("edit key missing from create response")
			}
			wantURL := "https://flyer.example.com/p/" + resp.Event.ID.String()
			if resp.PageURL != wantURL {
				t.Errorf("page url = %q, want %q", resp.PageURL, wantURL)
			}
			if arts.get(resp.Event.ID.String()) == nil {
				t.Errorf("qr artifact not written at creation")
			}
		})
	}
}

func TestGetEventAfterCreate(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, newFakeArtifacts())

	w := doRequest(r, http.MethodPost, "/events", `{"title":"T","content":"submitted body"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var created CreateResponse
	decodeEnvelope(t, w.Body, &created)

	w = doRequest(r, http.MethodGet, "/events/"+created.Event.ID.String(), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got models.Event
	decodeEnvelope(t, w.Body, &got)
	if got.Content != "submitted body" {
		t.Errorf("content = %q, want submitted content", got.Content)
	}
}

func TestGetEventNotFound(t *testing.T) {
	r := newTestRouter(newFakeStore(), newFakeArtifacts())

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{name: "unknown id", path: "/events/" + uuid.NewString(), expectedStatus: http.StatusNotFound},
		{name: "malformed id", path: "/events/not-a-uuid", expectedStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodGet, tt.path, "", "")
			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}
		})
	}
}

func TestUpdateEvent(t *testing.T) {
	const editKey = "correct-horse-battery-staple"

	tests := []struct {
		name           string
		key            string
		body           string
		expectedStatus int
	}{
		{
			name:           "content replaced",
			key:            editKey,
			body:           `{"content":"## New schedule"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing key",
			key:            "",
			body:           `{"content":"x"}`,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong key",
			key:            "wrong",
			body:           `{"content":"x"}`,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "empty content rejected",
			key:            editKey,
			body:           `{"content":""}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			r := newTestRouter(store, newFakeArtifacts())
			e := seedEvent(t, store, editKey)

			w := doRequest(r, http.MethodPatch, "/events/"+e.ID.String(), tt.body, tt.key)
			if w.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.expectedStatus, w.Body.String())
			}

			got, err := store.GetByID(context.Background(), e.ID)
			if err != nil {
				t.Fatalf("get after update: %v", err)
			}
			if tt.expectedStatus == http.StatusOK {
				if got.Content != "## New schedule" {
					t.Errorf("content = %q, update not applied", got.Content)
				}
			} else if got.Content != e.Content {
				t.Errorf("content mutated by rejected request")
			}
		})
	}
}

func TestUpdateEventUnknownID(t *testing.T) {
	r := newTestRouter(newFakeStore(), newFakeArtifacts())
	w := doRequest(r, http.MethodPatch, "/events/"+uuid.NewString(), `{"content":"x"}`, "any")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestQRArtifactStableAcrossUpdates(t *testing.T) {
	const editKey = "correct-horse-battery-staple"
	store := newFakeStore()
	arts := newFakeArtifacts()
	r := newTestRouter(store, arts)

	w := doRequest(r, http.MethodPost, "/events", `{"title":"T","content":"v1"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var created CreateResponse
	decodeEnvelope(t, w.Body, &created)
	id := created.Event.ID.String()
	original := arts.get(id)
	if original == nil {
		t.Fatalf("no qr artifact after create")
	}

	// Updates must never touch the QR artifact: the printed code encodes the
	// stable page URL only.
	hash, _ := utils.HashEditKey(editKey)
	store.mu.Lock()
	store.events[created.Event.ID].EditKeyHash = hash
	store.mu.Unlock()
	for _, content := range []string{"v2", "v3", "v4"} {
		w = doRequest(r, http.MethodPatch, "/events/"+id, `{"content":"`+content+`"}`, editKey)
		if w.Code != http.StatusOK {
			t.Fatalf("update status = %d", w.Code)
		}
	}

	if !bytes.Equal(arts.get(id), original) {
		t.Errorf("qr artifact changed across updates")
	}
}

func TestSetUrgent(t *testing.T) {
	const editKey = "correct-horse-battery-staple"
	store := newFakeStore()
	r := newTestRouter(store, newFakeArtifacts())
	e := seedEvent(t, store, editKey)

	w := doRequest(r, http.MethodPut, "/events/"+e.ID.String()+"/urgent", `{"message":"Venue changed!"}`, editKey)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	got, _ := store.GetByID(context.Background(), e.ID)
	if got.UrgentMessage != "Venue changed!" {
		t.Errorf("urgent message = %q", got.UrgentMessage)
	}

	// Empty message clears the banner.
	w = doRequest(r, http.MethodPut, "/events/"+e.ID.String()+"/urgent", `{"message":""}`, editKey)
	if w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}
	got, _ = store.GetByID(context.Background(), e.ID)
	if got.UrgentMessage != "" {
		t.Errorf("urgent message not cleared: %q", got.UrgentMessage)
	}
}

func TestDeleteEvent(t *testing.T) {
	const editKey = "correct-horse-battery-staple"
	store := newFakeStore()
	arts := newFakeArtifacts()
	r := newTestRouter(store, arts)
	e := seedEvent(t, store, editKey)
	_ = arts.Write(e.ID.String(), []byte("png"))

	w := doRequest(r, http.MethodDelete, "/events/"+e.ID.String(), "", editKey)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if _, err := store.GetByID(context.Background(), e.ID); err != models.ErrNotFound {
		t.Errorf("event still present after delete")
	}
	if arts.get(e.ID.String()) != nil {
		t.Errorf("qr artifact not removed on delete")
	}
}

func TestDeleteEventRemovesMirror(t *testing.T) {
	const editKey = "correct-horse-battery-staple"
	store := newFakeStore()
	mirror := &fakeMirror{}
	r := newTestRouterWithMirror(store, newFakeArtifacts(), mirror)
	e := seedEvent(t, store, editKey)
	store.mu.Lock()
	store.events[e.ID].QRKey = "qr/" + e.ID.String() + ".png"
	store.mu.Unlock()

	w := doRequest(r, http.MethodDelete, "/events/"+e.ID.String(), "", editKey)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	if len(mirror.deleted) != 1 || mirror.deleted[0] != "qr/"+e.ID.String()+".png" {
		t.Errorf("mirrored artifact not deleted, got %v", mirror.deleted)
	}
}

func TestStats(t *testing.T) {
	const editKey = "correct-horse-battery-staple"
	store := newFakeStore()
	r := newTestRouter(store, newFakeArtifacts())
	e := seedEvent(t, store, editKey)
	store.mu.Lock()
	store.events[e.ID].ViewCount = 42
	store.mu.Unlock()

	w := doRequest(r, http.MethodGet, "/events/"+e.ID.String()+"/stats", "", editKey)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var stats struct {
		Views       int64 `json:"views"`
		LiveViewers int   `json:"live_viewers"`
	}
	decodeEnvelope(t, w.Body, &stats)
	if stats.Views != 42 {
		t.Errorf("views = %d, want 42", stats.Views)
	}
	if stats.LiveViewers != 0 {
		t.Errorf("live viewers = %d, want 0", stats.LiveViewers)
	}
}
