package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flashkids/internal/credentials"
	"flashkids/internal/models"
	"flashkids/internal/session"
)

type memProfiles struct{ profiles []models.Profile }

func (m *memProfiles) List() ([]models.Profile, error) { return m.profiles, nil }
func (m *memProfiles) Save(p models.Profile) error {
	for i := range m.profiles {
		if m.profiles[i].ID == p.ID {
			m.profiles[i] = p
			return nil
		}
	}
	m.profiles = append(m.profiles, p)
	return nil
}
func (m *memProfiles) Delete(id string) error {
	for i := range m.profiles {
		if m.profiles[i].ID == id {
			m.profiles = append(m.profiles[:i], m.profiles[i+1:]...)
			break
		}
	}
	return nil
}

type memProgress struct{}

func (memProgress) ForProfile(string) ([]models.LevelProgress, error) { return nil, nil }
func (memProgress) Save(string, models.LevelProgress) error           { return nil }
func (memProgress) DeleteForProfile(string) error                     { return nil }

type memSettings struct{ cfg *models.Settings }

func (m *memSettings) Load() (models.Settings, error) {
	if m.cfg == nil {
		return models.DefaultSettings(), nil
	}
	return *m.cfg, nil
}
func (m *memSettings) Save(s models.Settings) error {
	m.cfg = &s
	return nil
}

type memUsage struct{ usage models.DailyUsage }

func (m *memUsage) Load() (models.DailyUsage, error) { return m.usage, nil }
func (m *memUsage) Save(u models.DailyUsage) error {
	m.usage = u
	return nil
}

func newTestTracker(t *testing.T) *session.Tracker {
	t.Helper()

	tracker := session.New(&memProfiles{}, memProgress{}, &memSettings{}, &memUsage{},
		credentials.NewMemory(), zap.NewNop())
	require.NoError(t, tracker.LoadProfiles())
	return tracker
}

func TestRequireParentOpenWithoutPIN(t *testing.T) {
	tracker := newTestTracker(t)
	mw := NewMiddleware(tracker, zap.NewNop(), []byte("test-signing-key"), time.Minute)

	called := false
	handler := mw.RequireParent(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("DELETE", "/api/profiles/abc", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireParentOpenWhenPINRequiredButNoneStored(t *testing.T) {
	// Settings restored from another device can claim the gate is on while
	// this device holds no PIN hash; no verification could ever succeed, so
	// the gate must stay open for a parent to set a fresh PIN.
	cfg := models.DefaultSettings()
	cfg.PINRequired = true
	tracker := session.New(&memProfiles{}, memProgress{}, &memSettings{cfg: &cfg}, &memUsage{},
		credentials.NewMemory(), zap.NewNop())
	require.NoError(t, tracker.LoadProfiles())
	mw := NewMiddleware(tracker, zap.NewNop(), []byte("test-signing-key"), time.Minute)

	called := false
	handler := mw.RequireParent(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("POST", "/api/pin", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireParentBlocksWithoutSession(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.SetPIN("1234"))
	mw := NewMiddleware(tracker, zap.NewNop(), []byte("test-signing-key"), time.Minute)

	handler := mw.RequireParent(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("DELETE", "/api/profiles/abc", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireParentAcceptsIssuedSession(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.SetPIN("1234"))
	mw := NewMiddleware(tracker, zap.NewNop(), []byte("test-signing-key"), time.Minute)

	// Issue a session cookie the way a PIN verification would
	issueRec := httptest.NewRecorder()
	require.NoError(t, mw.IssueParentSession(issueRec))
	cookies := issueRec.Result().Cookies()
	require.NotEmpty(t, cookies)

	called := false
	handler := mw.RequireParent(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest("DELETE", "/api/profiles/abc", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireParentRejectsForgedToken(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.SetPIN("1234"))
	mw := NewMiddleware(tracker, zap.NewNop(), []byte("test-signing-key"), time.Minute)

	// A token signed with a different key must be rejected
	other := NewMiddleware(tracker, zap.NewNop(), []byte("attacker-key"), time.Minute)
	issueRec := httptest.NewRecorder()
	require.NoError(t, other.IssueParentSession(issueRec))
	cookies := issueRec.Result().Cookies()
	require.NotEmpty(t, cookies)

	handler := mw.RequireParent(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest("DELETE", "/api/profiles/abc", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireParentRejectsExpiredToken(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.SetPIN("1234"))
	mw := NewMiddleware(tracker, zap.NewNop(), []byte("test-signing-key"), -time.Minute)

	issueRec := httptest.NewRecorder()
	require.NoError(t, mw.IssueParentSession(issueRec))
	cookies := issueRec.Result().Cookies()
	require.NotEmpty(t, cookies)

	handler := mw.RequireParent(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest("DELETE", "/api/profiles/abc", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitPIN(t *testing.T) {
	tracker := newTestTracker(t)
	mw := NewMiddleware(tracker, zap.NewNop(), []byte("test-signing-key"), time.Minute)

	handler := mw.RateLimitPIN(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var last int
	for i := 0; i < pinAttemptsPerMinute+1; i++ {
		req := httptest.NewRequest("POST", "/api/pin/verify", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		handler(rec, req)
		last = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, last)
}
