package zoom

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/zoomfetch/internal/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *fakeAuth) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	auth := &fakeAuth{credType: CredentialUser}
	c := NewClient(auth, nil,
		WithBaseURL(srv.URL),
		WithRetryPolicy(testPolicy()),
	)
	return c, auth
}

func TestGetMeetingRecordingsFlattenedResponse(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meetings/123456789/recordings", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"uuid": "abc==", "id": 123456789, "topic": "Standup",
			"start_time": "2024-03-05T09:00:00Z",
			"recording_files": [{"id": "f1", "file_type": "audio_only", "file_extension": "M4A", "status": "completed"}]
		}`))
	}))

	instances, err := c.GetMeetingRecordings(t.Context(), "123456789")
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, "abc==", instances[0].UUID)
	assert.True(t, instances[0].Ready())
}

func TestGetMeetingRecordingsMultipleInstances(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meetings": [
			{"uuid": "a==", "start_time": "2024-01-01T10:00:00Z", "recording_files": [{"id": "f1"}]},
			{"uuid": "b==", "start_time": "2024-02-01T10:00:00Z", "recording_files": [{"id": "f2"}]}
		]}`))
	}))

	instances, err := c.GetMeetingRecordings(t.Context(), "123")
	require.NoError(t, err)
	assert.Len(t, instances, 2)
}

func TestGetMeetingRecordingsUUIDIsEncoded(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The raw, still-encoded path must carry the double-encoded UUID.
		assert.Contains(t, r.URL.EscapedPath(), "%252F")
		_, _ = w.Write([]byte(`{"uuid": "x", "recording_files": [{"id": "f1"}]}`))
	}))

	_, err := c.GetMeetingRecordings(t.Context(), "/ajXp112Qmuo==")
	require.NoError(t, err)
}

func TestGetMeetingRecordingsEmptyIsNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meetings": []}`))
	}))

	_, err := c.GetMeetingRecordings(t.Context(), "123")
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeRecordingNotFound))
}

func TestNotFoundMapsToCodedErrors(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code": 3001, "message": "does not exist"}`))
	}))

	_, err := c.GetPastMeeting(t.Context(), "abc==")
	assert.True(t, IsCode(err, CodeMeetingNotFound), "past_meetings 404 is a missing meeting")

	_, err = c.GetMeetingRecordings(t.Context(), "123")
	assert.True(t, IsCode(err, CodeRecordingNotFound), "recordings 404 is a missing recording")
}

func TestForbiddenMapsToPermissionDenied(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := c.GetCurrentUser(t.Context())
	assert.True(t, IsCode(err, CodePermissionDenied))
}

func TestRetryOnServerErrorThenSuccess(t *testing.T) {
	attempts := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id": "u1", "email": "a@example.com"}`))
	}))

	u, err := c.GetCurrentUser(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "u1", u.ID)
}

func TestRateLimitExhaustsToCodedError(t *testing.T) {
	attempts := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message": "slow down"}`))
	}))

	_, err := c.GetCurrentUser(t.Context())
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, IsCode(err, CodeRateLimited))
}

func TestUnauthorizedRefreshesOnceAndReplays(t *testing.T) {
	attempts := 0
	c, auth := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id": "u1"}`))
	}))

	u, err := c.GetCurrentUser(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, auth.invalidations)
	assert.Equal(t, "u1", u.ID)
}

func TestUnauthorizedTwiceIsAuthFailed(t *testing.T) {
	c, auth := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.GetCurrentUser(t.Context())
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeAuthFailed))
	assert.Equal(t, 1, auth.invalidations, "only one reactive refresh")
}

func TestListUserRecordingsQueryParams(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/recordings", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "300", q.Get("page_size"))
		assert.Equal(t, "2024-01-01", q.Get("from"))
		assert.Equal(t, "2024-01-30", q.Get("to"))
		assert.Equal(t, "tok-1", q.Get("next_page_token"))
		_, _ = w.Write([]byte(`{"meetings": [{"uuid": "a=="}], "next_page_token": ""}`))
	}))

	page, err := c.ListUserRecordings(t.Context(), "me", "2024-01-01", "2024-01-30", "tok-1")
	require.NoError(t, err)
	assert.Len(t, page.Meetings, 1)
}

func TestListAccountRecordingsPath(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/acct-1/recordings", r.URL.Path)
		_, _ = w.Write([]byte(`{"meetings": []}`))
	}))

	_, err := c.ListAccountRecordings(t.Context(), "acct-1", "2024-01-01", "2024-01-30", "")
	require.NoError(t, err)
}

func TestListAllParticipantsFollowsPagination(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("next_page_token") == "" {
			_, _ = w.Write([]byte(`{"participants": [{"name": "Alice"}], "next_page_token": "p2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"participants": [{"name": "Bob"}], "next_page_token": ""}`))
	}))

	participants, err := c.ListAllParticipants(t.Context(), "abc==")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, participants, 2)
	assert.Equal(t, "Alice", participants[0].Name)
	assert.Equal(t, "Bob", participants[1].Name)
}

func TestServiceAuthCachesToken(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "account_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "acct-1", r.Form.Get("account_id"))
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"access_token": "svc-token", "expires_in": 3600, "scope": "account:read:admin recording:read"}`))
	}))
	t.Cleanup(srv.Close)

	auth := NewServiceAuth("acct-1", "client-id", "client-secret", nil)
	auth.SetTokenURL(srv.URL)

	tok, err := auth.AccessToken(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "svc-token", tok)
	assert.Equal(t, []string{"account:read:admin", "recording:read"}, auth.Scopes())

	_, err = auth.AccessToken(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, fetches, "second call served from cache")

	require.NoError(t, auth.Invalidate(t.Context()))
	_, err = auth.AccessToken(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, fetches, "invalidate forces a refetch")
}

func TestServiceAuthErrorSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"reason": "Invalid client_id or client_secret"}`))
	}))
	t.Cleanup(srv.Close)

	auth := NewServiceAuth("acct-1", "bad", "bad", nil)
	auth.SetTokenURL(srv.URL)

	_, err := auth.AccessToken(t.Context())
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeAuthFailed))
	assert.Contains(t, err.Error(), "Invalid client_id")
}
