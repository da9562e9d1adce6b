package handlers

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/isdelr/intake-api/internal/apperr"
	"github.com/isdelr/intake-api/internal/models"
	"github.com/isdelr/intake-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClientService struct {
	services.ClientServiceProvider
	eventURI, inviteeURI string
	result               services.IntakeResult
	err                  error
}

func (f *fakeClientService) AddNewClient(_ context.Context, eventURI, inviteeURI string) (services.IntakeResult, error) {
	f.eventURI, f.inviteeURI = eventURI, inviteeURI
	return f.result, f.err
}

const inviteeCreated = `{"event":"invitee.created","payload":{"event":"https://api.example/ev/1","uri":"https://api.example/ev/1/invitees/2"}}`

func postWebhook(h *WebhookHandler, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/scheduling", strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.Scheduling(rec, req)
	return rec
}

func TestWebhookRunsIntake(t *testing.T) {
	svc := &fakeClientService{result: services.IntakeResult{
		Client:  models.Client{Email: "a@x.com", Status: models.FirstPhase},
		Created: true,
	}}
	rec := postWebhook(NewWebhookHandler(svc, ""), inviteeCreated, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "https://api.example/ev/1", svc.eventURI)
	assert.Equal(t, "https://api.example/ev/1/invitees/2", svc.inviteeURI)

	var res IntakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "clientAdded", res.SuccessType)
	assert.Equal(t, "a@x.com", res.Client.Email)

	svc.result.Created = false
	rec = postWebhook(NewWebhookHandler(svc, ""), inviteeCreated, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "clientUpdated", res.SuccessType)
}

func TestWebhookRejectsAndIgnores(t *testing.T) {
	t.Run("other events are ignored", func(t *testing.T) {
		svc := &fakeClientService{}
		rec := postWebhook(NewWebhookHandler(svc, ""), `{"event":"invitee.canceled"}`, nil)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Empty(t, svc.eventURI)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := postWebhook(NewWebhookHandler(&fakeClientService{}, ""), `{`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service errors keep their kind", func(t *testing.T) {
		svc := &fakeClientService{err: apperr.Wrap(apperr.FetchFailed, "Could not fetch meeting details", errors.New("timeout"))}
		rec := postWebhook(NewWebhookHandler(svc, ""), inviteeCreated, nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)

		var body ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, apperr.FetchFailed, body.Type)
	})
}

func TestWebhookSignature(t *testing.T) {
	key := "whsec"
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	svc := &fakeClientService{result: services.IntakeResult{Created: true}}
	h := NewWebhookHandler(svc, key)
	h.now = func() time.Time { return now }

	sign := func(ts time.Time, body string) http.Header {
		stamp := strconv.FormatInt(ts.Unix(), 10)
		mac := hex.EncodeToString(Sign([]byte(key), stamp, []byte(body)))
		return http.Header{SignatureHeader: {"t=" + stamp + ",v1=" + mac}}
	}

	assert.Equal(t, http.StatusCreated, postWebhook(h, inviteeCreated, sign(now, inviteeCreated)).Code)
	assert.Equal(t, http.StatusUnauthorized, postWebhook(h, inviteeCreated, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, postWebhook(h, inviteeCreated, sign(now, `{"event":"other"}`)).Code)
	assert.Equal(t, http.StatusUnauthorized, postWebhook(h, inviteeCreated, sign(now.Add(-time.Hour), inviteeCreated)).Code)
}
