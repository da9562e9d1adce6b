package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/isdelr/intake-api/internal/apperr"
	"github.com/isdelr/intake-api/internal/models"
	"github.com/isdelr/intake-api/internal/services"
	"github.com/rs/zerolog/log"
)

const (
	// EventInviteeCreated is the only webhook event that triggers intake.
	EventInviteeCreated = "invitee.created"

	// SignatureHeader carries "t=<unix>,v1=<hex hmac-sha256>" when a signing key is configured.
	SignatureHeader = "Calendly-Webhook-Signature"

	maxWebhookBody     = 1 << 20
	signatureTolerance = 3 * time.Minute
)

var errBadSignature = errors.New("webhook signature mismatch")

// WebhookPayload is the body the scheduling provider posts for booking events.
type WebhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Event string `json:"event"`
		URI   string `json:"uri"`
	} `json:"payload"`
}

// IntakeResponse is returned after a successful webhook intake.
type IntakeResponse struct {
	SuccessType string        `json:"successType"`
	Client      models.Client `json:"client"`
}

// WebhookHandler turns scheduling-provider webhooks into client intake.
type WebhookHandler struct {
	service    services.ClientServiceProvider
	signingKey []byte
	now        func() time.Time
}

// NewWebhookHandler creates a new WebhookHandler. An empty signingKey disables signature checks.
func NewWebhookHandler(service services.ClientServiceProvider, signingKey string) *WebhookHandler {
	return &WebhookHandler{service: service, signingKey: []byte(signingKey), now: time.Now}
}

// Scheduling handles POST /webhooks/scheduling.
func (h *WebhookHandler) Scheduling(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, apperr.Invalid("Could not read request body"))
		return
	}
	if err := h.verify(r.Header.Get(SignatureHeader), body); err != nil {
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Rejected scheduling webhook")
		respondError(w, apperr.Wrap(apperr.InvalidToken, "Invalid webhook signature", err))
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(w, apperr.Invalid("Invalid request body"))
		return
	}
	if payload.Event != EventInviteeCreated {
		log.Debug().Str("event", payload.Event).Msg("Ignoring scheduling webhook")
		respondJSON(w, http.StatusAccepted, map[string]string{"status": "ignored", "event": payload.Event})
		return
	}

	result, err := h.service.AddNewClient(r.Context(), payload.Payload.Event, payload.Payload.URI)
	if err != nil {
		respondError(w, err)
		return
	}

	res := IntakeResponse{SuccessType: "clientUpdated", Client: result.Client}
	status := http.StatusOK
	if result.Created {
		res.SuccessType = "clientAdded"
		status = http.StatusCreated
	}
	respondJSON(w, status, res)
}

func (h *WebhookHandler) verify(header string, body []byte) error {
	if len(h.signingKey) == 0 {
		return nil
	}
	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return errBadSignature
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errBadSignature
	}
	if age := h.now().Sub(time.Unix(unix, 0)); age > signatureTolerance || age < -signatureTolerance {
		return errBadSignature
	}
	given, err := hex.DecodeString(sig)
	if err != nil {
		return errBadSignature
	}
	if !hmac.Equal(given, Sign(h.signingKey, ts, body)) {
		return errBadSignature
	}
	return nil
}

// Sign computes the v1 webhook signature of body at timestamp ts.
func Sign(key []byte, ts string, body []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}
