package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custodyModels "lifeconnect/internal/custody/models"
	donorModels "lifeconnect/internal/donor/models"
	"lifeconnect/internal/events"
	jwttoken "lifeconnect/internal/jwt_token"
	organModels "lifeconnect/internal/organ/models"
	"lifeconnect/internal/platform/config"
	"lifeconnect/internal/platform/metrics"
	"lifeconnect/internal/stats"
	"lifeconnect/pkg/testutil"
)

const (
	testSigningKey = "app-test-signing-key"
	testIssuer     = "lifeconnect-test"
)

func testConfig() config.Server {
	return config.Server{
		JWTSigningKey: testSigningKey,
		JWTIssuer:     testIssuer,
		TxTimeout:     5 * time.Second,
		Limits: config.RateLimitConfig{
			ReadRequests:  1000,
			WriteRequests: 1000,
			Window:        time.Minute,
		},
	}
}

type client struct {
	t       *testing.T
	handler http.Handler
	tokens  *jwttoken.JWTService
}

func newClient(t *testing.T, cfg config.Server) *client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := newApp(cfg, infra{}, logger, metrics.NewWithRegisterer(prometheus.NewRegistry()))
	return &client{t: t, handler: a.router, tokens: jwttoken.NewJWTService(testSigningKey, testIssuer)}
}

func (c *client) do(method, path, caller, role string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	req := testutil.NewJSONRequest(c.t, method, path, body)
	if caller != "" {
		token, err := c.tokens.GenerateCallerToken(caller, []string{role}, time.Hour)
		require.NoError(c.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.DoRequest(c.handler, req)
}

func TestOrganJourneyOverHTTP(t *testing.T) {
	c := newClient(t, testConfig())

	rr := c.do(http.MethodPost, "/donors", "donor-1", "donor", map[string]any{
		"name":              "Ada",
		"age":               34,
		"blood_type":        "O+",
		"organ_types":       []string{"heart", "kidney"},
		"health_record_ref": "bafyhealthcard",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = c.do(http.MethodPut, "/donors/me/consent", "donor-1", "donor", map[string]any{"consent": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = c.do(http.MethodPost, "/recipients", "recipient-1", "recipient", map[string]any{
		"name":         "Grace",
		"blood_type":   "O+",
		"organ_needed": "heart",
		"urgency":      90,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = c.do(http.MethodPost, "/organs", "hospital-a", "hospital", map[string]any{
		"donor_id":        "donor-1",
		"organ_type":      "heart",
		"viability_hours": 6,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	organ := testutil.UnmarshalResponse[organModels.Organ](t, rr)
	assert.EqualValues(t, 0, organ.ID)
	assert.Equal(t, organModels.StatusAvailable, organ.Status)

	rr = c.do(http.MethodPost, "/organs/0/match", "matcher-1", "matcher", map[string]any{
		"recipient_id": "recipient-1",
		"score":        87,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = c.do(http.MethodPost, "/organs/0/match", "matcher-1", "matcher", map[string]any{
		"recipient_id": "recipient-1",
		"score":        90,
	})
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_state_transition")

	rr = c.do(http.MethodPost, "/organs/0/transport", "courier-1", "transporter", map[string]any{
		"transport_doc_ref": "bafytransportplan",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = c.do(http.MethodPost, "/organs/0/custody/", "courier-1", "transporter", map[string]any{
		"kind":     "pickup",
		"location": "St. Mary's OR 3",
		"notes":    "sealed container 4C",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = c.do(http.MethodPost, "/organs/0/custody/", "courier-1", "transporter", map[string]any{
		"kind":     "delivery",
		"location": "General Hospital",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = c.do(http.MethodPost, "/organs/0/transplant", "hospital-b", "hospital", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	organ = testutil.UnmarshalResponse[organModels.Organ](t, rr)
	assert.Equal(t, organModels.StatusTransplanted, organ.Status)

	rr = c.do(http.MethodGet, "/organs/0/custody/", "auditor-1", "regulator", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var chain struct {
		Events []custodyModels.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &chain))
	require.Len(t, chain.Events, 2)
	assert.EqualValues(t, 0, chain.Events[0].Seq)
	assert.Equal(t, custodyModels.KindPickup, chain.Events[0].Kind)
	assert.EqualValues(t, 1, chain.Events[1].Seq)

	rr = c.do(http.MethodGet, "/stats", "auditor-1", "regulator", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	snap := testutil.UnmarshalResponse[stats.Snapshot](t, rr)
	assert.Equal(t, 1, snap.Donors)
	assert.Equal(t, 1, snap.Recipients)
	assert.Equal(t, 1, snap.OrgansByStatus[string(organModels.StatusTransplanted)])
	assert.Equal(t, 2, snap.CustodyPendingVerification)

	rr = c.do(http.MethodGet, "/recent-activity?action=organ_&limit=4", "auditor-1", "regulator", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	activity := testutil.UnmarshalResponse[stats.Activity](t, rr)
	require.Len(t, activity.Activities, 4)
	for i, name := range []events.Name{events.OrganTransplanted, events.OrganInTransit, events.OrganMatched, events.OrganRegistered} {
		assert.Equal(t, name, activity.Activities[i].Name)
		assert.EqualValues(t, 4-i, activity.Activities[i].Version)
	}

	rr = c.do(http.MethodGet, "/donors", "auditor-1", "regulator", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var donors struct {
		Donors []donorModels.Donor `json:"donors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &donors))
	require.Len(t, donors.Donors, 1)
	assert.True(t, donors.Donors[0].Consent)
}

func TestRoutesRequireCallerIdentity(t *testing.T) {
	c := newClient(t, testConfig())

	rr := c.do(http.MethodGet, "/organs", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = c.do(http.MethodPost, "/organs", "donor-1", "donor", map[string]any{
		"donor_id":        "donor-1",
		"organ_type":      "heart",
		"viability_hours": 6,
	})
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "unauthorized")
}

func TestWriteBudgetIsEnforcedPerCaller(t *testing.T) {
	cfg := testConfig()
	cfg.Limits.WriteRequests = 1
	c := newClient(t, cfg)

	body := map[string]any{"name": "Grace", "blood_type": "A-", "organ_needed": "kidney", "urgency": 10}
	rr := c.do(http.MethodPost, "/recipients", "recipient-1", "recipient", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = c.do(http.MethodPost, "/recipients", "recipient-1", "recipient", body)
	testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limited")
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	rr = c.do(http.MethodPost, "/recipients", "recipient-2", "recipient", body)
	assert.Equal(t, http.StatusCreated, rr.Code, "budgets are per caller")
}

func TestHealthWithoutInfrastructure(t *testing.T) {
	c := newClient(t, testConfig())
	rr := c.do(http.MethodGet, "/healthz", "", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
