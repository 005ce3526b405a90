package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wastelog/internal/identity"
	"github.com/roach88/wastelog/internal/metrics"
	"github.com/roach88/wastelog/internal/service"
	"github.com/roach88/wastelog/internal/store"
	"github.com/roach88/wastelog/internal/testutil"
	"github.com/roach88/wastelog/internal/waste"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newServer(t *testing.T, opts Options) *Server {
	t.Helper()
	st := store.NewMemory(store.DefaultLimits())
	t.Cleanup(func() { st.Close() })

	svc := service.New(st,
		testutil.NewDeterministicClock(1000, 100),
		identity.ContextProvider{Fallback: "fallback"},
		testutil.NewSequentialIDs("e"),
		service.WithLogger(testutil.DiscardLogger()),
		service.WithMetrics(opts.Metrics),
	)
	if opts.Logger == nil {
		opts.Logger = testutil.DiscardLogger()
	}
	return New(svc, opts)
}

func do(t *testing.T, s *Server, method, path, body string, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeEntry(t *testing.T, data []byte) waste.Entry {
	t.Helper()
	var e waste.Entry
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

func decodeError(t *testing.T, data []byte) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(data, &body))
	return body.Error
}

const plastic = `{"wasteType":"plastic","quantity":100,"location":"siteA"}`

func TestCreateAndGet(t *testing.T) {
	s := newServer(t, Options{DefaultIdentity: "alice"})

	resp, body := do(t, s, http.MethodPost, "/api/waste-entries", plastic)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Equal(t, "/api/waste-entries/e-1", resp.Header.Get("Location"))

	created := decodeEntry(t, body)
	assert.Equal(t, "e-1", created.ID)
	assert.Equal(t, waste.Identity("alice"), created.Owner)
	assert.False(t, created.Verified)
	assert.False(t, created.RecycledQuantity.IsSome())

	digest, err := waste.Digest(created)
	require.NoError(t, err)
	assert.Equal(t, `"`+digest+`"`, resp.Header.Get("ETag"))

	resp, body = do(t, s, http.MethodGet, "/api/waste-entries/e-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created, decodeEntry(t, body))

	resp, _ = do(t, s, http.MethodGet, "/api/waste-entries/e-1", "", "If-None-Match", `"`+digest+`"`)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
}

func TestErrorStatuses(t *testing.T) {
	s := newServer(t, Options{})
	resp, _ := do(t, s, http.MethodPost, "/api/waste-entries", plastic)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"validation", http.MethodPost, "/api/waste-entries", `{"wasteType":"","quantity":1,"location":"x"}`, 400, "VALIDATION_ERROR"},
		{"missing quantity", http.MethodPost, "/api/waste-entries", `{"wasteType":"a","location":"x"}`, 400, "VALIDATION_ERROR"},
		{"bad json", http.MethodPost, "/api/waste-entries", `{"quantity":"lots"`, 400, "BAD_REQUEST"},
		{"not found", http.MethodGet, "/api/waste-entries/nope", "", 404, "NOT_FOUND"},
		{"delete not found", http.MethodDelete, "/api/waste-entries/nope", "", 404, "NOT_FOUND"},
		{"verify not found", http.MethodPost, "/api/waste-entries/nope/verify", "", 404, "NOT_FOUND"},
		{"over recycle", http.MethodPost, "/api/waste-entries/e-1/recycle", `{"recycledQuantity":101}`, 409, "OVER_RECYCLE"},
		{"recycle negative", http.MethodPost, "/api/waste-entries/e-1/recycle", `{"recycledQuantity":-1}`, 400, "VALIDATION_ERROR"},
		{"recycle missing amount", http.MethodPost, "/api/waste-entries/e-1/recycle", `{}`, 400, "VALIDATION_ERROR"},
		{"unknown route", http.MethodGet, "/api/nothing", "", 404, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.Equal(t, tt.code, decodeError(t, body).Code)
		})
	}
}

func TestErrorBodyCarriesField(t *testing.T) {
	s := newServer(t, Options{})

	_, body := do(t, s, http.MethodPost, "/api/waste-entries", `{"wasteType":"a","quantity":1,"location":" "}`)
	detail := decodeError(t, body)
	assert.Equal(t, "location", detail.Field)
	assert.NotEmpty(t, detail.Message)
}

func TestStorageFailureStatus(t *testing.T) {
	s := newServer(t, Options{})

	long := strings.Repeat("x", 2000)
	resp, body := do(t, s, http.MethodPost, "/api/waste-entries",
		`{"wasteType":"plastic","quantity":1,"location":"`+long+`"}`)
	assert.Equal(t, http.StatusInsufficientStorage, resp.StatusCode)
	assert.Equal(t, "STORAGE_FAILURE", decodeError(t, body).Code)
}

func TestLifecycle(t *testing.T) {
	s := newServer(t, Options{})

	resp, _ := do(t, s, http.MethodPost, "/api/waste-entries", plastic)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = do(t, s, http.MethodPost, "/api/waste-entries", `{"wasteType":"glass","quantity":5,"location":"siteB"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, s, http.MethodPost, "/api/waste-entries/e-1/recycle", `{"recycledQuantity":40}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	e := decodeEntry(t, body)
	assert.Equal(t, 60.0, e.Quantity)
	assert.Equal(t, waste.Some(40.0), e.RecycledQuantity)

	resp, body = do(t, s, http.MethodPost, "/api/waste-entries/e-1/verify", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeEntry(t, body).Verified)

	resp, body = do(t, s, http.MethodPut, "/api/waste-entries/e-1",
		`{"wasteType":"plastic","quantity":50,"location":"siteC","isVerified":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	upd := decodeEntry(t, body)
	assert.True(t, upd.Verified, "update cannot clear verification")
	assert.Equal(t, "siteC", upd.Location)
	assert.Equal(t, waste.Some(40.0), upd.RecycledQuantity)

	resp, body = do(t, s, http.MethodGet, "/api/waste-entries", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []waste.Entry
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Len(t, all, 2)

	resp, body = do(t, s, http.MethodGet, "/api/waste-entries/verified", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var verified []waste.Entry
	require.NoError(t, json.Unmarshal(body, &verified))
	require.Len(t, verified, 1)
	assert.Equal(t, "e-1", verified[0].ID)

	resp, body = do(t, s, http.MethodGet, "/api/waste-entries/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"entries":2,"verified":1,"outstandingQuantity":55,"recycledQuantity":40}`, string(body))

	resp, body = do(t, s, http.MethodDelete, "/api/waste-entries/e-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, upd, decodeEntry(t, body))

	resp, _ = do(t, s, http.MethodGet, "/api/waste-entries/e-1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEmptyListsAreArrays(t *testing.T) {
	s := newServer(t, Options{})

	_, body := do(t, s, http.MethodGet, "/api/waste-entries", "")
	assert.JSONEq(t, `[]`, string(body))
	_, body = do(t, s, http.MethodGet, "/api/waste-entries/verified", "")
	assert.JSONEq(t, `[]`, string(body))
}

func TestJWTAuth(t *testing.T) {
	issuer := identity.NewIssuer(testSecret, time.Hour)
	s := newServer(t, Options{Issuer: issuer, DefaultIdentity: "ignored"})

	resp, body := do(t, s, http.MethodGet, "/api/waste-entries", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, body).Code)

	resp, _ = do(t, s, http.MethodGet, "/api/waste-entries", "", "Authorization", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, s, http.MethodGet, "/api/waste-entries", "", "Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	other := identity.NewIssuer("ffffffffffffffffffffffffffffffff", time.Hour)
	forged, err := other.Issue("mallory")
	require.NoError(t, err)
	resp, _ = do(t, s, http.MethodGet, "/api/waste-entries", "", "Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := issuer.Issue("dana")
	require.NoError(t, err)
	resp, body = do(t, s, http.MethodPost, "/api/waste-entries", plastic, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Equal(t, waste.Identity("dana"), decodeEntry(t, body).Owner)

	resp, _ = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health check is public")
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	s := newServer(t, Options{Metrics: m})

	do(t, s, http.MethodPost, "/api/waste-entries", plastic)
	do(t, s, http.MethodGet, "/api/waste-entries/missing", "")

	resp, body := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `wastelog_operations_total{op="create",outcome="ok"} 1`)
	assert.Contains(t, string(body), `wastelog_operations_total{op="get",outcome="NOT_FOUND"} 1`)
}

func TestMetricsEndpointDisabled(t *testing.T) {
	s := newServer(t, Options{})

	resp, _ := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 400, StatusFor(waste.KindValidation))
	assert.Equal(t, 404, StatusFor(waste.KindNotFound))
	assert.Equal(t, 409, StatusFor(waste.KindOverRecycle))
	assert.Equal(t, 409, StatusFor(waste.KindIdentityCollision))
	assert.Equal(t, 507, StatusFor(waste.KindStorageFailure))
	assert.Equal(t, 500, StatusFor(""))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "UNAUTHORIZED", statusCode(401))
	assert.Equal(t, "NOT_FOUND", statusCode(404))
	assert.Equal(t, "INTERNAL_SERVER_ERROR", statusCode(500))
}
