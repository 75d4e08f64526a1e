package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandlerLabelsByPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/photos/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	handler := InstrumentHandler(mux)

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET /api/photos/{id}", "404"))
	for _, id := range []string{"1", "2", "3"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/photos/"+id, nil))
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET /api/photos/{id}", "404"))
	assert.Equal(t, 3.0, after-before)
}

func TestRecordCounters(t *testing.T) {
	before := testutil.ToFloat64(reactions.WithLabelValues("added"))
	RecordReaction("added")
	assert.Equal(t, 1.0, testutil.ToFloat64(reactions.WithLabelValues("added"))-before)

	beforeCleanup := testutil.ToFloat64(cleanupRemoved.WithLabelValues("sessions"))
	RecordCleanup("sessions", 0)
	RecordCleanup("sessions", 4)
	assert.Equal(t, 4.0, testutil.ToFloat64(cleanupRemoved.WithLabelValues("sessions"))-beforeCleanup)
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordInvitation("sent")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "familyphotos_family_invitations_total"))
}
