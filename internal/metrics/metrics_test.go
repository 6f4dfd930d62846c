package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestCounters(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/wishes", "200"))

	RequestStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(httpInFlight))
	RequestFinished("GET", "/api/wishes", http.StatusOK, 10*time.Millisecond)

	assert.Equal(t, 0.0, testutil.ToFloat64(httpInFlight))
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/wishes", "200")))
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(bookingConflicts)
	BookingConflict()
	assert.Equal(t, before+1, testutil.ToFloat64(bookingConflicts))

	AppointmentTransition("CONFIRMED")
	assert.GreaterOrEqual(t, testutil.ToFloat64(appointmentTransitions.WithLabelValues("CONFIRMED")), 1.0)
}

func TestHandlerServesRegistry(t *testing.T) {
	WishEvent("like")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "counseling_wishes_events_total")
}
