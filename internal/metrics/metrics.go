package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "counseling"

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	appointmentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointments",
			Name:      "transitions_total",
			Help:      "Appointment status changes, including creation.",
		},
		[]string{"status"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointments",
			Name:      "conflicts_total",
			Help:      "Bookings rejected because the slot was taken.",
		},
	)

	wishEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wishes",
			Name:      "events_total",
			Help:      "Wish wall events by kind.",
		},
		[]string{"event"},
	)

	janitorRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "janitor",
			Name:      "removed_resources_total",
			Help:      "Invalid static resources purged.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		appointmentTransitions,
		bookingConflicts,
		wishEvents,
		janitorRemoved,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RequestStarted() { httpInFlight.Inc() }

func RequestFinished(method, route string, status int, elapsed time.Duration) {
	httpInFlight.Dec()
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func AppointmentTransition(status string) { appointmentTransitions.WithLabelValues(status).Inc() }

func BookingConflict() { bookingConflicts.Inc() }

func WishEvent(event string) { wishEvents.WithLabelValues(event).Inc() }

func JanitorRemoved(n int) { janitorRemoved.Add(float64(n)) }
