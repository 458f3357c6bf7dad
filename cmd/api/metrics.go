package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/willjrcristo/storefront-billing/internal/service"
)

// Métricas registradas no registro padrão do Prometheus via promauto.
var (
	// http_requests_total conta as requisições por método, rota e status.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requisições HTTP recebidas.",
		},
		[]string{"method", "path", "code"},
	)

	// http_request_duration_seconds mede a latência das requisições.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duração das requisições HTTP em segundos.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "code"},
	)

	// stripe_webhook_events_total conta os eventos da Stripe pelo resultado da reconciliação.
	stripeWebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_webhook_events_total",
			Help: "Eventos de webhook da Stripe processados, por tipo e resultado.",
		},
		[]string{"type", "result"},
	)
)

// webhookMetrics implementa service.OutcomeRecorder sobre o contador acima.
type webhookMetrics struct{}

func (webhookMetrics) Record(eventType string, result service.Result) {
	stripeWebhookEvents.WithLabelValues(eventType, string(result)).Inc()
}

// prometheusMiddleware coleta contagem e latência de cada requisição.
func prometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Captura o status code escrito pelo handler.
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(ww.Status())

		// Padrão da rota (ex: /api/admin-track/*) em vez da URL, para não explodir a cardinalidade.
		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, statusCode).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, statusCode).Observe(duration)
	})
}
