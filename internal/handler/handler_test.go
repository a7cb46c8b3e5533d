package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/endpoint-balancer/internal/endpoint"
	"github.com/angeloszaimis/endpoint-balancer/internal/handler"
	"github.com/angeloszaimis/endpoint-balancer/internal/healthcheck"
	"github.com/angeloszaimis/endpoint-balancer/internal/metrics"
	"github.com/angeloszaimis/endpoint-balancer/internal/registry"
	"github.com/angeloszaimis/endpoint-balancer/internal/service"
	"github.com/angeloszaimis/endpoint-balancer/internal/strategy"
	"github.com/angeloszaimis/endpoint-balancer/pkg/logger"
)

type failingService struct{}

func (failingService) Query(context.Context) (service.Snapshot, error) {
	return service.Snapshot{}, &service.InternalError{Message: service.MsgQueryFailed, Err: errors.New("registry unavailable")}
}

func (failingService) Register(context.Context, service.RegisterRequest) (endpoint.Endpoint, error) {
	return endpoint.Endpoint{}, &service.InternalError{Message: service.MsgRegisterFailed, Err: errors.New("registry unavailable")}
}

func seed() []endpoint.Endpoint {
	now := time.Now().UTC()
	return []endpoint.Endpoint{
		{ID: "1", Name: "Primary API", URL: "https://api-primary.example.com", Status: endpoint.StatusHealthy, ResponseTime: 120, Load: 45, LastChecked: now},
		{ID: "2", Name: "Secondary API", URL: "https://api-secondary.example.com", Status: endpoint.StatusHealthy, ResponseTime: 95, Load: 38, LastChecked: now},
		{ID: "3", Name: "Backup API", URL: "https://api-backup.example.com", Status: endpoint.StatusWarning, ResponseTime: 250, Load: 17, LastChecked: now},
	}
}

var _ = Describe("EndpointHandler", func() {
	var (
		h   *handler.EndpointHandler
		reg *registry.Registry
	)

	BeforeEach(func() {
		var err error
		reg, err = registry.New(seed(), nil)
		Expect(err).NotTo(HaveOccurred())

		svc := service.New(logger.Discard(), reg,
			healthcheck.NewSampler(healthcheck.ConstSource(0.5)),
			strategy.NewTieredStrategy())
		h = handler.NewEndpointHandler(logger.Discard(), svc, nil)
	})

	Describe("List", func() {
		It("should return the redistributed snapshot", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/endpoints", nil)
			w := httptest.NewRecorder()

			h.List(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))

			var body struct {
				Endpoints           []map[string]any `json:"endpoints"`
				Timestamp           string           `json:"timestamp"`
				TotalLoad           int              `json:"totalLoad"`
				AverageResponseTime int              `json:"averageResponseTime"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())

			Expect(body.Endpoints).To(HaveLen(3))
			Expect(body.TotalLoad).To(Equal(100))
			Expect(body.AverageResponseTime).To(Equal(155))
			_, err := time.Parse(time.RFC3339Nano, body.Timestamp)
			Expect(err).NotTo(HaveOccurred())

			first := body.Endpoints[0]
			Expect(first).To(HaveKeyWithValue("id", "1"))
			Expect(first).To(HaveKeyWithValue("status", "healthy"))
			Expect(first).To(HaveKeyWithValue("load", BeNumerically("==", 40)))
			Expect(first).To(HaveKeyWithValue("responseTime", BeNumerically("==", 120)))
			Expect(first).To(HaveKey("lastChecked"))
		})

		It("should hide internal failures behind a generic message", func() {
			h = handler.NewEndpointHandler(logger.Discard(), failingService{}, nil)
			req := httptest.NewRequest(http.MethodGet, "/api/endpoints", nil)
			w := httptest.NewRecorder()

			h.List(w, req)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).To(MatchJSON(`{"error":"Failed to fetch endpoint data"}`))
		})
	})

	Describe("Register", func() {
		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/api/endpoints", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.Register(w, req)
			return w
		}

		It("should create the endpoint", func() {
			w := post(`{"name":"New API","url":"https://api-new.example.com"}`)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp handler.RegisterResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Message).To(Equal("Endpoint added successfully"))
			Expect(resp.Endpoint.Name).To(Equal("New API"))
			Expect(resp.Endpoint.Status).To(Equal(endpoint.StatusHealthy))
			Expect(resp.Endpoint.ResponseTime).To(Equal(100))
			Expect(resp.Endpoint.Load).To(Equal(0))
			Expect(reg.Len()).To(Equal(4))
		})

		DescribeTable("rejects incomplete bodies",
			func(body string) {
				w := post(body)

				Expect(w.Code).To(Equal(http.StatusBadRequest))
				Expect(w.Body.String()).To(MatchJSON(`{"error":"Name and URL are required"}`))
				Expect(reg.Len()).To(Equal(3))
			},
			Entry("missing name", `{"url":"https://a.example.com"}`),
			Entry("missing url", `{"name":"A"}`),
			Entry("empty name", `{"name":"","url":"https://a.example.com"}`),
			Entry("empty object", `{}`),
			Entry("empty body", ``),
		)

		It("should reject malformed JSON", func() {
			w := post(`{"name":`)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(MatchJSON(`{"error":"Invalid request body"}`))
			Expect(reg.Len()).To(Equal(3))
		})

		It("should hide internal failures behind a generic message", func() {
			h = handler.NewEndpointHandler(logger.Discard(), failingService{}, nil)
			w := post(`{"name":"A","url":"https://a.example.com"}`)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).To(MatchJSON(`{"error":"Failed to add endpoint"}`))
		})
	})

	Describe("Instrument", func() {
		It("should report the response status", func() {
			collector := metrics.NewCollector(10, logger.Discard())
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			collector.Start(ctx)

			h = handler.NewEndpointHandler(logger.Discard(), failingService{}, collector)
			instrumented := h.Instrument(http.HandlerFunc(h.List))

			w := httptest.NewRecorder()
			instrumented.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/endpoints", nil))

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Eventually(func() int64 {
				return collector.Snapshot().StatusCodes[http.StatusInternalServerError]
			}).Should(Equal(int64(1)))
		})
	})
})
