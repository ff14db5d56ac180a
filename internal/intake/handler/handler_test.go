package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"solarintake/internal/intake/events"
	"solarintake/internal/intake/models"
	"solarintake/internal/intake/orchestrator"
	"solarintake/internal/intake/service"
	"solarintake/internal/intake/utilities"
	"solarintake/internal/intake/validation"
	"solarintake/internal/platform/metrics"
	"solarintake/internal/proposal"
	httptestutil "solarintake/pkg/testutil"
)

type IntakeHandlerSuite struct {
	suite.Suite
	manager *service.Manager
	metrics *metrics.Metrics
	events  *events.MemoryStore
	router  chi.Router
}

func TestIntakeHandlerSuite(t *testing.T) {
	suite.Run(t, new(IntakeHandlerSuite))
}

func (s *IntakeHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.metrics = metrics.New(prometheus.NewRegistry())
	// lookups never fire inside a test: the debounce window outlives it and
	// no postal code reaches 8 digits
	s.events = events.NewMemoryStore(10)
	s.manager = service.NewManager(func(id uuid.UUID) *orchestrator.Session {
		return orchestrator.NewSession(id, nil, nil, orchestrator.WithDebounce(time.Hour))
	}, service.WithMetrics(s.metrics), service.WithOnClose(s.events.Forget))

	s.router = chi.NewRouter()
	New(s.manager, logger, s.metrics, time.Second, WithEventLog(s.events)).Register(s.router)
}

func (s *IntakeHandlerSuite) TearDownTest() {
	s.manager.Close()
}

func (s *IntakeHandlerSuite) createSession(body any) orchestrator.View {
	rr := httptestutil.ServeJSON(s.T(), s.router, http.MethodPost, "/v1/sessions", body)
	httptestutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return *httptestutil.UnmarshalResponse[orchestrator.View](s.T(), rr)
}

func (s *IntakeHandlerSuite) sessionPath(id uuid.UUID, suffix string) string {
	return "/v1/sessions/" + id.String() + suffix
}

func (s *IntakeHandlerSuite) TestCreateSession() {
	view := s.createSession(nil)

	s.NotEqual(uuid.Nil, view.SessionID)
	s.Equal(models.DefaultConsumption, view.Snapshot.Installation.Consumption)
	s.Equal(models.PhaseSplit, view.Snapshot.Electrical.Phase)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.ActiveSessions))
}

func (s *IntakeHandlerSuite) TestCreateSessionWithPrefill() {
	view := s.createSession(map[string]any{
		"prefill": models.ExistingClient{
			Name:                "João Pereira",
			Phone:               "51988887777",
			InstallationAddress: "Av. Ipiranga, 6681",
			City:                "Porto Alegre",
			State:               "RS",
		},
	})

	s.Equal("João Pereira", view.Snapshot.Personal.Name)
	s.Equal("(51) 98888-7777", view.Snapshot.Personal.Phone)
	s.Equal("Av. Ipiranga", view.Snapshot.Address.Street)
	s.Equal("6681", view.Snapshot.Address.Number)
	s.Equal(orchestrator.StatePendingDebounce, view.Geocoding.State)
}

func (s *IntakeHandlerSuite) TestGetSession() {
	s.Run("existing", func() {
		created := s.createSession(nil)
		rr := httptestutil.ServeJSON(s.T(), s.router, http.MethodGet, s.sessionPath(created.SessionID, ""), nil)
		httptestutil.AssertStatusOK(s.T(), rr)
		got := httptestutil.UnmarshalResponse[orchestrator.View](s.T(), rr)
		s.Equal(created.SessionID, got.SessionID)
	})

	s.Run("unknown", func() {
		rr := httptestutil.ServeJSON(s.T(), s.router, http.MethodGet, s.sessionPath(uuid.New(), ""), nil)
		httptestutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("malformed id", func() {
		rr := httptestutil.ServeJSON(s.T(), s.router, http.MethodGet, "/v1/sessions/not-a-uuid", nil)
		httptestutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *IntakeHandlerSuite) TestApplyEdits() {
	created := s.createSession(nil)
	path := s.sessionPath(created.SessionID, "/edits")

	s.Run("edits are masked in order", func() {
		rr := httptestutil.ServeJSON(s.T(), s.router, http.MethodPost, path, editsRequest{Edits: []models.RawFieldEdit{
			{Field: models.FieldPhone, Value: "5133334444"},
			{Field: models.FieldBirthDate, Value: "01021990"},
			{Field: models.FieldMainBreaker, Value: "63A"},
			{Field: models.FieldVoltage, Value: "380V"},
			{Field: models.FieldConnection, Value: "three"},
		}})
		httptestutil.AssertStatusOK(s.T(), rr)

		view := httptestutil.UnmarshalResponse[orchestrator.View](s.T(), rr)
		s.Equal("(51) 3333-4444", view.Snapshot.Personal.Phone)
		s.Equal("01/02/1990", view.Snapshot.Personal.BirthDate)
		s.Equal("41.47", view.Snapshot.Electrical.AvailablePowerKW)
	})

	s.Run("derived field is not editable", func() {
		rr := httptestutil.ServeJSON(s.T(), s.router, http.MethodPost, path, editsRequest{Edits: []models.RawFieldEdit{
			{Field: "available_power", Value: "100"},
		}})
		httptestutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("empty batch", func() {
		rr := httptestutil.ServeJSON(s.T(), s.router, http.MethodPost, path, editsRequest{})
		httptestutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("non-json body", func() {
		req := httptestutil.NewRequest(s.T(), http.MethodPost, path)
		req.Body = io.NopCloser(strings.NewReader("phone=1"))
		req.ContentLength = 7
		req.Header.Set("Content-Type", "text/plain")
		rr := httptestutil.DoRequest(s.router, req)
		httptestutil.AssertStatus(s.T(), rr, http.StatusUnsupportedMediaType)
	})
}

func (s *IntakeHandlerSuite) TestValidateAndProposal() {
	created := s.createSession(nil)

	rr := httptestutil.ServeJSON(s.T(), s.router, http.MethodPost, s.sessionPath(created.SessionID, "/validate"), nil)
	httptestutil.AssertStatusOK(s.T(), rr)
	res := httptestutil.UnmarshalResponse[validateResponse](s.T(), rr)
	s.False(res.Valid)
	s.Equal(validation.Required, res.Errors[models.FieldClientName].Kind)
	s.Equal(validation.Required.Message(), res.Errors[models.FieldClientName].Message)

	rr = httptestutil.ServeJSON(s.T(), s.router, http.MethodPost, s.sessionPath(created.SessionID, "/proposal"), nil)
	httptestutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
	httptestutil.AssertJSONContains(s.T(), rr, "error", "validation_error")

	rr = httptestutil.ServeJSON(s.T(), s.router, http.MethodPost, s.sessionPath(created.SessionID, "/edits"), editsRequest{
		Edits: []models.RawFieldEdit{{Field: models.FieldClientName, Value: "Ana"}},
	})
	httptestutil.AssertStatusOK(s.T(), rr)

	rr = httptestutil.ServeJSON(s.T(), s.router, http.MethodPost, s.sessionPath(created.SessionID, "/proposal"), nil)
	httptestutil.AssertStatusOK(s.T(), rr)
	out := httptestutil.UnmarshalResponse[orchestrator.Proposal](s.T(), rr)
	s.Equal(proposal.FallbackNotConfigured, out.Text)
	s.Equal(proposal.Request{ClientName: "Ana", Consumption: 350, City: proposal.DefaultCity}, out.Request)
}

func (s *IntakeHandlerSuite) TestDeleteSession() {
	created := s.createSession(nil)
	path := s.sessionPath(created.SessionID, "")

	rr := httptestutil.ServeJSON(s.T(), s.router, http.MethodDelete, path, nil)
	httptestutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	rr = httptestutil.ServeJSON(s.T(), s.router, http.MethodGet, path, nil)
	httptestutil.AssertStatus(s.T(), rr, http.StatusNotFound)

	rr = httptestutil.ServeJSON(s.T(), s.router, http.MethodDelete, path, nil)
	httptestutil.AssertStatus(s.T(), rr, http.StatusNotFound)
}

type eventsResponse struct {
	Events []events.Event `json:"events"`
}

func (s *IntakeHandlerSuite) TestListEvents() {
	ctx := context.Background()
	created := s.createSession(nil)
	path := s.sessionPath(created.SessionID, "/events")

	rr := httptestutil.ServeJSON(s.T(), s.router, http.MethodGet, path, nil)
	httptestutil.AssertStatusOK(s.T(), rr)
	s.Empty(httptestutil.UnmarshalResponse[eventsResponse](s.T(), rr).Events)

	s.Require().NoError(s.events.Append(ctx, events.Event{
		Type:       events.AddressResolved,
		SessionID:  created.SessionID,
		Generation: 1,
		PostalCode: "90010000",
	}))
	rr = httptestutil.ServeJSON(s.T(), s.router, http.MethodGet, path, nil)
	httptestutil.AssertStatusOK(s.T(), rr)
	list := httptestutil.UnmarshalResponse[eventsResponse](s.T(), rr).Events
	s.Require().Len(list, 1)
	s.Equal(events.AddressResolved, list[0].Type)
	s.Equal("90010000", list[0].PostalCode)

	rr = httptestutil.ServeJSON(s.T(), s.router, http.MethodDelete, s.sessionPath(created.SessionID, ""), nil)
	httptestutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	remaining, err := s.events.ListBySession(ctx, created.SessionID)
	s.Require().NoError(err)
	s.Empty(remaining)
}

func (s *IntakeHandlerSuite) TestMask() {
	rr := httptestutil.ServeJSON(s.T(), s.router, http.MethodPost, "/v1/mask", maskRequest{Kind: "national_id", Value: "11222333000181"})
	httptestutil.AssertStatusOK(s.T(), rr)
	httptestutil.AssertJSONContains(s.T(), rr, "value", "11.222.333/0001-81")

	rr = httptestutil.ServeJSON(s.T(), s.router, http.MethodPost, "/v1/mask", maskRequest{Kind: "iban", Value: "x"})
	httptestutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *IntakeHandlerSuite) TestProjection() {
	rr := httptestutil.ServeJSON(s.T(), s.router, http.MethodGet, "/v1/projection?lat=-30.0346&lon=-51.2177", nil)
	httptestutil.AssertStatusOK(s.T(), rr)
	body := httptestutil.DecodeJSON(s.T(), rr)
	projection := body["projection"].(map[string]any)
	s.Equal(float64(22), projection["zone"])
	s.Equal("J", projection["band"])
	s.Equal("22J 479011 6677361", body["utm"])

	rr = httptestutil.ServeJSON(s.T(), s.router, http.MethodGet, "/v1/projection?lat=91&lon=0", nil)
	httptestutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")

	rr = httptestutil.ServeJSON(s.T(), s.router, http.MethodGet, "/v1/projection?lat=abc", nil)
	httptestutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *IntakeHandlerSuite) TestPower() {
	rr := httptestutil.ServeJSON(s.T(), s.router, http.MethodGet, "/v1/power?voltage=220V&breaker=40A&phase=Trif%C3%A1sico", nil)
	httptestutil.AssertStatusOK(s.T(), rr)
	httptestutil.AssertJSONContains(s.T(), rr, "available_power", "15.24")

	rr = httptestutil.ServeJSON(s.T(), s.router, http.MethodGet, "/v1/power?voltage=220V&breaker=", nil)
	httptestutil.AssertStatusOK(s.T(), rr)
	httptestutil.AssertJSONContains(s.T(), rr, "available_power", "")

	rr = httptestutil.ServeJSON(s.T(), s.router, http.MethodGet, "/v1/power?voltage=220V&breaker=40A&phase=quad", nil)
	httptestutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *IntakeHandlerSuite) TestUtilitiesAndOptions() {
	rr := httptestutil.ServeJSON(s.T(), s.router, http.MethodGet, "/v1/utilities?q=rge", nil)
	httptestutil.AssertStatusOK(s.T(), rr)
	res := httptestutil.UnmarshalResponse[map[string][]string](s.T(), rr)
	s.Equal([]string{"RGE - Rio Grande Energia (RS)", "RGE Sul (RS)"}, (*res)["utilities"])

	rr = httptestutil.ServeJSON(s.T(), s.router, http.MethodGet, "/v1/options", nil)
	httptestutil.AssertStatusOK(s.T(), rr)
	opts := httptestutil.UnmarshalResponse[utilities.Options](s.T(), rr)
	s.Equal([]string{"127V", "220V", "380V"}, opts.Voltages)
}

func (s *IntakeHandlerSuite) TestRequestIDIsEchoed() {
	req := httptestutil.NewRequest(s.T(), http.MethodGet, "/v1/options")
	req.Header.Set("X-Request-ID", "req-intake-1")
	rr := httptestutil.DoRequest(s.router, req)
	s.Equal("req-intake-1", rr.Header().Get("X-Request-ID"))
}
