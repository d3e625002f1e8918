package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/ambulanz_backend/config"
	"github.com/Alijeyrad/ambulanz_backend/internal/api/http/router"
	"github.com/Alijeyrad/ambulanz_backend/internal/catalog"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/report"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/scheduling"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/transfer"
	"github.com/Alijeyrad/ambulanz_backend/internal/store"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{}
	cfg.Server.Environment = "development"
	cfg.Server.TimeoutSeconds = 5

	st := store.New(store.NewMemory(), log)
	r := router.NewRouter(router.Params{
		Cfg:           cfg,
		Store:         st,
		SchedulingSvc: scheduling.New(st, scheduling.NewEngine(catalog.Default()), nil, log, 3),
		ReportSvc:     report.New(st, nil, report.DefaultSettings(), log),
		TransferSvc:   transfer.New(st, nil, nil, log),
	})

	app := NewApp(cfg, nil, false)
	r.Register(app)
	return app
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Quarter string          `json:"quarter"`
	Dates   []string        `json:"dates"`
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

type chainBody struct {
	ClientID     string `json:"client_id"`
	Appointments []struct {
		Date        string `json:"date"`
		SessionType string `json:"session_type"`
		Number      int    `json:"number"`
	} `json:"appointments"`
}

func decodeChain(t *testing.T, env envelope) chainBody {
	t.Helper()
	var cb chainBody
	require.NoError(t, json.Unmarshal(env.Data, &cb))
	return cb
}

func onboard(t *testing.T, app *fiber.App, client, start string) {
	t.Helper()
	status, env := do(t, app, "POST", "/api/v1/clients", `{"client_id":"`+client+`","start_date":"`+start+`"}`)
	require.Equal(t, fiber.StatusCreated, status, env.Error)
}

func TestOnboardAndChain(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, "POST", "/api/v1/clients", `{"client_id":"AB","start_date":"2025-01-06"}`)
	require.Equal(t, fiber.StatusCreated, status)
	cb := decodeChain(t, env)
	assert.Equal(t, "AB", cb.ClientID)
	require.Len(t, cb.Appointments, 3)
	assert.Equal(t, "2025-01-20", cb.Appointments[2].Date)
	assert.Equal(t, "Sprechstunde", cb.Appointments[2].SessionType)

	status, env = do(t, app, "POST", "/api/v1/clients", `{"client_id":"AB","start_date":"2025-02-03"}`)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.NotEmpty(t, env.Error)

	status, _ = do(t, app, "POST", "/api/v1/clients", `{"client_id":"CD","start_date":"06.01.2025"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env = do(t, app, "GET", "/api/v1/clients/AB/appointments", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decodeChain(t, env).Appointments, 3)

	status, _ = do(t, app, "GET", "/api/v1/clients/ZZ/appointments", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPhaseAndMutationErrors(t *testing.T) {
	app := newTestApp(t)
	onboard(t, app, "AB", "2025-01-06")

	status, _ := do(t, app, "POST", "/api/v1/clients/AB/phases", `{"session_type":"Gruppe"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, "POST", "/api/v1/clients/AB/phases", `{"session_type":"PTG"}`)
	assert.Equal(t, fiber.StatusConflict, status)

	status, env := do(t, app, "POST", "/api/v1/clients/AB/phases", `{"session_type":"kzt","start_number":1}`)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	assert.Len(t, decodeChain(t, env).Appointments, 3+24)

	status, _ = do(t, app, "POST", "/api/v1/clients/AB/appointments/2025-01-07/cancel", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = do(t, app, "POST", "/api/v1/clients/AB/appointments/not-a-date/cancel", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, "POST", "/api/v1/clients/AB/appointments/2025-01-27/realign", `{"weekday":9}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = do(t, app, "POST", "/api/v1/clients/AB/appointments/2025-01-27/realign", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestPTGQuotaConflictListsDates(t *testing.T) {
	app := newTestApp(t)
	onboard(t, app, "IJ", "2025-01-06")
	status, _ := do(t, app, "POST", "/api/v1/clients/IJ/phases", `{"session_type":"KZT"}`)
	require.Equal(t, fiber.StatusOK, status)

	for _, date := range []string{"2025-01-27", "2025-02-03", "2025-02-10"} {
		status, env := do(t, app, "POST", "/api/v1/clients/IJ/appointments/"+date+"/ptg", "")
		require.Equal(t, fiber.StatusOK, status, env.Error)
	}

	status, env := do(t, app, "POST", "/api/v1/clients/IJ/appointments/2025-02-17/ptg", "")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "2025Q1", env.Quarter)
	assert.Equal(t, []string{"2025-01-27", "2025-02-03", "2025-02-10"}, env.Dates)
}

func TestAbsenceRoutes(t *testing.T) {
	app := newTestApp(t)
	onboard(t, app, "AB", "2025-01-06")
	onboard(t, app, "CD", "2025-01-08")

	status, _ := do(t, app, "POST", "/api/v1/absences", `{"start":"2025-01-13","end":"2025-01-17"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = do(t, app, "POST", "/api/v1/absences", `{"client":"AB","start":"2025-01-13","end":"2025-01-17"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env := do(t, app, "POST", "/api/v1/absences", `{"client_id":"AB","start":"2025-01-13","end":"2025-01-13"}`)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	assert.JSONEq(t, `{"cancelled":{"AB":1}}`, string(env.Data))

	_, env = do(t, app, "GET", "/api/v1/clients/CD/appointments", "")
	assert.Equal(t, "2025-01-22", decodeChain(t, env).Appointments[2].Date, "other clients untouched")

	status, env = do(t, app, "POST", "/api/v1/absences", `{"client_id":"ALL","start":"2025-01-20","end":"2025-01-24"}`)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	assert.JSONEq(t, `{"cancelled":{"AB":1,"CD":1}}`, string(env.Data))

	status, _ = do(t, app, "POST", "/api/v1/absences", `{"client_id":"ZZ","start":"2025-01-20","end":"2025-01-24"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSupervisionRoutes(t *testing.T) {
	app := newTestApp(t)

	status, _ := do(t, app, "POST", "/api/v1/supervisions", `{"date":"2025-01-07","kind":"G-SV","hours":2}`)
	assert.Equal(t, fiber.StatusCreated, status)

	status, _ = do(t, app, "POST", "/api/v1/supervisions", `{"date":"2025-01-07","kind":"E-SV","hours":1}`)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = do(t, app, "POST", "/api/v1/supervisions", `{"date":"2025-01-08","kind":"E-SV","hours":11}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = do(t, app, "POST", "/api/v1/supervisions", `{"date":"2025-01-08","kind":"X-SV","hours":1}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env := do(t, app, "GET", "/api/v1/supervisions", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(env.Data), `"supervision_kind":"G-SV"`)

	status, _ = do(t, app, "DELETE", "/api/v1/supervisions/2025-01-07", "")
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = do(t, app, "DELETE", "/api/v1/supervisions/2025-01-07", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestReportRoutes(t *testing.T) {
	app := newTestApp(t)
	onboard(t, app, "AB", "2025-01-06")

	status, _ := do(t, app, "GET", "/api/v1/reports/quarters/2025-1", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, "GET", "/api/v1/reports/quarters/2025Q1?practice=privat", "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, env := do(t, app, "GET", "/api/v1/reports/quarters/2025Q1?practice=extern", "")
	require.Equal(t, fiber.StatusOK, status)
	var f report.Forecast
	require.NoError(t, json.Unmarshal(env.Data, &f))
	assert.Equal(t, "extern", f.Practice)
	assert.Equal(t, 3, f.Total.Count)

	status, _ = do(t, app, "GET", "/api/v1/reports/supervision?due=2025-03-31", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, "GET", "/api/v1/reports/progress?today=2025-03-31", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, "POST", "/api/v1/reports/capacity", `{"start_type":"KZT1","start_number":1,"start_week":13}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, env = do(t, app, "GET", "/api/v1/calendar/events", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(env.Data), "AB - Sprechstunde #1")
}

func TestTransferRoutes(t *testing.T) {
	app := newTestApp(t)

	csv := "Datum,Klient,Sitzungsart,Nummer,Art Supervision,Stundenanzahl\n" +
		"2025-01-06,AB,Sprechstunde,1,,\n"
	req := httptest.NewRequest("POST", "/api/v1/import", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/v1/import", strings.NewReader("Datum\nkaputt\n"))
	req.Header.Set("Content-Type", "text/csv")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/export", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "termine.csv")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, csv, string(body))

	status, _ := do(t, app, "POST", "/api/v1/export/backup", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
}

func TestSystemRoutesAndRequestID(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/livez", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	req := httptest.NewRequest("GET", "/readyz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-Id"))

	status, env := do(t, app, "GET", "/api/v1/nowhere", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.NotEmpty(t, env.Error)
}
