package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/warden/internal/core"
	"github.com/flemzord/warden/internal/metrics"
	"github.com/flemzord/warden/internal/moderation"
	"github.com/flemzord/warden/internal/provider"
	"github.com/flemzord/warden/internal/provider/providertest"
	"github.com/flemzord/warden/internal/security"
)

func TestGateway_ModuleInfo(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	info := g.ModuleInfo()

	if info.ID != "gateway.http" {
		t.Errorf("ID = %q, want %q", info.ID, "gateway.http")
	}
	if info.New == nil {
		t.Fatal("New func is nil")
	}
	if _, ok := info.New().(*Gateway); !ok {
		t.Error("New() should return *Gateway")
	}
}

func TestGateway_ConfigureDefaults(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	if err := g.Configure(mustYAMLNode(t, "{}")); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if g.config.Bind != "127.0.0.1:8080" {
		t.Errorf("Bind = %q, want default", g.config.Bind)
	}
	if g.config.Banner != DefaultBanner {
		t.Errorf("Banner = %q, want default", g.config.Banner)
	}
	if g.config.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", g.config.ReadTimeout)
	}
	if g.config.WriteTimeout != 60*time.Second {
		t.Errorf("WriteTimeout = %v, want 60s", g.config.WriteTimeout)
	}
	if g.config.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", g.config.ShutdownTimeout)
	}
}

func TestGateway_ConfigureCustom(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	node := mustYAMLNode(t, `
bind: "0.0.0.0:5000"
banner: "Solium AI Telegram Bot is active!"
read_timeout: 5s
write_timeout: 15s
shutdown_timeout: 10s
max_body_bytes: 65536
auth:
  bearer_token: "my-token"
webhooks:
  telegram:
    secret: "tg-secret"
`)

	if err := g.Configure(node); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if g.config.Bind != "0.0.0.0:5000" {
		t.Errorf("Bind = %q, want custom", g.config.Bind)
	}
	if g.config.Banner != "Solium AI Telegram Bot is active!" {
		t.Errorf("Banner = %q", g.config.Banner)
	}
	if g.config.MaxBodyBytes != 65536 {
		t.Errorf("MaxBodyBytes = %d", g.config.MaxBodyBytes)
	}
	if g.config.Auth.BearerToken != "my-token" {
		t.Errorf("BearerToken = %q", g.config.Auth.BearerToken)
	}
	if wh, ok := g.config.Webhooks["telegram"]; !ok || wh.Secret != "tg-secret" {
		t.Errorf("Webhooks = %+v", g.config.Webhooks)
	}
}

func TestGateway_Provision(t *testing.T) {
	t.Parallel()

	appCtx := core.NewAppContext(testLogger(), t.TempDir())
	reg := metrics.NewRegistry()
	appCtx.RegisterService(metrics.RegistryService, reg)
	audit := security.NewAuditLogger(security.AuditLoggerConfig{})
	appCtx.RegisterService(security.AuditService, audit)

	g := &Gateway{}
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if g.registry != reg {
		t.Error("gateway did not adopt the shared registry")
	}
	if g.audit != audit {
		t.Error("gateway did not adopt the shared audit logger")
	}
	svc, ok := appCtx.GetService(WebhookDispatcherService)
	if !ok {
		t.Fatal("webhook dispatcher not registered")
	}
	if svc.(*WebhookDispatcher) != g.dispatcher {
		t.Error("registered dispatcher differs from the gateway's")
	}
	if g.config.Bind == "" {
		t.Error("defaults not applied without a config block")
	}
}

func TestGateway_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bind    string
		wantErr bool
	}{
		{"127.0.0.1:8080", false},
		{":5000", false},
		{"not a valid address::", true},
	}
	for _, tt := range tests {
		g := &Gateway{config: Config{Bind: tt.bind}}
		if err := g.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tt.bind, err, tt.wantErr)
		}
	}
}

func TestGateway_PublicRoutes(t *testing.T) {
	t.Parallel()

	g := newRoutedGateway(t, Config{Banner: "Solium AI Telegram Bot is active!"})
	router := g.buildRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "Solium AI Telegram Bot is active!" {
		t.Errorf("banner = %d %q", rr.Code, rr.Body.String())
	}

	// Hit /health once so the middleware has something to report.
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `warden_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Errorf("metrics output missing /health request counter:\n%s", body)
	}
}

func TestGateway_AdminNotMountedWithoutAuth(t *testing.T) {
	t.Parallel()

	g := newRoutedGateway(t, Config{})
	g.store = newTestStore(nil)
	router := g.buildRouter()

	for _, path := range []string{"/status", "/api/violations"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404 (not mounted)", path, rr.Code)
		}
	}
}

func TestGateway_Status(t *testing.T) {
	t.Parallel()

	g := newRoutedGateway(t, Config{Auth: AuthConfig{BearerToken: adminToken}})
	g.store = newTestStore(map[int64]int{1: 2, 2: 0})
	g.chain = newTestChain(t, []provider.ChainEntry{
		{Name: "p1", Provider: providertest.Reply("NO"), Role: provider.RoleAssistant},
	})
	g.dispatcher.Register("telegram", &mockWebhookHandler{}, "")
	g.startedAt = time.Now().Add(-90 * time.Second)
	router := g.buildRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no-auth status = %d, want 401", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(http.MethodGet, "/status"))
	if rr.Code != http.StatusOK {
		t.Fatalf("auth status = %d, want 200", rr.Code)
	}

	var resp StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UptimeSeconds < 90 {
		t.Errorf("uptime = %d, want >= 90", resp.UptimeSeconds)
	}
	if resp.TrackedUsers != 2 || resp.ActiveWarnings != 1 {
		t.Errorf("tracked = %d active = %d, want 2 and 1", resp.TrackedUsers, resp.ActiveWarnings)
	}
	if len(resp.WebhookSources) != 1 || resp.WebhookSources[0] != "telegram" {
		t.Errorf("webhook sources = %v", resp.WebhookSources)
	}
	if len(resp.Providers) != 1 {
		t.Errorf("providers = %d, want 1", len(resp.Providers))
	}
}

func TestGateway_StartStop(t *testing.T) {
	t.Parallel()

	appCtx := core.NewAppContext(testLogger(), t.TempDir())
	appCtx.RegisterService(moderation.StoreService, newTestStore(map[int64]int{7: 1}))

	g := &Gateway{}
	if err := g.Configure(mustYAMLNode(t, `{bind: "127.0.0.1:0", shutdown_timeout: 2s}`)); err != nil {
		t.Fatal(err)
	}
	if err := g.Provision(appCtx); err != nil {
		t.Fatal(err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = g.Stop(context.Background()) }()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://"+g.Addr().String()+"/health", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.TrackedUsers != 1 {
		t.Errorf("tracked users = %d, want 1 from the registered store", health.TrackedUsers)
	}

	if err := g.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestGateway_StopNilServer(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	if err := g.Stop(context.Background()); err != nil {
		t.Errorf("Stop on nil server should not error: %v", err)
	}
}
