package serve

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mvdwal/stevedore"
)

const (
	testUser = "admin"
	testPass = "hunter2"
)

// stubCore is a scriptable Core for handler tests.
type stubCore struct {
	createErr error
	created   []stevedore.CreateOptions

	state    stevedore.ContainerRecord
	stateErr error

	stopErr   error
	removeErr error

	logs    string
	logsErr error

	dest        string
	downloadErr error
}

func (c *stubCore) Create(ctx context.Context, opts stevedore.CreateOptions) error {
	c.created = append(c.created, opts)
	return c.createErr
}

func (c *stubCore) State(name string) (stevedore.ContainerRecord, error) {
	return c.state, c.stateErr
}

func (c *stubCore) Stop(ctx context.Context, name string) error {
	return c.stopErr
}

func (c *stubCore) Remove(ctx context.Context, name string) error {
	return c.removeErr
}

func (c *stubCore) Logs(ctx context.Context, name string) (string, error) {
	return c.logs, c.logsErr
}

func (c *stubCore) Download(ctx context.Context, name, containerPath, hostDir string) (string, error) {
	return c.dest, c.downloadErr
}

// stubImages is a scriptable ImageStore.
type stubImages struct {
	tags    []string
	listErr error
	pulled  string
	pullErr error
}

func (s *stubImages) Images(ctx context.Context) ([]string, error) {
	return s.tags, s.listErr
}

func (s *stubImages) Pull(ctx context.Context, ref string) (string, error) {
	if s.pulled == "" {
		s.pulled = ref
	}
	return s.pulled, s.pullErr
}

func writeSecrets(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "secrets.json")
	body := fmt.Sprintf(`{"server_username": %q, "server_password": %q}`, testUser, testPass)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write secrets: %v", err)
	}
	return path
}

func newTestServer(t *testing.T, core Core, images ImageStore) *Server {
	t.Helper()

	cfg := DefaultConfig()
	cfg.SecretsFile = writeSecrets(t)

	s := New(core, images, cfg)
	s.logger = slog.New(slog.DiscardHandler)
	return s
}

// do performs an authenticated request against the server's handler.
func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.SetBasicAuth(testUser, testPass)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp MessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return resp.Message
}

func TestRootIsUnauthenticated(t *testing.T) {
	s := newTestServer(t, &stubCore{}, &stubImages{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET / status = %d, want 200", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `"up"` {
		t.Errorf("GET / body = %s, want \"up\"", got)
	}
}

func TestMissingCredentials(t *testing.T) {
	s := newTestServer(t, &stubCore{}, &stubImages{})

	req := httptest.NewRequest(http.MethodGet, "/images", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Basic") {
		t.Errorf("WWW-Authenticate = %q, want Basic challenge", got)
	}
}

func TestWrongPassword(t *testing.T) {
	s := newTestServer(t, &stubCore{}, &stubImages{})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.SetBasicAuth(testUser, "wrong")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestProtectedProbe(t *testing.T) {
	s := newTestServer(t, &stubCore{}, &stubImages{})

	w := do(t, s, http.MethodGet, "/protected", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if msg := decodeMessage(t, w); msg != "Authenticated & Authorized." {
		t.Errorf("message = %q", msg)
	}
}

func TestListImages(t *testing.T) {
	images := &stubImages{tags: []string{"alpine:latest", "nginx:1.27"}}
	s := newTestServer(t, &stubCore{}, images)

	w := do(t, s, http.MethodGet, "/images", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var tags []string
	if err := json.Unmarshal(w.Body.Bytes(), &tags); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tags) != 2 || tags[0] != "alpine:latest" {
		t.Errorf("tags = %v", tags)
	}
}

func TestPullImageMissingName(t *testing.T) {
	s := newTestServer(t, &stubCore{}, &stubImages{})

	w := do(t, s, http.MethodPost, "/images/pull", `{"image": ""}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPullImage(t *testing.T) {
	s := newTestServer(t, &stubCore{}, &stubImages{})

	w := do(t, s, http.MethodPost, "/images/pull", `{"image": "alpine:latest"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if msg := decodeMessage(t, w); msg != "Image alpine:latest pulled successfully." {
		t.Errorf("message = %q", msg)
	}
}

func TestCreateContainer(t *testing.T) {
	core := &stubCore{}
	s := newTestServer(t, core, &stubImages{})

	body := `{"name": "web", "image": "alpine", "command": "sleep 60", "volumes": ["/tmp:/data:ro"]}`
	w := do(t, s, http.MethodPost, "/containers/create", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	if len(core.created) != 1 {
		t.Fatalf("Create called %d times, want 1", len(core.created))
	}
	got := core.created[0]
	if got.Name != "web" || got.Image != "alpine" {
		t.Errorf("CreateOptions = %+v", got)
	}
	if len(got.Command) != 2 || got.Command[0] != "sleep" || got.Command[1] != "60" {
		t.Errorf("command = %v, want [sleep 60]", got.Command)
	}
	if len(got.Binds) != 1 || got.Binds[0] != "/tmp:/data:ro" {
		t.Errorf("binds = %v", got.Binds)
	}
}

func TestCreateContainerValidationError(t *testing.T) {
	core := &stubCore{createErr: fmt.Errorf("%w: name", stevedore.ErrMissingField)}
	s := newTestServer(t, core, &stubImages{})

	w := do(t, s, http.MethodPost, "/containers/create", `{"image": "alpine", "command": "true"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateContainerEngineError(t *testing.T) {
	core := &stubCore{createErr: fmt.Errorf("failed to pull image: no such image")}
	s := newTestServer(t, core, &stubImages{})

	w := do(t, s, http.MethodPost, "/containers/create", `{"name": "web", "image": "x", "command": "true"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if msg := decodeMessage(t, w); msg != "failed to pull image: no such image" {
		t.Errorf("engine error not surfaced verbatim: %q", msg)
	}
}

func TestContainerState(t *testing.T) {
	core := &stubCore{state: stevedore.ContainerRecord{
		Name:       "web",
		Status:     stevedore.StatusExited,
		ExitCode:   1,
		ObservedAt: time.Now(),
	}}
	s := newTestServer(t, core, &stubImages{})

	w := do(t, s, http.MethodGet, "/containers/web/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var rec stevedore.ContainerRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Name != "web" || rec.Status != stevedore.StatusExited || rec.ExitCode != 1 {
		t.Errorf("record = %+v", rec)
	}
}

func TestContainerStateNotTracked(t *testing.T) {
	core := &stubCore{stateErr: fmt.Errorf("%w: ghost", stevedore.ErrNotTracked)}
	s := newTestServer(t, core, &stubImages{})

	w := do(t, s, http.MethodGet, "/containers/ghost/state", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestContainerLogs(t *testing.T) {
	core := &stubCore{logs: "line1\nline2\n"}
	s := newTestServer(t, core, &stubImages{})

	w := do(t, s, http.MethodGet, "/containers/web/logs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp LogsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Logs != "line1\nline2\n" {
		t.Errorf("logs = %q", resp.Logs)
	}
}

func TestDownloadFile(t *testing.T) {
	core := &stubCore{dest: "/srv/out/config.yaml"}
	s := newTestServer(t, core, &stubImages{})

	body := `{"path_to_file_in_container": "/root/config.yaml", "host_directory": "/srv/out"}`
	w := do(t, s, http.MethodPost, "/containers/web/download", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if msg := decodeMessage(t, w); msg != "File '/srv/out/config.yaml' successfully downloaded." {
		t.Errorf("message = %q", msg)
	}
}

func TestDownloadMissingFields(t *testing.T) {
	s := newTestServer(t, &stubCore{}, &stubImages{})

	w := do(t, s, http.MethodPost, "/containers/web/download", `{"host_directory": "/srv"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestStopContainer(t *testing.T) {
	s := newTestServer(t, &stubCore{}, &stubImages{})

	w := do(t, s, http.MethodPost, "/containers/stop", `{"name": "web"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if msg := decodeMessage(t, w); msg != "Container web stopped successfully." {
		t.Errorf("message = %q", msg)
	}
}

func TestStopContainerMissingName(t *testing.T) {
	s := newTestServer(t, &stubCore{}, &stubImages{})

	w := do(t, s, http.MethodPost, "/containers/stop", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if msg := decodeMessage(t, w); msg != "Container name must be provided." {
		t.Errorf("message = %q", msg)
	}
}

func TestDeleteContainerNotFound(t *testing.T) {
	core := &stubCore{removeErr: fmt.Errorf("%w: container ghost", stevedore.ErrNotFound)}
	s := newTestServer(t, core, &stubImages{})

	w := do(t, s, http.MethodPost, "/containers/delete", `{"name": "ghost"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, &stubCore{}, &stubImages{})

	req := httptest.NewRequest(http.MethodOptions, "/containers/create", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
