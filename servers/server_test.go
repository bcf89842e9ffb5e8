package servers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/generators"
	"github.com/reusee/taitrace/modes"
	"github.com/reusee/taitrace/models"
	"github.com/reusee/taitrace/responses"
	"github.com/vmihailenco/msgpack/v5"
)

type fakeGenerator struct{}

func (fakeGenerator) Args() generators.GeneratorArgs {
	return generators.GeneratorArgs{}
}

func (fakeGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	return prompt + " it works", nil
}

func testServer(t *testing.T, available bool) *httptest.Server {
	var server *httptest.Server
	dscope.New(
		modes.ForTest(t),
		new(Module),
		dscope.Provide(configs.NewLoader(nil, "")),
	).Fork(
		func() models.Strategies {
			return models.Strategies{
				{
					Tier: models.TierGeneral,
					Load: func(ctx context.Context) (*models.Handle, error) {
						if !available {
							return nil, errors.New("no model")
						}
						return &models.Handle{
							Tier:      models.TierGeneral,
							Generator: fakeGenerator{},
						}, nil
					},
				},
			}
		},
	).Call(func(
		handler Handler,
	) {
		server = httptest.NewServer(handler)
	})
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, server *httptest.Server, body string, accept string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.URL+"/execute", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, content
}

func TestExecute(t *testing.T) {
	server := testServer(t, true)
	resp, body := post(t, server, `{"code": "x = 1\ny = x + 2\nprint(y)"}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d: %s", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("no request id")
	}
	var got responses.Response
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "success" || got.Output != "3\n" || len(got.Trace) == 0 {
		t.Fatalf("got %s", body)
	}
	for _, step := range got.Trace {
		if step.Explanation != "it works" {
			t.Fatalf("got %q", step.Explanation)
		}
		if step.Visualization == nil {
			t.Fatal("no visualization")
		}
	}
}

func TestExecuteInputs(t *testing.T) {
	server := testServer(t, true)
	resp, body := post(t, server, `{"code": "print(a + b)", "input_data": {"a": 1, "b": 2}}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d: %s", resp.StatusCode, body)
	}
	var got responses.Response
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Output != "3\n" {
		t.Fatalf("got %q", got.Output)
	}
}

func TestExecuteUserFault(t *testing.T) {
	server := testServer(t, true)
	resp, body := post(t, server, `{"code": "x = 1 / 0"}`, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("got %d: %s", resp.StatusCode, body)
	}
	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	detail, _ := got["detail"].(string)
	if !strings.HasPrefix(detail, "Execution error:") {
		t.Fatalf("got %s", body)
	}
	if _, ok := got["trace"]; ok {
		t.Fatal("trace returned")
	}
	if _, ok := got["output"]; ok {
		t.Fatal("output returned")
	}
}

func TestExecuteInvalidRequest(t *testing.T) {
	server := testServer(t, true)
	for _, body := range []string{
		`{}`,
		`{"code": 1}`,
		`not json`,
	} {
		resp, content := post(t, server, body, "")
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("%s: got %d: %s", body, resp.StatusCode, content)
		}
	}
}

func TestExecuteModelUnavailable(t *testing.T) {
	server := testServer(t, false)
	resp, body := post(t, server, `{"code": "x = 1"}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d: %s", resp.StatusCode, body)
	}
	var got responses.Response
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	for _, step := range got.Trace {
		if step.Explanation != responses.Unavailable {
			t.Fatalf("got %q", step.Explanation)
		}
	}
}

func TestExecuteMsgpack(t *testing.T) {
	server := testServer(t, true)
	resp, body := post(t, server, `{"code": "x = 1"}`, responses.ContentTypeMsgpack)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != responses.ContentTypeMsgpack {
		t.Fatalf("got %s", ct)
	}
	var got map[string]any
	if err := msgpack.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got["status"] != "success" {
		t.Fatalf("got %v", got)
	}
	trace := got["trace"].([]any)
	step := trace[0].(map[string]any)
	if step["explanation"] != "it works" {
		t.Fatalf("got %v", step)
	}
}

func TestHealthz(t *testing.T) {
	server := testServer(t, true)
	health := func() map[string]string {
		resp, err := http.Get(server.URL + "/healthz")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var got map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		return got
	}
	if got := health(); got["status"] != "ok" || got["model"] != "not loaded" {
		t.Fatalf("got %v", got)
	}
	post(t, server, `{"code": "x = 1"}`, "")
	if got := health(); got["model"] != string(models.TierGeneral) {
		t.Fatalf("got %v", got)
	}
}

func TestMetricsAndCORS(t *testing.T) {
	server := testServer(t, true)
	post(t, server, `{"code": "x = 1"}`, "")

	req, err := http.NewRequest(http.MethodGet, server.URL+"/metrics", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Fatalf("got %q", origin)
	}
	if credentials := resp.Header.Get("Access-Control-Allow-Credentials"); credentials != "" {
		t.Fatalf("got %q", credentials)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"taitrace_http_requests_total",
		"taitrace_runs_total",
		"taitrace_explanations_total",
	} {
		if !strings.Contains(string(content), name) {
			t.Fatalf("missing %s", name)
		}
	}
}

func TestCORSAllowList(t *testing.T) {
	handler := corsMiddleware(AllowedOrigins{"http://a.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for _, c := range []struct {
		method      string
		origin      string
		status      int
		allow       string
		credentials string
	}{
		{http.MethodGet, "http://a.example", http.StatusOK, "http://a.example", "true"},
		{http.MethodGet, "http://b.example", http.StatusOK, "", ""},
		{http.MethodGet, "", http.StatusOK, "", ""},
		{http.MethodOptions, "http://a.example", http.StatusNoContent, "http://a.example", "true"},
	} {
		req := httptest.NewRequest(c.method, "/execute", nil)
		if c.origin != "" {
			req.Header.Set("Origin", c.origin)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != c.status {
			t.Fatalf("%s %q: got %d", c.method, c.origin, w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != c.allow {
			t.Fatalf("%s %q: got %q", c.method, c.origin, got)
		}
		if got := w.Header().Get("Access-Control-Allow-Credentials"); got != c.credentials {
			t.Fatalf("%s %q: got %q", c.method, c.origin, got)
		}
	}
}
