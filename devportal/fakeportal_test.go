package devportal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "john.appleseed@example.com"
	testPassword = "secret"
)

// fakePortal serves the login flow and team listing, every other portal endpoint is registered by the test.
type fakePortal struct {
	t      *testing.T
	server *httptest.Server
	mux    *http.ServeMux

	teams []Team

	mu       sync.Mutex
	requests map[string][]url.Values
}

func newFakePortal(t *testing.T, teams ...Team) *fakePortal {
	p := &fakePortal{
		t:        t,
		mux:      http.NewServeMux(),
		teams:    teams,
		requests: map[string][]url.Values{},
	}

	p.mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<a href="https://idmsa.apple.com/IDMSWebAuth/login?appIdKey=891bd3417a7776362562d2197f89480a8547b108fd934911bcbea0110d07f757&path=%2F%2Fmembercenter%2Findex.action">Sign in</a>`))
	})
	p.mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("appIdKey") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("appleId") == testUsername && r.PostForm.Get("accountPassword") == testPassword {
			http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "session-token", Path: "/"})
		}
		_, _ = w.Write([]byte("<html></html>"))
	})
	p.handlePortal("account/listTeams.action", func(form url.Values) interface{} {
		return map[string]interface{}{"teams": p.teams}
	})

	p.server = httptest.NewServer(p.mux)
	t.Cleanup(p.server.Close)

	return p
}

func (p *fakePortal) endpoints() Endpoints {
	return Endpoints{
		Landing:      p.server.URL + "/landing",
		Auth:         p.server.URL + "/auth",
		Portal:       p.server.URL + "/portal/",
		XcodeService: p.server.URL + "/xcode/",
	}
}

// handlePortal registers a JSON portal endpoint. The response is wrapped in a successful envelope unless
// the handler returns its own resultCode.
func (p *fakePortal) handlePortal(endpoint string, handler func(form url.Values) interface{}) {
	p.mux.HandleFunc("/portal/"+endpoint, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(p.t, r.ParseForm())
		p.record(endpoint, r.PostForm)

		resp := map[string]interface{}{"resultCode": 0}
		if body := handler(r.PostForm); body != nil {
			b, err := json.Marshal(body)
			require.NoError(p.t, err)
			require.NoError(p.t, json.Unmarshal(b, &resp))
		}

		w.Header().Set("csrf", "csrf-token")
		w.Header().Set("csrf_ts", "1588765432")
		w.Header().Set("Content-Type", "application/json")
		require.NoError(p.t, json.NewEncoder(w).Encode(resp))
	})
}

func (p *fakePortal) handle(path string, handler http.HandlerFunc) {
	p.mux.HandleFunc(path, handler)
}

func (p *fakePortal) record(endpoint string, form url.Values) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests[endpoint] = append(p.requests[endpoint], form)
}

func (p *fakePortal) recorded(endpoint string) []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[endpoint]
}

func (p *fakePortal) newClient(opts ClientOpts) *Client {
	opts.Endpoints = p.endpoints()
	opts.HTTPClient = &http.Client{}
	if opts.Logger == nil {
		opts.Logger = log.NewLogger()
	}

	client, err := NewClient(opts)
	require.NoError(p.t, err)
	return client
}

func (p *fakePortal) newLoggedInClient(opts ClientOpts) *Client {
	client := p.newClient(opts)
	require.NoError(p.t, client.Login(p.t.Context(), testUsername, testPassword))
	return client
}
