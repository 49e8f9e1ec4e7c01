package loopback

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/dgellow/research-hub/internal/hub"
	"github.com/dgellow/research-hub/internal/log"
	"github.com/dgellow/research-hub/internal/server"
	"github.com/dgellow/research-hub/internal/urlutil"
)

// Controller is the part of the session controller the receiver drives
type Controller interface {
	PageLoad(ctx context.Context, pageURL string) (hub.Landing, error)
	Session() (hub.Session, bool)
}

// Result is the outcome of the first redirect the receiver processed
type Result struct {
	Landing hub.Landing
	Err     error
}

// Receiver plays the page ORCID redirects back to. It listens on the host
// of the redirect URI, hands the redirect to the controller, and then sends
// the browser to the query-less URL so the code never stays in the address
// bar or history.
type Receiver struct {
	controller Controller
	origin     string
	path       string
	listener   net.Listener
	http       *server.HTTPServer

	mu      sync.Mutex
	last    *Result
	once    sync.Once
	results chan Result
}

// Listen binds the redirect URI's host and starts serving.
func Listen(redirectURI string, controller Controller) (*Receiver, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid redirect uri %q", redirectURI)
	}
	addr, err := urlutil.Host(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect uri %q: %w", redirectURI, err)
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	origin := u.Scheme + "://" + u.Host
	if u.Port() == "0" {
		origin = u.Scheme + "://" + l.Addr().String()
	}
	r := &Receiver{
		controller: controller,
		origin:     origin,
		path:       path,
		listener:   l,
		results:    make(chan Result, 1),
	}
	r.http = server.NewHTTPServer(r, l.Addr().String())

	go func() {
		if err := r.http.Serve(l); err != nil {
			log.LogErrorWithFields("loopback", "Receiver stopped", map[string]any{
				"error": err.Error(),
			})
		}
	}()
	return r, nil
}

// Addr returns the address the receiver listens on
func (r *Receiver) Addr() string {
	return r.listener.Addr().String()
}

// Wait blocks until the first redirect has been processed or ctx is done.
func (r *Receiver) Wait(ctx context.Context) (Result, error) {
	select {
	case res := <-r.results:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Close stops the receiver
func (r *Receiver) Close(ctx context.Context) error {
	return r.http.Stop(ctx)
}

func (r *Receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != r.path {
		http.NotFound(w, req)
		return
	}
	if req.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if req.URL.RawQuery == "" {
		r.render(w)
		return
	}

	// The exchange must finish even if the browser goes away
	ctx := context.WithoutCancel(req.Context())
	landing, err := r.controller.PageLoad(ctx, r.origin+req.URL.RequestURI())
	r.record(Result{Landing: landing, Err: err})

	target := r.path
	if u, perr := url.Parse(landing.URL); perr == nil && u.Path != "" {
		target = u.Path
	}
	http.Redirect(w, req, target, http.StatusSeeOther)
}

func (r *Receiver) record(res Result) {
	r.mu.Lock()
	r.last = &res
	r.mu.Unlock()

	r.once.Do(func() {
		r.results <- res
	})
}

func (r *Receiver) render(w http.ResponseWriter) {
	r.mu.Lock()
	last := r.last
	r.mu.Unlock()

	data := StatusPageData{
		Title:       "Waiting for ORCID",
		Message:     "Finish signing in on the ORCID page.",
		MessageType: "pending",
	}
	switch {
	case last == nil:
	case last.Err != nil:
		data.Title = "Sign-in failed"
		data.MessageType = "error"
		data.Message = "Sign-in was not completed. Please try again."
		if hub.UserVisible(last.Err) {
			data.Message = last.Err.Error()
		}
	case last.Landing.State == hub.Authenticated:
		data.Title = "Signed in"
		data.MessageType = "success"
		data.Message = "Your ORCID session is ready."
		if s, ok := r.controller.Session(); ok {
			data.ORCID = s.ORCID
			data.DisplayName = s.DisplayName
		}
	default:
		data.Title = "Not signed in"
		data.MessageType = "error"
		data.Message = "Sign-in was not completed. Please try again."
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := statusPageTemplate.Execute(w, data); err != nil {
		log.LogErrorWithFields("loopback", "Failed to render status page", map[string]any{
			"error": err.Error(),
		})
	}
}
