package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// ErrStateMismatch is returned when the redirect carries an unexpected state
var ErrStateMismatch = errors.New("oauth state mismatch")

// Callback is a loopback HTTP listener that captures exactly one OAuth
// redirect. The first request carrying a code or an error completes it;
// Wait returns that outcome.
type Callback struct {
	state    string
	listener net.Listener
	server   *http.Server

	once sync.Once
	done chan struct{}
	code string
	err  error
}

// NewCallback listens on a random loopback port. state is compared with
// the state parameter of the redirect.
func NewCallback(state string) (*Callback, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}

	c := &Callback{
		state:    state,
		listener: ln,
		done:     make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", c.handle)
	c.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.complete("", fmt.Errorf("callback server failed: %w", err))
		}
	}()
	return c, nil
}

// RedirectURL is the address to register as the OAuth redirect URI
func (c *Callback) RedirectURL() string {
	return "http://" + c.listener.Addr().String()
}

func (c *Callback) complete(code string, err error) bool {
	fired := false
	c.once.Do(func() {
		c.code = code
		c.err = err
		close(c.done)
		fired = true
	})
	return fired
}

func (c *Callback) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code, state, oauthErr := q.Get("code"), q.Get("state"), q.Get("error")

	if code == "" && oauthErr == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	var err error
	switch {
	case oauthErr != "":
		err = fmt.Errorf("authorization denied: %s", oauthErr)
	case state != c.state:
		err = ErrStateMismatch
	}

	if !c.complete(code, err) {
		http.Error(w, "Authorization already completed", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "Token received. You can now close the browser.\n")
}

// Wait blocks until the redirect arrives or ctx is done
func (c *Callback) Wait(ctx context.Context) (string, error) {
	select {
	case <-c.done:
		if c.err != nil {
			return "", c.err
		}
		return c.code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops the listener
func (c *Callback) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.server.Shutdown(ctx)
}
