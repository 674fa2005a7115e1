package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
)

// Email is the provider payload the service sends.
type Email struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body"`
}

// Mailbox stands in for the mail provider API.
type Mailbox struct {
	mu       sync.Mutex
	received []Email
	server   *http.Server
}

// StartMailbox listens on addr and accepts POST /email.
func StartMailbox(addr string) (*Mailbox, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	m := &Mailbox{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /email", m.receive)
	m.server = &http.Server{Handler: mux}
	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(err)
		}
	}()
	return m, nil
}

func (m *Mailbox) Close() error {
	return m.server.Shutdown(context.Background())
}

func (m *Mailbox) receive(w http.ResponseWriter, r *http.Request) {
	var e Email
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	m.received = append(m.received, e)
	m.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (m *Mailbox) LastTo(recipient string) (Email, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.received) - 1; i >= 0; i-- {
		if m.received[i].To == recipient {
			return m.received[i], true
		}
	}
	return Email{}, false
}
