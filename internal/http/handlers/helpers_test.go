package handlers_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/mlima/intake-backend/internal/api/router"
	"github.com/mlima/intake-backend/internal/assignment"
	"github.com/mlima/intake-backend/internal/conversation"
	"github.com/mlima/intake-backend/internal/flow"
	"github.com/mlima/intake-backend/internal/http/handlers"
	"github.com/mlima/intake-backend/internal/lawyers"
	"github.com/mlima/intake-backend/internal/leads"
	"github.com/mlima/intake-backend/internal/session"
)

type memorySender struct {
	mu   sync.Mutex
	sent map[string][]string
}

func newMemorySender() *memorySender {
	return &memorySender{sent: make(map[string][]string)}
}

func (m *memorySender) Send(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[to] = append(m.sent[to], body)
	return nil
}

func (m *memorySender) messagesTo(to string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent[to]...)
}

type testApp struct {
	http    http.Handler
	store   *session.MemoryStore
	repo    *leads.InMemoryRepository
	sender  *memorySender
	service *assignment.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store := session.NewMemoryStore()
	repo := leads.NewInMemoryRepository()
	sender := newMemorySender()
	directory := lawyers.NewDirectory([]lawyers.Lawyer{
		{ID: "maria", Name: "Advogada Maria Fernanda", Phone: "555195690381"},
		{ID: "ricardo", Name: "Advogado Ricardo", Phone: "5511959840099"},
	})
	assignments := assignment.NewService(repo, directory, sender, "https://intake.example.com", nil,
		assignment.WithRetryPolicy(1, 0), assignment.WithFanoutPause(0))

	flows := flow.NewStaticSource(flow.Default())
	finalizer := conversation.NewFinalizer(assignments, flows, sender, nil, conversation.WithSyncSideEffects())
	engine := conversation.NewEngine(store, flows, nil, finalizer, nil)

	h := router.New(&router.Config{
		Conversation:       handlers.NewConversationHandler(engine, nil),
		WhatsApp:           handlers.NewWhatsAppHandler(engine, sender, nil),
		Claim:              handlers.NewClaimHandler(assignments, nil),
		Health:             handlers.NewHealthHandler(nil, "test"),
		CORSAllowedOrigins: []string{"*"},
	})

	return &testApp{http: h, store: store, repo: repo, sender: sender, service: assignments}
}
