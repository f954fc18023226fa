package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aurawell/go-coach-backend/internal/domain"
	"github.com/aurawell/go-coach-backend/internal/openai"
)

// stubChat implements ChatModel with a scripted response per call.
type stubChat struct {
	resp *openai.ChatResponse
	err  error

	requests []openai.ChatRequest
}

func (s *stubChat) ChatCompletion(ctx context.Context, req openai.ChatRequest) (*openai.ChatResponse, error) {
	s.requests = append(s.requests, req)
	return s.resp, s.err
}

// chatText builds a single-choice assistant response the way the wire decoder
// would.
func chatText(content string) *openai.ChatResponse {
	raw := fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, content)
	var r openai.ChatResponse
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		panic(err)
	}
	return &r
}

func newReplyDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("reply_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Entry{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedEntries(t *testing.T, db *gorm.DB, senderID string, n int) {
	t.Helper()
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		e := domain.Entry{
			ID:        fmt.Sprintf("%s-%03d", senderID, i),
			SenderID:  senderID,
			Role:      role,
			Content:   fmt.Sprintf("turn %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(&e).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestGenerateReply_UsesModelContent(t *testing.T) {
	db := newReplyDB(t)
	seedEntries(t, db, "s1", 2)

	chat := &stubChat{resp: chatText("Keep it up!")}
	svc := &ReplyService{DB: db, LLM: chat, HistoryWindow: 20}

	reply, history := svc.GenerateReply(context.Background(), "s1")
	if reply != "Keep it up!" {
		t.Fatalf("reply = %q", reply)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d entries", len(history))
	}

	if len(chat.requests) != 1 {
		t.Fatalf("expected 1 completion call, got %d", len(chat.requests))
	}
	req := chat.requests[0]
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Fatalf("request messages = %+v", req.Messages)
	}
	if !strings.Contains(req.Messages[0].Content, "wellness coach") {
		t.Fatalf("system prompt missing persona: %q", req.Messages[0].Content)
	}
	// User turns appear as "You:", assistant turns as "Aura:".
	transcript := req.Messages[1].Content
	if !strings.Contains(transcript, "You: turn 0") || !strings.Contains(transcript, "Aura: turn 1") {
		t.Fatalf("transcript = %q", transcript)
	}
	if len(req.Tools) != 2 {
		t.Fatalf("expected task tools to be advertised, got %d", len(req.Tools))
	}
	if req.Temperature != 0.7 || req.MaxTokens != 500 {
		t.Fatalf("sampling params = %v/%v", req.Temperature, req.MaxTokens)
	}
}

func TestGenerateReply_EmptyHistorySendsHello(t *testing.T) {
	db := newReplyDB(t)
	chat := &stubChat{resp: chatText("Welcome!")}
	svc := &ReplyService{DB: db, LLM: chat}

	if reply, _ := svc.GenerateReply(context.Background(), "fresh"); reply != "Welcome!" {
		t.Fatalf("reply = %q", reply)
	}
	if got := chat.requests[0].Messages[1].Content; got != "Hello" {
		t.Fatalf("transcript for empty history = %q", got)
	}
}

func TestGenerateReply_WindowCapsHistory(t *testing.T) {
	db := newReplyDB(t)
	seedEntries(t, db, "s1", 25)

	chat := &stubChat{resp: chatText("ok")}
	svc := &ReplyService{DB: db, LLM: chat, HistoryWindow: 20}

	_, history := svc.GenerateReply(context.Background(), "s1")
	if len(history) != 20 {
		t.Fatalf("history = %d entries, want 20", len(history))
	}
	// Window keeps the newest turns, oldest first.
	if history[0].Content != "turn 5" || history[19].Content != "turn 24" {
		t.Fatalf("window bounds = %q .. %q", history[0].Content, history[19].Content)
	}
	transcript := chat.requests[0].Messages[1].Content
	if strings.Contains(transcript, "turn 4\n") || !strings.Contains(transcript, "turn 24") {
		t.Fatalf("transcript window wrong: %q", transcript)
	}
}

func TestGenerateReply_FallbackOnModelError(t *testing.T) {
	db := newReplyDB(t)
	seedEntries(t, db, "s1", 1)

	chat := &stubChat{err: errors.New("rate limited")}
	svc := &ReplyService{DB: db, LLM: chat, pick: func(n int) int { return 2 }}

	reply, history := svc.GenerateReply(context.Background(), "s1")
	if reply != fallbackReplies[2] {
		t.Fatalf("reply = %q, want fallback 2", reply)
	}
	if len(history) != 1 {
		t.Fatalf("fallback should keep the loaded history, got %d", len(history))
	}
}

func TestGenerateReply_DefaultOnEmptyContent(t *testing.T) {
	db := newReplyDB(t)
	chat := &stubChat{resp: chatText("")}
	svc := &ReplyService{DB: db, LLM: chat}

	if reply, _ := svc.GenerateReply(context.Background(), "s1"); reply != defaultReply {
		t.Fatalf("reply = %q, want default", reply)
	}
}

func TestClassifyIntent(t *testing.T) {
	cases := []struct {
		name string
		resp *openai.ChatResponse
		err  error
		want domain.Intent
	}{
		{"reminder", chatText(`{"type":"reminder","content":"drink water"}`), nil,
			domain.Intent{Type: domain.IntentReminder, Content: "drink water"}},
		{"goal", chatText(`{"type":"goal","content":"run 10k"}`), nil,
			domain.Intent{Type: domain.IntentGoal, Content: "run 10k"}},
		{"code fenced", chatText("```json\n{\"type\":\"reminder\",\"content\":\"stretch\"}\n```"), nil,
			domain.Intent{Type: domain.IntentReminder, Content: "stretch"}},
		{"empty object", chatText(`{}`), nil, domain.Intent{}},
		{"empty content", chatText(""), nil, domain.Intent{}},
		{"unparsable", chatText(`not json at all`), nil, domain.Intent{}},
		{"unknown kind", chatText(`{"type":"appointment","content":"dentist"}`), nil, domain.Intent{}},
		{"model error", nil, errors.New("boom"), domain.Intent{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chat := &stubChat{resp: tc.resp, err: tc.err}
			svc := &ReplyService{LLM: chat}

			got := svc.ClassifyIntent(context.Background(), "user: remind me to drink water")
			if got != tc.want {
				t.Fatalf("intent = %+v, want %+v", got, tc.want)
			}
			if tc.err == nil && len(chat.requests) == 1 {
				req := chat.requests[0]
				if req.Temperature != 0.1 || req.MaxTokens != 100 {
					t.Fatalf("classifier params = %v/%v", req.Temperature, req.MaxTokens)
				}
				if len(req.Tools) != 0 {
					t.Fatalf("classifier must not advertise tools")
				}
			}
		})
	}
}

func TestRoleTranscript(t *testing.T) {
	entries := []domain.Entry{
		{Role: domain.RoleUser, Content: "remind me to stretch"},
		{Role: domain.RoleAssistant, Content: "Will do!"},
	}
	got := RoleTranscript(entries)
	want := "user: remind me to stretch\nassistant: Will do!"
	if got != want {
		t.Fatalf("transcript = %q, want %q", got, want)
	}
	if RoleTranscript(nil) != "" {
		t.Fatalf("empty history should yield empty transcript")
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct{ in, want string }{
		{"{}", "{}"},
		{"```json\n{}\n```", "{}"},
		{"```\n{}\n```", "{}"},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Fatalf("stripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
