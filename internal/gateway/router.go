package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rahul/pipelineai/internal/agent"
	"github.com/rahul/pipelineai/internal/observability"
	"github.com/rahul/pipelineai/internal/session"
	"github.com/rahul/pipelineai/internal/store"
	"github.com/rahul/pipelineai/internal/workflow"
)

const (
	BusyReply   = "An analysis is already running for this chat. Please wait for it to finish."
	NoRunReply  = "No analysis has been run in this chat yet. Start one with /run <goal>."
	HelpReply   = "Commands:\n/run <goal> - plan, code and report an analysis\n/status - show the latest analysis\n/schedule <seconds> <goal> - re-run an analysis on an interval (0 runs once)\n/clear - forget chat history and scheduled analyses\n/help - this message\n\nAnything else is answered by the assistant."
	usageRun    = "Usage: /run <goal>"
	usageSched  = "Usage: /schedule <seconds> <goal>"
	clearedChat = "Chat history cleared. Removed %d scheduled analyses."
)

// Asker answers free-form chat messages.
type Asker interface {
	Ask(ctx context.Context, chatID string, message string) (string, error)
}

// Tasks is the scheduled-analysis table the router manages.
type Tasks interface {
	AddTask(chatID string, goal string, intervalSeconds int) (int64, error)
	ClearTasks(chatID string) (int64, error)
}

// Memory is the chat history the router can wipe.
type Memory interface {
	ClearHistory(chatID string) error
}

// Archive stores finished sessions.
type Archive interface {
	SaveSession(rec store.SessionRecord) (store.SessionRecord, error)
}

// Router dispatches slash commands and hands everything else to the assistant.
// Each chat keeps its own session so runs in different chats never collide.
type Router struct {
	Generator agent.Generator
	Assistant Asker
	Tasks     Tasks
	Memory    Memory
	Sessions  Archive
	Logger    *observability.Logger
	Config    agent.PipelineConfig
	Pacing    workflow.Pacing

	mu    sync.Mutex
	chats map[string]*chat
}

type chat struct {
	store *session.Store
	orch  *workflow.Orchestrator
	ran   bool
}

func NewRouter(gen agent.Generator, assistant Asker, logger *observability.Logger) *Router {
	return &Router{
		Generator: gen,
		Assistant: assistant,
		Logger:    logger,
		Config:    agent.DefaultPipelineConfig(),
		Pacing:    workflow.DefaultPacing,
		chats:     make(map[string]*chat),
	}
}

func (r *Router) Handle(ctx context.Context, chatID string, text string) string {
	text = strings.TrimSpace(text)
	cmd, rest := splitCommand(text)

	switch cmd {
	case "/start", "/help":
		return HelpReply
	case "/run":
		return r.run(ctx, chatID, rest)
	case "/status":
		return r.status(chatID)
	case "/schedule":
		return r.schedule(chatID, rest)
	case "/clear":
		return r.clear(chatID)
	}

	if r.Assistant == nil {
		return agent.FallbackChat
	}
	reply, err := r.Assistant.Ask(ctx, chatID, text)
	if err != nil {
		log.Printf("Error thinking: %v", err)
		return agent.FallbackChat
	}
	return reply
}

func (r *Router) chatFor(chatID string) *chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chats == nil {
		r.chats = make(map[string]*chat)
	}
	c, ok := r.chats[chatID]
	if !ok {
		st := session.NewStore()
		o := workflow.NewOrchestrator(r.Generator, st, nil, r.Logger)
		o.Pacing = r.Pacing
		c = &chat{store: st, orch: o}
		r.chats[chatID] = c
	}
	return c
}

func (r *Router) run(ctx context.Context, chatID, goal string) string {
	if goal == "" {
		return usageRun
	}
	c := r.chatFor(chatID)
	err := c.orch.Run(ctx, workflow.Request{Goal: goal, Config: r.Config})
	if errors.Is(err, workflow.ErrAlreadyRunning) {
		return BusyReply
	}
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	r.mu.Lock()
	c.ran = true
	r.mu.Unlock()

	snap := c.store.Snapshot()
	if r.Sessions != nil {
		rec, err := workflow.Record(c.store.ID(), snap, time.Now())
		if err == nil {
			_, err = r.Sessions.SaveSession(rec)
		}
		if err != nil {
			log.Printf("Error archiving session for chat %s: %v", chatID, err)
		}
	}
	return workflow.Digest(snap)
}

func (r *Router) status(chatID string) string {
	c := r.chatFor(chatID)
	r.mu.Lock()
	ran := c.ran
	r.mu.Unlock()

	if c.orch.Running() {
		s := observability.GetStatus()
		return fmt.Sprintf("Analysis in progress: %s %s %s", s.ActiveAgent, s.AgentStatus, s.ActiveTask)
	}
	if !ran {
		return NoRunReply
	}
	return workflow.Digest(c.store.Snapshot())
}

func (r *Router) schedule(chatID, args string) string {
	if r.Tasks == nil {
		return "Scheduling is not available."
	}
	secs, goal := splitCommand(args)
	interval, err := strconv.Atoi(secs)
	if err != nil || goal == "" {
		return usageSched
	}
	id, err := r.Tasks.AddTask(chatID, goal, interval)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if interval == 0 {
		return fmt.Sprintf("Scheduled analysis #%d to run once: %s", id, goal)
	}
	return fmt.Sprintf("Scheduled analysis #%d every %d seconds: %s", id, interval, goal)
}

func (r *Router) clear(chatID string) string {
	if r.Memory != nil {
		if err := r.Memory.ClearHistory(chatID); err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
	}
	var n int64
	if r.Tasks != nil {
		var err error
		if n, err = r.Tasks.ClearTasks(chatID); err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
	}
	return fmt.Sprintf(clearedChat, n)
}

// splitCommand returns the first word of s and the trimmed remainder. A
// Telegram-style "@botname" suffix on the command is dropped.
func splitCommand(s string) (string, string) {
	s = strings.TrimSpace(s)
	head, rest, _ := strings.Cut(s, " ")
	if strings.HasPrefix(head, "/") {
		head, _, _ = strings.Cut(head, "@")
	}
	return head, strings.TrimSpace(rest)
}
