// Package scheduler re-runs saved analysis goals on an interval and sends
// each result to the chat that scheduled it.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rahul/pipelineai/internal/agent"
	"github.com/rahul/pipelineai/internal/observability"
	"github.com/rahul/pipelineai/internal/session"
	"github.com/rahul/pipelineai/internal/store"
	"github.com/rahul/pipelineai/internal/workflow"
)

const pollInterval = 30 * time.Second

type Messenger interface {
	Send(chatID string, text string) error
}

type TaskStore interface {
	GetPendingTasks() ([]store.Task, error)
	UpdateTaskLastRun(id int64) error
	DeleteTask(id int64) error
}

// SessionArchive keeps a copy of every scheduled run.
type SessionArchive interface {
	SaveSession(rec store.SessionRecord) (store.SessionRecord, error)
}

type Scheduler struct {
	Generator agent.Generator
	Tasks     TaskStore
	Sessions  SessionArchive
	Gateway   Messenger
	Logger    *observability.Logger
	Config    agent.PipelineConfig
	Pacing    workflow.Pacing
	Interval  time.Duration
}

func NewScheduler(gen agent.Generator, tasks TaskStore, sessions SessionArchive, gateway Messenger, logger *observability.Logger) *Scheduler {
	return &Scheduler{
		Generator: gen,
		Tasks:     tasks,
		Sessions:  sessions,
		Gateway:   gateway,
		Logger:    logger,
		Config:    agent.DefaultPipelineConfig(),
		Pacing:    workflow.DefaultPacing,
		Interval:  pollInterval,
	}
}

// Start polls for due tasks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = pollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("Task scheduler started...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.pollAndExecute(ctx)
		}
	}
}

func (s *Scheduler) pollAndExecute(ctx context.Context) {
	tasks, err := s.Tasks.GetPendingTasks()
	if err != nil {
		log.Printf("Error polling tasks: %v", err)
		return
	}

	for _, t := range tasks {
		if ctx.Err() != nil {
			return
		}
		log.Printf("Executing scheduled analysis %d for chat %s: %s", t.ID, t.ChatID, t.Goal)

		digest, err := s.run(ctx, t)
		if err != nil {
			log.Printf("Error executing scheduled analysis %d: %v", t.ID, err)
			continue
		}

		if err := s.Tasks.UpdateTaskLastRun(t.ID); err != nil {
			log.Printf("Error updating last run for task %d: %v", t.ID, err)
		}

		// One-shot tasks have no interval.
		if t.IntervalSeconds == 0 {
			if err := s.Tasks.DeleteTask(t.ID); err != nil {
				log.Printf("Error deleting one-time task %d: %v", t.ID, err)
			}
		}

		if s.Gateway != nil {
			if err := s.Gateway.Send(t.ChatID, "⏰ *Scheduled Analysis*\n\n"+digest); err != nil {
				log.Printf("Error sending scheduled analysis %d: %v", t.ID, err)
			}
		}
	}
}

// run executes one orchestration in a fresh session and archives it.
func (s *Scheduler) run(ctx context.Context, t store.Task) (string, error) {
	st := session.NewStore()
	o := workflow.NewOrchestrator(s.Generator, st, nil, s.Logger)
	o.Pacing = s.Pacing

	if err := o.Run(ctx, workflow.Request{Goal: t.Goal, Config: s.Config}); err != nil {
		return "", fmt.Errorf("run: %w", err)
	}
	snap := st.Snapshot()

	if s.Sessions != nil {
		rec, err := workflow.Record(st.ID(), snap, time.Now())
		if err == nil {
			_, err = s.Sessions.SaveSession(rec)
		}
		if err != nil {
			log.Printf("Error archiving scheduled analysis %d: %v", t.ID, err)
		}
	}
	return workflow.Digest(snap), nil
}
