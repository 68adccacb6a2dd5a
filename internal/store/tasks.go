package store

import (
	"fmt"
)

// MinTaskInterval is the shortest interval, in seconds, a recurring analysis may use.
const MinTaskInterval = 60

// Task is a scheduled analysis. An interval of zero runs it once.
type Task struct {
	ID              int64
	ChatID          string
	Goal            string
	IntervalSeconds int
	LastRun         string
}

// AddTask schedules goal for chatID. New tasks are due immediately.
func (s *Store) AddTask(chatID string, goal string, intervalSeconds int) (int64, error) {
	if intervalSeconds != 0 && intervalSeconds < MinTaskInterval {
		return 0, fmt.Errorf("interval must be 0 or at least %d seconds", MinTaskInterval)
	}
	query := `INSERT INTO tasks (chat_id, goal, interval_seconds, last_run) VALUES (?, ?, ?, datetime('now', '-365 days'))`
	res, err := s.DB.Exec(query, chatID, goal, intervalSeconds)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetPendingTasks returns the active tasks whose interval has elapsed.
func (s *Store) GetPendingTasks() ([]Task, error) {
	query := `
		SELECT id, chat_id, goal, interval_seconds, last_run
		FROM tasks
		WHERE status = 'active'
		AND (last_run IS NULL OR (julianday('now') - julianday(last_run)) * 86400 >= interval_seconds)
		ORDER BY id`
	return s.queryTasks(query)
}

// ListTasks returns every active task of a chat.
func (s *Store) ListTasks(chatID string) ([]Task, error) {
	query := `SELECT id, chat_id, goal, interval_seconds, last_run FROM tasks WHERE chat_id = ? AND status = 'active' ORDER BY id`
	return s.queryTasks(query, chatID)
}

func (s *Store) queryTasks(query string, args ...any) ([]Task, error) {
	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.ChatID, &t.Goal, &t.IntervalSeconds, &t.LastRun); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) UpdateTaskLastRun(id int64) error {
	query := `UPDATE tasks SET last_run = datetime('now') WHERE id = ?`
	_, err := s.DB.Exec(query, id)
	return err
}

func (s *Store) DeleteTask(id int64) error {
	_, err := s.DB.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	return err
}

// ClearTasks removes every task of a chat and reports how many there were.
func (s *Store) ClearTasks(chatID string) (int64, error) {
	res, err := s.DB.Exec(`DELETE FROM tasks WHERE chat_id = ?`, chatID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
