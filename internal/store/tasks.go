package store

import (
	"context"
	"fmt"
	"time"
)

const taskColumns = `task_id, name, progress, sprint, start_date, owner_id, created_at`

type Tasks struct {
	c conn
}

func scanTask(s scanner) (Task, error) {
	var t Task
	err := s.Scan(&t.ID, &t.Name, &t.Progress, &t.Sprint, scanNullTime(&t.StartDate),
		&t.OwnerID, scanTime(&t.CreatedAt))
	return t, err
}

func taskNotFound(id int64) string { return fmt.Sprintf("Task not found ID:%d", id) }

func (r *Tasks) List(ctx context.Context, f TaskFilter) ([]Task, error) {
	var w where
	if f.Sprint != nil {
		w.add("sprint = ?", *f.Sprint)
	}
	if f.Progress != "" {
		w.add("progress = ?", f.Progress)
	}
	if f.OwnerID != 0 {
		w.add("owner_id = ?", f.OwnerID)
	}
	return queryAll(ctx, r.c, scanTask,
		`SELECT `+taskColumns+` FROM tasks`+w.String()+` ORDER BY task_id`, w.args...)
}

func (r *Tasks) Get(ctx context.Context, id int64) (Task, error) {
	return queryOne(ctx, r.c, taskNotFound(id), scanTask,
		`SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, id)
}

func (r *Tasks) Create(ctx context.Context, ownerID int64, in TaskInput) (Task, error) {
	id, err := r.c.insert(ctx,
		`INSERT INTO tasks (name, progress, sprint, start_date, owner_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING task_id`,
		in.Name, in.Progress, in.Sprint, utc(in.StartDate), ownerID, time.Now().UTC())
	if err != nil {
		return Task{}, err
	}
	return r.Get(ctx, id)
}

// Replace overwrites every mutable field, clearing start_date when in has none.
func (r *Tasks) Replace(ctx context.Context, id int64, in TaskInput) (Task, error) {
	err := r.c.execAffected(ctx, taskNotFound(id),
		`UPDATE tasks SET name = ?, progress = ?, sprint = ?, start_date = ? WHERE task_id = ?`,
		in.Name, in.Progress, in.Sprint, utc(in.StartDate), id)
	if err != nil {
		return Task{}, err
	}
	return r.Get(ctx, id)
}

func (r *Tasks) Update(ctx context.Context, id int64, p TaskPatch) (Task, error) {
	var a assignments
	setIf(&a, "name", p.Name)
	setIf(&a, "progress", p.Progress)
	setIf(&a, "sprint", p.Sprint)
	if p.StartDate != nil {
		a.set("start_date", p.StartDate.UTC())
	}
	if !a.empty() {
		if err := r.c.execAffected(ctx, taskNotFound(id),
			`UPDATE tasks SET `+a.clause()+` WHERE task_id = ?`, append(a.args, id)...); err != nil {
			return Task{}, err
		}
	}
	return r.Get(ctx, id)
}

func (r *Tasks) Delete(ctx context.Context, id int64) error {
	return r.c.execAffected(ctx, taskNotFound(id), `DELETE FROM tasks WHERE task_id = ?`, id)
}
