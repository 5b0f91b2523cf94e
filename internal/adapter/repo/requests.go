// Package repo wraps the inline SQL behind typed repositories shared by the
// HTTP handlers and the worker.
package repo

import (
	"context"
	"errors"

	"genengine/internal/domain"
	"genengine/internal/infra"
	"genengine/internal/sqlinline"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("repo: not found")

// ErrNoJobQueued is returned by Claim when the queue is empty.
var ErrNoJobQueued = errors.New("repo: no job queued")

// RequestRepo persists orchestration jobs in generation_requests.
type RequestRepo struct {
	sql infra.SQLExecutor
}

func NewRequestRepo(sql infra.SQLExecutor) *RequestRepo {
	return &RequestRepo{sql: sql}
}

// Enqueue inserts a queued job and returns its id.
func (r *RequestRepo) Enqueue(ctx context.Context, modality domain.Modality, model string, variantCount int, spec []byte) (string, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QEnqueueRequest, string(modality), model, variantCount, spec)
	var id string
	if err := row.Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// Get loads one job by id.
func (r *RequestRepo) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectRequest, id)
	var job domain.Job
	var modality string
	err := row.Scan(&job.ID, &job.Status, &modality, &job.Model, &job.VariantCount,
		&job.SpecJSON, &job.Properties, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	job.Modality = domain.Modality(modality)
	return &job, nil
}

// Claim atomically moves the oldest queued job to RUNNING and returns it.
// Concurrent workers never receive the same job.
func (r *RequestRepo) Claim(ctx context.Context) (*domain.Job, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QClaimRequest)
	var job domain.Job
	var modality string
	if err := row.Scan(&job.ID, &modality, &job.Model, &job.VariantCount, &job.SpecJSON); err != nil {
		if infra.IsNoRows(err) {
			return nil, ErrNoJobQueued
		}
		return nil, err
	}
	job.Status = domain.JobStatusRunning
	job.Modality = domain.Modality(modality)
	// Detach the payload from pgx's row buffer.
	job.SpecJSON = append([]byte(nil), job.SpecJSON...)
	return &job, nil
}

// UpdateStatus records the terminal state plus an optional summary payload.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, summary []byte) error {
	var props any
	if len(summary) > 0 {
		props = summary
	}
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateRequestStatus, id, string(status), props)
	return err
}

// Stats summarizes queue health for the stats endpoint.
type Stats struct {
	Queued         int64
	Running        int64
	Succeeded      int64
	Partial        int64
	Failed         int64
	RequestsLast24 int64
	AssetsLast24   int64
}

func (r *RequestRepo) Stats(ctx context.Context) (*Stats, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QStatsSummary)
	var s Stats
	err := row.Scan(&s.Queued, &s.Running, &s.Succeeded, &s.Partial, &s.Failed,
		&s.RequestsLast24, &s.AssetsLast24)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
