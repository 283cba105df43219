package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paylens/paylens/internal/logging"
	"github.com/paylens/paylens/internal/model"
)

type JobEventType string

const (
	JobEventStatus JobEventType = "status"
	JobEventResult JobEventType = "result"
)

type JobEvent struct {
	JobID string       `json:"job_id"`
	Type  JobEventType `json:"type"`

	Status JobStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`
}

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

// Job is one asynchronous scan with a streamable event channel.
type Job struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenant_id"`
	Domain    string        `json:"domain"`
	Status    JobStatus     `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at,omitzero"`
	Events    chan JobEvent `json:"-"`

	// Result is set once the job reaches done. A failed scan is still a
	// done job: the orchestrator's contract is a returned value.
	Result *model.MerchantScan `json:"result,omitempty"`
}

func (o *Orchestrator) ensureJobMaps() {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	if o.jobs == nil {
		o.jobs = make(map[string]*Job)
	}
	if o.jobCancels == nil {
		o.jobCancels = make(map[string]context.CancelFunc)
	}
}

func (o *Orchestrator) emitJobEvent(jobID string, ev JobEvent) {
	o.jobsMu.Lock()
	job, ok := o.jobs[jobID]
	o.jobsMu.Unlock()
	if !ok || job == nil || job.Events == nil {
		return
	}

	// Non-blocking send; drop if buffer is full.
	select {
	case job.Events <- ev:
	default:
	}
}

// StartScanJob launches a scan in the background and returns immediately.
// Callers follow progress via the job's event channel or GetJob polling.
func (o *Orchestrator) StartScanJob(ctx context.Context, opts ScanOptions) (*Job, error) {
	o.ensureJobMaps()

	jobID := uuid.New().String()
	job := &Job{
		ID:        jobID,
		TenantID:  opts.TenantID,
		Domain:    opts.URL,
		Status:    JobPending,
		StartedAt: time.Now().UTC(),
		Events:    make(chan JobEvent, 16),
	}

	o.jobsMu.Lock()
	o.jobs[jobID] = job
	o.jobsMu.Unlock()

	jobCtx, cancel := context.WithCancel(ctx)
	o.jobsMu.Lock()
	o.jobCancels[jobID] = cancel
	o.jobsMu.Unlock()

	o.emitJobEvent(jobID, JobEvent{JobID: jobID, Type: JobEventStatus, Status: JobPending})

	go func() {
		defer func() {
			cancel()

			o.jobsMu.Lock()
			if j, ok := o.jobs[jobID]; ok {
				j.EndedAt = time.Now().UTC()
			}
			delete(o.jobCancels, jobID)
			j := o.jobs[jobID]
			o.jobsMu.Unlock()

			// Close events channel so websocket loops terminate cleanly.
			if j != nil && j.Events != nil {
				close(j.Events)
			}
			o.scheduleJobCleanup(jobID)
		}()

		o.jobsMu.Lock()
		if j, ok := o.jobs[jobID]; ok {
			j.Status = JobRunning
		}
		o.jobsMu.Unlock()
		o.emitJobEvent(jobID, JobEvent{JobID: jobID, Type: JobEventStatus, Status: JobRunning})

		scan := o.Scan(jobCtx, opts)

		select {
		case <-jobCtx.Done():
			o.jobsMu.Lock()
			if j, ok := o.jobs[jobID]; ok {
				j.Status = JobCanceled
				j.Error = jobCtx.Err().Error()
			}
			o.jobsMu.Unlock()
			o.emitJobEvent(jobID, JobEvent{
				JobID:  jobID,
				Type:   JobEventStatus,
				Status: JobCanceled,
				Error:  jobCtx.Err().Error(),
			})
		default:
			status := JobDone
			if scan.Status == model.ScanFailed {
				status = JobFailed
			}
			o.jobsMu.Lock()
			if j, ok := o.jobs[jobID]; ok {
				j.Status = status
				j.Result = scan
				j.Error = scan.ErrorMessage
			}
			o.jobsMu.Unlock()
			o.emitJobEvent(jobID, JobEvent{
				JobID:  jobID,
				Type:   JobEventResult,
				Status: status,
				Error:  scan.ErrorMessage,
			})
		}
	}()

	return job, nil
}

// scheduleJobCleanup drops a finished job from the map after the retention
// window so the job table does not grow without bound.
func (o *Orchestrator) scheduleJobCleanup(jobID string) {
	retention := o.cfg.JobRetentionTime
	if retention <= 0 {
		return
	}
	time.AfterFunc(retention, func() {
		o.jobsMu.Lock()
		delete(o.jobs, jobID)
		o.jobsMu.Unlock()
	})
}

func (o *Orchestrator) CancelJob(jobID string) {
	o.jobsMu.Lock()
	cancel := o.jobCancels[jobID]
	o.jobsMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (o *Orchestrator) GetJob(jobID string) *Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	return o.jobs[jobID]
}

func (o *Orchestrator) ListJobs() []*Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	jobs := make([]*Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		jobs = append(jobs, j)
	}
	return jobs
}

// Close cancels every in-flight job.
func (o *Orchestrator) Close() {
	o.jobsMu.Lock()
	cancels := make([]context.CancelFunc, 0, len(o.jobCancels))
	for _, cancel := range o.jobCancels {
		cancels = append(cancels, cancel)
	}
	o.jobsMu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if logger := o.logger; logger != nil {
		logger.Info("orchestrator closed", logging.Field{Key: "canceled_jobs", Value: len(cancels)})
	}
}
