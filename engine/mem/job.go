package mem

import (
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/procflow/procflow/engine"
	"github.com/procflow/procflow/model"
)

func (c *memContext) createJob(instance *processInstanceEntity, activityId string, jobType engine.JobType, dueAt time.Time) {
	c.jobs = append(c.jobs, jobEntity{
		Id: c.nextId(),

		ProcessDefinitionId: instance.ProcessDefinitionId,
		ProcessInstanceId:   instance.Id,

		ActivityId: activityId,
		DueAt:      dueAt,
		RetryCount: c.options.Common.JobRetryLimit,
		Type:       jobType,
	})
}

// dueJobs locks due jobs that match the command, up to the command's limit.
func (c *memContext) dueJobs(cmd engine.ExecuteJobsCmd) []engine.Job {
	engineId := c.options.Common.EngineId
	now := c.time()

	var dueJobs []engine.Job
	for i := range c.jobs {
		if len(dueJobs) == cmd.Limit {
			break
		}

		job := &c.jobs[i]
		if job.LockedBy.Valid || job.Error.Valid || job.DueAt.After(now) {
			continue
		}
		if cmd.Id != "" && job.Id != cmd.Id {
			continue
		}
		if cmd.ProcessInstanceId != "" && job.ProcessInstanceId != cmd.ProcessInstanceId {
			continue
		}

		job.LockedBy = pgtype.Text{String: engineId, Valid: true}
		dueJobs = append(dueJobs, job.Job())
	}
	return dueJobs
}

// completeJob finishes the execution of a locked job.
//
// On a handler error, the job is retried until its retry count is depleted.
// A depleted job keeps the error and must be resolved manually.
// Otherwise the job is removed and the related execution is advanced.
func (c *memContext) completeJob(job engine.Job, handlerErr error) error {
	entity, err := c.jobById(job.Id)
	if err == pgx.ErrNoRows {
		return nil // instance ended or deleted in the meantime
	}

	if handlerErr != nil {
		entity.LockedBy = pgtype.Text{}
		if entity.RetryCount > 0 {
			entity.RetryCount--
		} else {
			entity.Error = pgtype.Text{String: handlerErr.Error(), Valid: true}
		}
		return nil
	}

	c.jobs = slices.DeleteFunc(c.jobs, func(e jobEntity) bool {
		return e.Id == job.Id
	})

	instance, err := c.instanceById(job.ProcessInstanceId)
	if err == pgx.ErrNoRows || instance.IsEnded() {
		return nil
	}

	m, element, err := c.activeElement(instance, "failed to complete job")
	if err != nil {
		return err
	}

	// a reminder timer of a user task completes without advancing the execution
	if job.Type == engine.JobTimer && element.Type == model.ElementUserTask {
		return nil
	}

	if element.Id != job.ActivityId {
		return nil // execution has moved on
	}

	return c.advance(instance, m)
}
