package adapter

import (
	"context"

	"github.com/procflow/procflow/auth"
	"github.com/procflow/procflow/engine"
	"github.com/procflow/procflow/repo"
	"github.com/rs/zerolog"
)

// NewJobHandler wraps a job handler, so the delegate runs under a resolved
// identity.
//
// For a timer job tied to a user task, the identity is the task's current
// assignee, when set. Otherwise the process initiator variable is resolved to
// a user. When neither yields one, the handler falls back to
// [auth.SystemUserId]. A nil delegate is allowed, in which case only the
// identity is resolved.
func NewJobHandler(e engine.Engine, people repo.PersonService, delegate engine.JobHandler, logger zerolog.Logger) engine.JobHandler {
	return func(ctx context.Context, job engine.Job) error {
		userId := resolveJobUser(ctx, e, people, job)

		logger.Debug().Str("job", job.String()).Str("user", userId).Msg("executing job")

		return auth.RunAs(ctx, userId, func(ctx context.Context) error {
			if delegate == nil {
				return nil
			}
			return delegate(ctx, job)
		})
	}
}

func resolveJobUser(ctx context.Context, e engine.Engine, people repo.PersonService, job engine.Job) string {
	if job.Type == engine.JobTimer {
		tasks, err := e.CreateQuery().QueryTasks(ctx, engine.TaskCriteria{
			ProcessInstanceId: job.ProcessInstanceId,
			TaskDefinitionKey: job.ActivityId,
		})
		if err == nil && len(tasks) != 0 && tasks[0].IsAssigned() {
			return tasks[0].Assignee
		}
	}

	variables, err := e.GetHistoricVariables(ctx, job.ProcessInstanceId)
	if err != nil {
		return auth.SystemUserId
	}

	initiator, ok := variables[varInitiator].(string)
	if !ok || initiator == "" {
		return auth.SystemUserId
	}

	// the initiator is a person node reference, unless the user was unknown
	// when the instance started
	if userId, ok := people.UserIdOf(initiator); ok {
		return userId
	}
	if people.Exists(initiator) {
		return initiator
	}
	return auth.SystemUserId
}
