package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/procflow/procflow/model"
	"github.com/rs/zerolog"
)

const (
	DefaultEngineId = "procflow" // Default ID of an engine, used when no specific ID is provided via [Options].
)

// An Engine deploys BPMN processes and creates, executes and manages process instances.
//
// The engine executes each process instance as a single active path: models
// with parallel branches are rejected at deployment time.
type Engine interface {
	// CreateDeployment deploys a BPMN resource and creates a process definition per executable process.
	//
	// Redeploying a BPMN process ID increments the definition version.
	CreateDeployment(context.Context, CreateDeploymentCmd) (Deployment, []ProcessDefinition, error)

	// DeleteDeployment deletes a deployment and its process definitions.
	//
	// Without cascade, the deletion fails with an error of type [ErrorConflict]
	// while process instances of a contained definition are running.
	DeleteDeployment(context.Context, DeleteDeploymentCmd) error

	// StartProcessInstance creates an instance of an existing process definition
	// and advances it until a wait state or the end.
	StartProcessInstance(context.Context, StartProcessInstanceCmd) (ProcessInstance, error)

	// SignalExecution advances an execution that is waiting at a receive task.
	SignalExecution(context.Context, SignalExecutionCmd) error

	// DeleteProcessInstance deletes a running process instance.
	// The historic record is retained and tagged with the delete reason.
	DeleteProcessInstance(context.Context, DeleteProcessInstanceCmd) error

	// DeleteHistoricProcessInstance purges the historic record of an ended or deleted process instance.
	DeleteHistoricProcessInstance(ctx context.Context, processInstanceId string) error

	// CompleteTask completes a user task and advances its execution.
	CompleteTask(context.Context, CompleteTaskCmd) error

	// SetTaskAssignee assigns or unassigns a user task.
	SetTaskAssignee(context.Context, SetTaskAssigneeCmd) error

	// AddIdentityLink relates a user or group to a task.
	AddIdentityLink(context.Context, AddIdentityLinkCmd) error

	// GetIdentityLinks gets the identity links of a task.
	GetIdentityLinks(ctx context.Context, taskId string) ([]IdentityLink, error)

	// GetActiveActivityIds gets the IDs of the BPMN elements an execution is currently at.
	//
	// No order is guaranteed when more than one activity is active.
	GetActiveActivityIds(ctx context.Context, executionId string) ([]string, error)

	// GetVariables gets the variables of an active process instance.
	GetVariables(ctx context.Context, executionId string) (map[string]any, error)

	// SetVariables sets or deletes variables of an active process instance.
	SetVariables(context.Context, SetVariablesCmd) error

	// GetTaskVariables gets the local variables of an active task.
	GetTaskVariables(ctx context.Context, taskId string) (map[string]any, error)

	// SetTaskVariables sets or deletes local variables of an active task.
	SetTaskVariables(context.Context, SetTaskVariablesCmd) error

	// GetHistoricVariables gets the last known process variables of an active or ended process instance.
	GetHistoricVariables(ctx context.Context, processInstanceId string) (map[string]any, error)

	// GetHistoricTaskVariables gets the last known local variables of an active or ended task.
	GetHistoricTaskVariables(ctx context.Context, taskId string) (map[string]any, error)

	// GetParsedDefinition gets a process definition together with its decoded BPMN model.
	GetParsedDefinition(ctx context.Context, processDefinitionId string) (ParsedDefinition, error)

	// GetBpmnXml gets the BPMN XML of an existing process definition.
	GetBpmnXml(ctx context.Context, processDefinitionId string) (string, error)

	// ExecuteJobs executes due jobs, which match the specified conditions.
	//
	// Due jobs are normally handled by the job executor, running inside the engine.
	// When waiting for a due job to be executed during testing, this method must be called!
	ExecuteJobs(context.Context, ExecuteJobsCmd) ([]Job, []Job, error)

	// SetTime increases the engine's time for testing purposes.
	SetTime(context.Context, SetTimeCmd) error

	// CreateQuery creates a query with default options.
	CreateQuery() Query

	// Shutdown shuts the engine down.
	Shutdown()
}

// A Query allows to query entities, using query options.
type Query interface {
	QueryDeployments(context.Context, DeploymentCriteria) ([]Deployment, error)
	QueryProcessDefinitions(context.Context, ProcessDefinitionCriteria) ([]ProcessDefinition, error)
	QueryProcessInstances(context.Context, ProcessInstanceCriteria) ([]ProcessInstance, error)
	QueryExecutions(context.Context, ExecutionCriteria) ([]Execution, error)
	QueryTasks(context.Context, TaskCriteria) ([]Task, error)
	QueryHistoricTasks(context.Context, HistoricTaskCriteria) ([]HistoricTask, error)
	QueryHistoricProcessInstances(context.Context, HistoricProcessInstanceCriteria) ([]HistoricProcessInstance, error)
	QueryJobs(context.Context, JobCriteria) ([]Job, error)

	// SetOptions sets options that are used when performing a query.
	SetOptions(QueryOptions)
}

// A JobHandler is invoked for every job, before the engine advances the related execution.
//
// Returning an error fails the job: a retry job is created until the retry
// count is depleted, in which case the job keeps its error and must be
// resolved manually.
type JobHandler func(ctx context.Context, job Job) error

// Options are common configuration options that are shared between engine implementations.
type Options struct {
	DefaultQueryLimit   int           // Default limit for queries, executed without an explicit limit.
	EngineId            string        // ID of the engine.
	JobExecutorEnabled  bool          // Enables or disables the engine's job executor.
	JobExecutorInterval time.Duration // Interval between execution of due jobs.
	JobExecutorLimit    int           // Maximum number of due jobs to execute at once.
	JobHandler          JobHandler    // Handler, invoked for every executed job.
	JobRetryLimit       int           // Maximum number of job retries.
	Logger              zerolog.Logger

	OnJobExecutionFailure func(Job, error) // Called when the engine failed to execute a due job.
}

func (o Options) Validate() error {
	if strings.TrimSpace(o.EngineId) == "" {
		return errors.New("engine ID must not be empty or blank")
	}
	if o.JobExecutorInterval.Milliseconds() < 1000 {
		return errors.New("job executor interval must be greater than or equal to 1000 ms")
	}
	if o.JobExecutorLimit < 1 {
		return errors.New("job executor limit must be greater than or equal to 1")
	}
	if o.JobExecutorLimit > 1000 {
		return errors.New("job executor limit must be less than or equal to 1000")
	}
	if o.JobRetryLimit < 0 {
		return errors.New("job retry limit must be greater than or equal to 0")
	}

	return nil
}

// QueryOptions are used to limit or offset query results.
// The zero value does not affect a query.
type QueryOptions struct {
	// Limit specifies the maximum number of results to return.
	// If Limit <= 0, the engine's DefaultQueryLimit is applied.
	Limit int
	// Offset specifies the number of results to skip, before returning any result.
	// If Offset <= 0, no results are skipped.
	Offset int
}

// Validate validates that a BPMN model can be executed by a single-path engine.
// If the model is invalid, causes are returned.
func ValidateModel(m *model.Model) []ErrorCause {
	var causes []ErrorCause

	if len(m.Definitions.Processes) == 0 {
		causes = append(causes, ErrorCause{
			Pointer: m.Definitions.Id,
			Type:    "definitions",
			Detail:  "BPMN definitions contain no process",
		})
		return causes
	}

	for _, processElement := range m.Definitions.Processes {
		process, ok := processElement.Model.(model.Process)
		if !ok || !process.IsExecutable {
			causes = append(causes, ErrorCause{
				Pointer: processElement.Id,
				Type:    "process",
				Detail:  "BPMN process " + processElement.Id + " is not executable",
			})
			continue
		}

		if len(processElement.ChildrenByType(model.ElementStartEvent)) != 1 {
			causes = append(causes, ErrorCause{
				Pointer: processElement.Id,
				Type:    "process",
				Detail:  "BPMN process " + processElement.Id + " must have exactly one start event",
			})
		}

		for _, element := range processElement.Children {
			if element.Id == "" {
				causes = append(causes, ErrorCause{
					Pointer: processElement.Id,
					Type:    "element",
					Detail:  "BPMN element of type " + element.Type.String() + " has no ID",
				})
			}

			// a forking element other than an exclusive gateway would activate
			// more than one path at once
			if len(element.Outgoing) > 1 && element.Type != model.ElementExclusiveGateway {
				causes = append(causes, ErrorCause{
					Pointer: element.Id,
					Type:    "element",
					Detail:  "BPMN element " + element.Id + " forks into parallel paths, which is not supported",
				})
			}

			for _, sequenceFlow := range element.Incoming {
				if sequenceFlow.Source == nil {
					causes = append(causes, ErrorCause{
						Pointer: element.Id + "/" + sequenceFlow.Id,
						Type:    "sequence_flow",
						Detail:  "BPMN sequence flow " + sequenceFlow.Id + " has no source element",
					})
				}
			}
			for _, sequenceFlow := range element.Outgoing {
				if sequenceFlow.Target == nil {
					causes = append(causes, ErrorCause{
						Pointer: element.Id + "/" + sequenceFlow.Id,
						Type:    "sequence_flow",
						Detail:  "BPMN sequence flow " + sequenceFlow.Id + " has no target element",
					})
				}
			}
		}
	}

	return causes
}
