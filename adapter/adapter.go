package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/procflow/procflow/auth"
	"github.com/procflow/procflow/engine"
	"github.com/procflow/procflow/model"
	"github.com/procflow/procflow/repo"
	"github.com/procflow/procflow/workflow"
	"github.com/rs/zerolog"
)

// InternalCategory marks deployments made by the system itself, e.g. at startup.
const InternalCategory = "internal"

// Options configure an [Adapter].
type Options struct {
	// EngineId prefixes every global identifier.
	EngineId string
	// MultiTenantDeployment qualifies definition keys per tenant domain.
	// When disabled, tenant isolation falls back to a hidden variable
	// equality check on native queries.
	MultiTenantDeployment bool
	// Strict propagates conversion failures of individual query results.
	// Otherwise a failed result is dropped as not found.
	Strict bool

	Logger zerolog.Logger
}

func NewOptions() Options {
	return Options{
		EngineId: engine.DefaultEngineId,
		Logger:   zerolog.Nop(),
	}
}

func (o Options) Validate() error {
	if strings.TrimSpace(o.EngineId) == "" {
		return errors.New("engine ID must not be empty or blank")
	}
	if strings.Contains(o.EngineId, idSeparator) {
		return fmt.Errorf("engine ID must not contain the ID separator %q", idSeparator)
	}
	return nil
}

// Services bundles the repository collaborators of an [Adapter].
type Services struct {
	Authorities repo.AuthorityService
	Dictionary  repo.DictionaryService
	Messages    repo.MessageService
	Nodes       repo.NodeService
	People      repo.PersonService
	Tenants     repo.TenantService
}

func (s Services) Validate() error {
	if s.Authorities == nil {
		return errors.New("authority service must not be nil")
	}
	if s.Dictionary == nil {
		return errors.New("dictionary service must not be nil")
	}
	if s.Messages == nil {
		return errors.New("message service must not be nil")
	}
	if s.Nodes == nil {
		return errors.New("node service must not be nil")
	}
	if s.People == nil {
		return errors.New("person service must not be nil")
	}
	if s.Tenants == nil {
		return errors.New("tenant service must not be nil")
	}
	return nil
}

// An Adapter exposes a native process engine through the generic workflow
// object model.
//
// The adapter is stateless and safe for concurrent use: it holds no mutable
// fields beyond its injected collaborators. Concurrency control is the
// engine's responsibility.
type Adapter struct {
	engine   engine.Engine
	services Services
	options  Options

	converter  *typeConverter
	properties *propertyConverter

	logger zerolog.Logger
}

// New creates an adapter for the given engine, using the provided repository
// services.
func New(e engine.Engine, services Services, customizers ...func(*Options)) (*Adapter, error) {
	if e == nil {
		return nil, errors.New("engine must not be nil")
	}
	if err := services.Validate(); err != nil {
		return nil, err
	}

	options := NewOptions()
	for _, customizer := range customizers {
		customizer(&options)
	}

	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("options are invalid: %v", err)
	}

	properties := &propertyConverter{
		dictionary: services.Dictionary,
		nodes:      services.Nodes,
		people:     services.People,

		logger: options.Logger,
	}

	return &Adapter{
		engine:   e,
		services: services,
		options:  options,

		converter: &typeConverter{
			engineId: options.EngineId,
			engine:   e,

			dictionary: services.Dictionary,
			properties: properties,
			tenants:    services.Tenants,

			multiTenant: options.MultiTenantDeployment,

			logger: options.Logger,
		},
		properties: properties,

		logger: options.Logger,
	}, nil
}

// newError builds a workflow error with a localized detail message.
func (a *Adapter) newError(errorType workflow.ErrorType, err error, args ...any) error {
	return workflow.Error{
		Type:   errorType,
		Detail: a.services.Messages.Message(errorType.MessageKey(), args...),
		Err:    err,
	}
}

// failure wraps a native engine error at the adapter boundary.
func (a *Adapter) failure(err error, args ...any) error {
	return a.newError(workflow.ErrEngineFailure, err, args...)
}

// qualifiedKey prefixes a definition key with the caller's tenant domain,
// when multi-tenant deployment mode is enabled.
func (a *Adapter) qualifiedKey(ctx context.Context, key string) string {
	if !a.options.MultiTenantDeployment || !a.services.Tenants.IsEnabled() {
		return key
	}
	return a.services.Tenants.QualifyName(ctx, key)
}

// deployment

// Deploy deploys a BPMN resource and returns the deployment together with the
// first contained definition.
//
// Model validation problems do not fail the call: they are reported via
// [workflow.Deployment] problems instead. Internal deployments are marked
// with [InternalCategory], so they can be told apart from user deployments.
func (a *Adapter) Deploy(ctx context.Context, resourceName string, bpmnXml string, internal bool) (*workflow.Deployment, error) {
	if a.options.MultiTenantDeployment && a.services.Tenants.IsEnabled() {
		m, err := model.New(strings.NewReader(bpmnXml))
		if err != nil {
			return &workflow.Deployment{ResourceName: resourceName, Problems: []string{err.Error()}}, nil
		}

		// definition keys are tenant-qualified by rewriting the process IDs
		for _, process := range m.Definitions.Processes {
			qualified := a.services.Tenants.QualifyName(ctx, process.Id)
			if qualified != process.Id {
				bpmnXml = strings.Replace(bpmnXml, fmt.Sprintf("id=%q", process.Id), fmt.Sprintf("id=%q", qualified), 1)
			}
		}
	}

	var category string
	if internal {
		category = InternalCategory
	}

	deployment, definitions, err := a.engine.CreateDeployment(ctx, engine.CreateDeploymentCmd{
		BpmnXml:      bpmnXml,
		Category:     category,
		Name:         resourceName,
		ResourceName: resourceName,
	})
	if err != nil {
		var engineErr engine.Error
		if errors.As(err, &engineErr) && engineErr.Type == engine.ErrorProcessModel {
			problems := make([]string, len(engineErr.Causes))
			for i, cause := range engineErr.Causes {
				problems[i] = cause.String()
			}
			return &workflow.Deployment{ResourceName: resourceName, Problems: problems}, nil
		}
		return nil, a.failure(err, resourceName)
	}

	result := workflow.Deployment{
		DeployedAt:   deployment.DeployedAt,
		ResourceName: resourceName,
	}

	if len(definitions) != 0 {
		definition, err := a.converter.definition(ctx, definitions[0])
		if err != nil {
			return nil, err
		}
		result.Definition = *definition
	}

	return &result, nil
}

// IsDeployed determines if the process of a BPMN resource is already deployed.
//
// The process ID is extracted from the XML directly, so the check does not
// register a deployment.
func (a *Adapter) IsDeployed(ctx context.Context, bpmnXml string) (bool, error) {
	m, err := model.New(strings.NewReader(bpmnXml))
	if err != nil {
		return false, a.newError(workflow.ErrInvalidFormat, err)
	}
	if len(m.Definitions.Processes) == 0 {
		return false, nil
	}

	key := a.qualifiedKey(ctx, m.Definitions.Processes[0].Id)

	definitions, err := a.engine.CreateQuery().QueryProcessDefinitions(ctx, engine.ProcessDefinitionCriteria{Key: key})
	if err != nil {
		return false, a.failure(err, key)
	}
	return len(definitions) != 0, nil
}

// Undeploy deletes the deployment a definition belongs to, cascading to its
// process instances.
func (a *Adapter) Undeploy(ctx context.Context, definitionId string) error {
	localId, err := LocalId(a.options.EngineId, definitionId)
	if err != nil {
		return err
	}

	definitions, err := a.engine.CreateQuery().QueryProcessDefinitions(ctx, engine.ProcessDefinitionCriteria{Id: localId})
	if err != nil {
		return a.failure(err, definitionId)
	}
	if len(definitions) == 0 {
		return a.newError(workflow.ErrUnknownDefinition, nil, definitionId)
	}

	err = a.engine.DeleteDeployment(ctx, engine.DeleteDeploymentCmd{Id: definitions[0].DeploymentId, Cascade: true})
	if err != nil {
		return a.failure(err, definitionId)
	}
	return nil
}

// definitions

// Definitions returns all deployed definitions, visible in the caller's
// tenant domain.
func (a *Adapter) Definitions(ctx context.Context) ([]*workflow.Definition, error) {
	return a.queryDefinitions(ctx, engine.ProcessDefinitionCriteria{})
}

// LatestDefinitions returns the highest deployed version per definition key,
// visible in the caller's tenant domain.
func (a *Adapter) LatestDefinitions(ctx context.Context) ([]*workflow.Definition, error) {
	return a.queryDefinitions(ctx, engine.ProcessDefinitionCriteria{LatestVersion: true})
}

// DefinitionById returns a definition, or nil, if no such definition exists.
func (a *Adapter) DefinitionById(ctx context.Context, definitionId string) (*workflow.Definition, error) {
	localId, err := LocalId(a.options.EngineId, definitionId)
	if err != nil {
		return nil, err
	}

	definitions, err := a.queryDefinitions(ctx, engine.ProcessDefinitionCriteria{Id: localId})
	if err != nil || len(definitions) == 0 {
		return nil, err
	}
	return definitions[0], nil
}

// DefinitionByName returns the latest deployed version of a named definition,
// or nil, if no such definition exists. The name is tenant-qualified before
// the lookup.
func (a *Adapter) DefinitionByName(ctx context.Context, name string) (*workflow.Definition, error) {
	key := a.qualifiedKey(ctx, name)

	definitions, err := a.queryDefinitions(ctx, engine.ProcessDefinitionCriteria{Key: key, LatestVersion: true})
	if err != nil || len(definitions) == 0 {
		return nil, err
	}
	return definitions[0], nil
}

func (a *Adapter) queryDefinitions(ctx context.Context, criteria engine.ProcessDefinitionCriteria) ([]*workflow.Definition, error) {
	natives, err := a.engine.CreateQuery().QueryProcessDefinitions(ctx, criteria)
	if err != nil {
		return nil, a.failure(err)
	}

	if a.options.MultiTenantDeployment {
		natives = filterByDomain(ctx, a.services.Tenants, natives, func(d engine.ProcessDefinition) string {
			return d.Key
		})
	}

	definitions := make([]*workflow.Definition, 0, len(natives))
	for _, native := range natives {
		definition, err := a.converter.definition(ctx, native)
		if err != nil {
			if a.options.Strict {
				return nil, err
			}
			a.logger.Debug().Err(err).Str("definition", native.Id).Msg("dropping definition that failed to convert")
			continue
		}
		definitions = append(definitions, definition)
	}
	return definitions, nil
}

// instances

// StartInstance starts an instance of an existing definition and returns its
// path, waiting at the first wait state or already completed.
//
// Native variables are seeded from the start-task type's declared defaults,
// the given parameters and the fixed company-home, initiator and
// initiator-home references. If the start-task type carries the
// end-automatically marker, the virtual start task is ended as a post-step.
func (a *Adapter) StartInstance(ctx context.Context, definitionId string, params map[string]any) (*workflow.Path, error) {
	localId, err := LocalId(a.options.EngineId, definitionId)
	if err != nil {
		return nil, err
	}

	definitions, err := a.engine.CreateQuery().QueryProcessDefinitions(ctx, engine.ProcessDefinitionCriteria{Id: localId})
	if err != nil {
		return nil, a.failure(err, definitionId)
	}
	if len(definitions) == 0 {
		return nil, a.newError(workflow.ErrUnknownDefinition, nil, definitionId)
	}

	definition := definitions[0]

	variables := a.properties.startVariables(ctx, definition.StartFormKey, params)

	if a.services.Tenants.IsEnabled() && !a.options.MultiTenantDeployment {
		if domain := a.services.Tenants.CurrentDomain(ctx); domain != "" {
			variables[varTenantDomain] = domain
		}
	}

	instance, err := a.engine.StartProcessInstance(ctx, engine.StartProcessInstanceCmd{
		ProcessDefinitionId: definition.Id,
		StartedBy:           auth.User(ctx),
		Variables:           variables,
	})
	if err != nil {
		return nil, a.failure(err, definitionId)
	}

	if typeDefinition, ok := a.services.Dictionary.TypeDefinition(definition.StartFormKey); ok && typeDefinition.EndAutomatically {
		if _, err := a.endStartTask(ctx, instance.Id, workflow.DefaultTransitionId); err != nil {
			return nil, err
		}
	}

	return a.pathOfInstance(ctx, instance.Id)
}

// SignalPath advances a path that is waiting at a receive task.
// Only the default transition is supported.
func (a *Adapter) SignalPath(ctx context.Context, pathId string, transitionId string) (*workflow.Path, error) {
	if transitionId != "" && transitionId != workflow.DefaultTransitionId {
		return nil, a.newError(workflow.ErrInvalidTransition, nil, transitionId)
	}

	localId, err := LocalId(a.options.EngineId, pathId)
	if err != nil {
		return nil, err
	}

	executions, err := a.engine.CreateQuery().QueryExecutions(ctx, engine.ExecutionCriteria{Id: localId})
	if err != nil {
		return nil, a.failure(err, pathId)
	}
	if len(executions) == 0 {
		return nil, a.newError(workflow.ErrUnknownInstance, nil, pathId)
	}

	if err := a.engine.SignalExecution(ctx, engine.SignalExecutionCmd{ExecutionId: localId}); err != nil {
		return nil, a.failure(err, pathId)
	}

	// the signal may have ended the execution
	return a.pathOfInstance(ctx, executions[0].ProcessInstanceId)
}

// CancelInstance cancels a running instance and returns its historic
// snapshot. The historic record is purged, so a cancelled instance does
// not linger.
func (a *Adapter) CancelInstance(ctx context.Context, instanceId string) (*workflow.Instance, error) {
	return a.removeInstance(ctx, instanceId, "cancelled", true)
}

// DeleteInstance deletes a running or ended instance, purging its historic
// record, and returns the last snapshot.
func (a *Adapter) DeleteInstance(ctx context.Context, instanceId string) (*workflow.Instance, error) {
	return a.removeInstance(ctx, instanceId, "deleted", false)
}

func (a *Adapter) removeInstance(ctx context.Context, instanceId string, reason string, cancel bool) (*workflow.Instance, error) {
	localId, err := LocalId(a.options.EngineId, instanceId)
	if err != nil {
		return nil, err
	}

	historic, err := a.converter.historicInstanceById(ctx, localId)
	if err != nil {
		return nil, err
	}
	if historic == nil {
		return nil, a.newError(workflow.ErrUnknownInstance, nil, instanceId)
	}

	if !historic.IsEnded() {
		if cancel {
			// tag the instance, so readers of the snapshot can tell a cancel
			// from a delete
			err = a.engine.SetVariables(ctx, engine.SetVariablesCmd{
				ExecutionId: localId,
				Variables:   map[string]any{varCancelled: true},
			})
			if err != nil {
				return nil, a.failure(err, instanceId)
			}
		}

		err = a.engine.DeleteProcessInstance(ctx, engine.DeleteProcessInstanceCmd{Id: localId, DeleteReason: reason})
		if err != nil {
			return nil, a.failure(err, instanceId)
		}

		if historic, err = a.converter.historicInstanceById(ctx, localId); err != nil {
			return nil, err
		}
		if historic == nil {
			return nil, a.newError(workflow.ErrUnknownInstance, nil, instanceId)
		}
	}

	instance, err := a.converter.instance(ctx, *historic, true)
	if err != nil {
		return nil, err
	}

	if err := a.engine.DeleteHistoricProcessInstance(ctx, localId); err != nil {
		return nil, a.failure(err, instanceId)
	}
	return instance, nil
}

// InstanceById returns an instance, or nil, if no such instance exists.
func (a *Adapter) InstanceById(ctx context.Context, instanceId string) (*workflow.Instance, error) {
	localId, err := LocalId(a.options.EngineId, instanceId)
	if err != nil {
		return nil, err
	}
	return a.converter.instanceById(ctx, localId, true)
}

// QueryInstances returns the instances matching a query, visible in the
// caller's tenant domain.
func (a *Adapter) QueryInstances(ctx context.Context, query workflow.InstanceQuery) ([]*workflow.Instance, error) {
	criteria := engine.HistoricProcessInstanceCriteria{
		StartedAfter:   query.StartedAfter,
		StartedBefore:  query.StartedBefore,
		FinishedAfter:  query.EndedAfter,
		FinishedBefore: query.EndedBefore,
	}

	if query.DefinitionId != "" {
		localId, err := LocalId(a.options.EngineId, query.DefinitionId)
		if err != nil {
			return nil, err
		}
		criteria.ProcessDefinitionId = localId
	}
	if query.Active != nil {
		criteria.Unfinished = *query.Active
		criteria.Finished = !*query.Active
	}
	if len(query.Properties) != 0 {
		criteria.VariableEquals = make(map[string]any, len(query.Properties))
		for name, value := range query.Properties {
			criteria.VariableEquals[mapNameToVariable(name)] = value
		}
	}

	if a.services.Tenants.IsEnabled() && !a.options.MultiTenantDeployment {
		if domain := a.services.Tenants.CurrentDomain(ctx); domain != "" {
			if criteria.VariableEquals == nil {
				criteria.VariableEquals = make(map[string]any, 1)
			}
			criteria.VariableEquals[varTenantDomain] = domain
		}
	}

	natives, err := a.engine.CreateQuery().QueryHistoricProcessInstances(ctx, criteria)
	if err != nil {
		return nil, a.failure(err)
	}

	if a.options.MultiTenantDeployment {
		natives = specialTenantFilter(ctx, a.services.Tenants, natives, func(i engine.HistoricProcessInstance) string {
			return i.ProcessDefinitionKey
		})
	}

	instances := make([]*workflow.Instance, 0, len(natives))
	for _, native := range natives {
		instance, err := a.converter.instance(ctx, native, false)
		if err != nil {
			if a.options.Strict {
				return nil, err
			}
			a.logger.Debug().Err(err).Str("instance", native.Id).Msg("dropping instance that failed to convert")
			continue
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// pathOfInstance resolves the current path of an instance, synthesizing a
// completed path when no execution remains.
func (a *Adapter) pathOfInstance(ctx context.Context, processInstanceId string) (*workflow.Path, error) {
	executions, err := a.engine.CreateQuery().QueryExecutions(ctx, engine.ExecutionCriteria{ProcessInstanceId: processInstanceId})
	if err != nil {
		return nil, a.failure(err, processInstanceId)
	}
	if len(executions) == 0 || executions[0].IsEnded {
		return a.converter.completedPath(ctx, processInstanceId)
	}
	return a.converter.path(ctx, executions[0])
}

// tasks

// GetTask returns a task, or nil, if no such task exists.
// Completed tasks are resolved through their historic record.
func (a *Adapter) GetTask(ctx context.Context, taskId string) (*workflow.Task, error) {
	localId, err := LocalId(a.options.EngineId, taskId)
	if err != nil {
		return nil, err
	}

	if IsStartTaskId(localId) {
		return a.converter.getVirtualStartTask(ctx, StartTaskInstanceId(localId), nil)
	}

	natives, err := a.engine.CreateQuery().QueryTasks(ctx, engine.TaskCriteria{Id: localId})
	if err != nil {
		return nil, a.failure(err, taskId)
	}
	if len(natives) != 0 {
		return a.converter.task(ctx, natives[0], false)
	}

	// fall back to the historic record
	historics, err := a.engine.CreateQuery().QueryHistoricTasks(ctx, engine.HistoricTaskCriteria{Id: localId})
	if err != nil {
		return nil, a.failure(err, taskId)
	}
	if len(historics) == 0 {
		return nil, nil
	}
	return a.converter.historicTask(ctx, historics[0])
}

// EndTask ends a task via the given transition and returns the completed view.
//
// Ending a virtual start task records the completion marker on the instance.
// Ending an ordinary task assigns it to the calling user first, when it is
// unassigned, so the completion is attributable.
func (a *Adapter) EndTask(ctx context.Context, taskId string, transitionId string) (*workflow.Task, error) {
	localId, err := LocalId(a.options.EngineId, taskId)
	if err != nil {
		return nil, err
	}

	if IsStartTaskId(localId) {
		return a.endStartTask(ctx, StartTaskInstanceId(localId), transitionId)
	}
	return a.endOrdinaryTask(ctx, localId, transitionId)
}

// endStartTask ends the virtual start task of a process instance.
// Ending an already completed start task is idempotent.
func (a *Adapter) endStartTask(ctx context.Context, processInstanceId string, transitionId string) (*workflow.Task, error) {
	task, err := a.converter.getVirtualStartTask(ctx, processInstanceId, nil)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, a.newError(workflow.ErrUnknownTask, nil, StartTaskLocalId(processInstanceId))
	}
	if task.State == workflow.TaskCompleted {
		return task, nil
	}

	// an instance without any wait state may have ended already; the marker
	// cannot be recorded then, but the start task is over either way
	if task.Path != nil && task.Path.Instance != nil && !task.Path.Instance.Active {
		completed := true
		return a.converter.getVirtualStartTask(ctx, processInstanceId, &completed)
	}

	variables, err := a.engine.GetHistoricVariables(ctx, processInstanceId)
	if err != nil {
		return nil, a.failure(err, processInstanceId)
	}

	outcomeName, outcomeValue, err := a.properties.resolveOutcome(task.Name, transitionId, variables)
	if err != nil {
		return nil, err
	}

	update := map[string]any{varStartTaskEnded: time.Now().UTC()}
	if outcomeName != "" && outcomeValue != nil {
		update[mapNameToVariable(outcomeName)] = outcomeValue
	}

	if err := a.engine.SetVariables(ctx, engine.SetVariablesCmd{ExecutionId: processInstanceId, Variables: update}); err != nil {
		return nil, a.failure(err, processInstanceId)
	}

	if err := a.signalFirstReceiveTask(ctx, processInstanceId); err != nil {
		return nil, err
	}

	completed := true
	return a.converter.getVirtualStartTask(ctx, processInstanceId, &completed)
}

// signalFirstReceiveTask works around processes whose first activity after
// the start event is a receive task: without a signal, such an instance would
// wait forever once its start task ended, since no other wait state was ever
// reached. The workaround is deliberately narrow: it fires only when the
// receive task is the direct successor of the start event.
func (a *Adapter) signalFirstReceiveTask(ctx context.Context, processInstanceId string) error {
	executions, err := a.engine.CreateQuery().QueryExecutions(ctx, engine.ExecutionCriteria{ProcessInstanceId: processInstanceId})
	if err != nil {
		return a.failure(err, processInstanceId)
	}
	if len(executions) == 0 || executions[0].IsEnded {
		return nil
	}

	activityIds, err := a.engine.GetActiveActivityIds(ctx, executions[0].Id)
	if err != nil {
		return a.failure(err, processInstanceId)
	}
	if len(activityIds) == 0 {
		return nil
	}

	element, _, err := a.converter.elementOf(ctx, processInstanceId, activityIds[0])
	if err != nil || element == nil || element.Type != model.ElementReceiveTask {
		return err
	}

	isFirstActivity := false
	for _, sequenceFlow := range element.Incoming {
		if sequenceFlow.Source != nil && sequenceFlow.Source.Type == model.ElementStartEvent {
			isFirstActivity = true
			break
		}
	}
	if !isFirstActivity {
		return nil
	}

	if err := a.engine.SignalExecution(ctx, engine.SignalExecutionCmd{ExecutionId: executions[0].Id}); err != nil {
		return a.failure(err, processInstanceId)
	}
	return nil
}

func (a *Adapter) endOrdinaryTask(ctx context.Context, taskId string, transitionId string) (*workflow.Task, error) {
	natives, err := a.engine.CreateQuery().QueryTasks(ctx, engine.TaskCriteria{Id: taskId})
	if err != nil {
		return nil, a.failure(err, taskId)
	}
	if len(natives) == 0 {
		return nil, a.newError(workflow.ErrUnknownTask, nil, taskId)
	}

	native := natives[0]

	if !native.IsAssigned() {
		userId := auth.User(ctx)
		if userId == "" {
			userId = auth.SystemUserId
		}
		if err := a.engine.SetTaskAssignee(ctx, engine.SetTaskAssigneeCmd{Id: taskId, Assignee: userId}); err != nil {
			return nil, a.failure(err, taskId)
		}
	}

	variables, err := a.engine.GetTaskVariables(ctx, taskId)
	if err != nil {
		return nil, a.failure(err, taskId)
	}

	outcomeName, outcomeValue, err := a.properties.resolveOutcome(native.FormKey, transitionId, variables)
	if err != nil {
		return nil, err
	}

	if outcomeName != "" && outcomeValue != nil {
		err = a.engine.SetTaskVariables(ctx, engine.SetTaskVariablesCmd{
			TaskId:    taskId,
			Variables: map[string]any{mapNameToVariable(outcomeName): outcomeValue},
		})
		if err != nil {
			return nil, a.failure(err, taskId)
		}
	}

	if err := a.engine.CompleteTask(ctx, engine.CompleteTaskCmd{Id: taskId}); err != nil {
		return nil, a.failure(err, taskId)
	}

	historics, err := a.engine.CreateQuery().QueryHistoricTasks(ctx, engine.HistoricTaskCriteria{Id: taskId})
	if err != nil {
		return nil, a.failure(err, taskId)
	}
	if len(historics) == 0 {
		return nil, a.newError(workflow.ErrUnknownTask, nil, taskId)
	}
	return a.converter.historicTask(ctx, historics[0])
}

// UpdateTask merges property updates and association changes into a task.
// Start tasks cannot be updated in place once issued.
func (a *Adapter) UpdateTask(ctx context.Context, taskId string, propUpdates map[string]any, addAssocs map[string][]string, removeAssocs map[string][]string) (*workflow.Task, error) {
	localId, err := LocalId(a.options.EngineId, taskId)
	if err != nil {
		return nil, err
	}

	if IsStartTaskId(localId) {
		return nil, a.newError(workflow.ErrIllegalUpdate, nil, taskId)
	}

	natives, err := a.engine.CreateQuery().QueryTasks(ctx, engine.TaskCriteria{Id: localId})
	if err != nil {
		return nil, a.failure(err, taskId)
	}
	if len(natives) == 0 {
		return nil, a.newError(workflow.ErrUnknownTask, nil, taskId)
	}

	native := natives[0]

	if assignee, ok := propUpdates["bpm:assignee"]; ok {
		if err := a.engine.SetTaskAssignee(ctx, engine.SetTaskAssigneeCmd{Id: localId, Assignee: fmt.Sprint(assignee)}); err != nil {
			return nil, a.failure(err, taskId)
		}

		remaining := make(map[string]any, len(propUpdates))
		for name, value := range propUpdates {
			if name != "bpm:assignee" {
				remaining[name] = value
			}
		}
		propUpdates = remaining
	}

	variables, err := a.engine.GetTaskVariables(ctx, localId)
	if err != nil {
		return nil, a.failure(err, taskId)
	}

	updates := a.properties.updateVariables(native.FormKey, variables, propUpdates, addAssocs, removeAssocs)
	if len(updates) != 0 {
		if err := a.engine.SetTaskVariables(ctx, engine.SetTaskVariablesCmd{TaskId: localId, Variables: updates}); err != nil {
			return nil, a.failure(err, taskId)
		}
	}

	return a.GetTask(ctx, taskId)
}

// QueryTasks returns the tasks matching a query.
//
// Ordinary tasks are resolved through the native query, live or historic
// depending on the requested state. Virtual start tasks have no native row:
// every supplied predicate is evaluated by hand against each synthesized
// start task.
func (a *Adapter) QueryTasks(ctx context.Context, query workflow.TaskQuery) ([]*workflow.Task, error) {
	predicates := taskPredicates(query)

	var tasks []*workflow.Task

	appendMatching := func(task *workflow.Task) {
		if task == nil {
			return
		}
		for _, predicate := range predicates {
			if !predicate(task) {
				return
			}
		}
		tasks = append(tasks, task)
	}

	queryLocalTaskId := ""
	queryStartTaskInstanceId := ""
	if query.TaskId != "" {
		localId, err := LocalId(a.options.EngineId, query.TaskId)
		if err != nil {
			return nil, err
		}
		if IsStartTaskId(localId) {
			queryStartTaskInstanceId = StartTaskInstanceId(localId)
		} else {
			queryLocalTaskId = localId
		}
	}

	queryLocalProcessId := ""
	if query.ProcessId != "" {
		localId, err := LocalId(a.options.EngineId, query.ProcessId)
		if err != nil {
			return nil, err
		}
		queryLocalProcessId = localId
	}

	processVariableEquals := a.nativeProcessVariables(ctx, query.ProcessProperties)

	if query.State != workflow.TaskCompleted && queryStartTaskInstanceId == "" {
		criteria := engine.TaskCriteria{
			Id:                queryLocalTaskId,
			ProcessInstanceId: queryLocalProcessId,

			Assignee:  query.Actor,
			DueAfter:  query.DueAfter,
			DueBefore: query.DueBefore,

			ProcessVariableEquals: processVariableEquals,
			TaskVariableEquals:    a.nativeTaskVariables(query.TaskProperties),
		}

		natives, err := a.engine.CreateQuery().QueryTasks(ctx, criteria)
		if err != nil {
			return nil, a.failure(err)
		}
		for _, native := range natives {
			task, err := a.converter.task(ctx, native, true)
			if err != nil {
				if a.options.Strict {
					return nil, err
				}
				a.logger.Debug().Err(err).Str("task", native.Id).Msg("dropping task that failed to convert")
				continue
			}
			appendMatching(task)
		}
	}

	if query.State != workflow.TaskInProgress && queryStartTaskInstanceId == "" {
		criteria := engine.HistoricTaskCriteria{
			Id:                queryLocalTaskId,
			ProcessInstanceId: queryLocalProcessId,

			Assignee:  query.Actor,
			DueAfter:  query.DueAfter,
			DueBefore: query.DueBefore,
			Finished:  true,

			ProcessVariableEquals: processVariableEquals,
			TaskVariableEquals:    a.nativeTaskVariables(query.TaskProperties),
		}

		natives, err := a.engine.CreateQuery().QueryHistoricTasks(ctx, criteria)
		if err != nil {
			return nil, a.failure(err)
		}
		for _, native := range natives {
			task, err := a.converter.historicTask(ctx, native)
			if err != nil {
				if a.options.Strict {
					return nil, err
				}
				a.logger.Debug().Err(err).Str("task", native.Id).Msg("dropping task that failed to convert")
				continue
			}
			appendMatching(task)
		}
	}

	if query.State != workflow.TaskInProgress && queryLocalTaskId == "" {
		instanceCriteria := engine.HistoricProcessInstanceCriteria{
			Id:             queryLocalProcessId,
			VariableEquals: processVariableEquals,
		}
		if queryStartTaskInstanceId != "" {
			instanceCriteria.Id = queryStartTaskInstanceId
		}

		instances, err := a.engine.CreateQuery().QueryHistoricProcessInstances(ctx, instanceCriteria)
		if err != nil {
			return nil, a.failure(err)
		}
		for _, instance := range instances {
			task, err := a.converter.getVirtualStartTask(ctx, instance.Id, nil)
			if err != nil {
				if a.options.Strict {
					return nil, err
				}
				a.logger.Debug().Err(err).Str("instance", instance.Id).Msg("dropping start task that failed to convert")
				continue
			}
			appendMatching(task)
		}
	}

	return tasks, nil
}

// CountTasks returns the number of tasks matching a query.
func (a *Adapter) CountTasks(ctx context.Context, query workflow.TaskQuery) (int, error) {
	tasks, err := a.QueryTasks(ctx, query)
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

// nativeProcessVariables maps process property predicates to native variable
// equality conditions, including the hidden tenant variable, when applicable.
func (a *Adapter) nativeProcessVariables(ctx context.Context, properties map[string]any) map[string]any {
	var variables map[string]any
	if len(properties) != 0 {
		variables = make(map[string]any, len(properties))
		for name, value := range properties {
			variables[mapNameToVariable(name)] = value
		}
	}

	if a.services.Tenants.IsEnabled() && !a.options.MultiTenantDeployment {
		if domain := a.services.Tenants.CurrentDomain(ctx); domain != "" {
			if variables == nil {
				variables = make(map[string]any, 1)
			}
			variables[varTenantDomain] = domain
		}
	}

	return variables
}

func (a *Adapter) nativeTaskVariables(properties map[string]any) map[string]any {
	if len(properties) == 0 {
		return nil
	}
	variables := make(map[string]any, len(properties))
	for name, value := range properties {
		variables[mapNameToVariable(name)] = value
	}
	return variables
}

// PooledTasks returns the unassigned tasks a user may claim, via direct
// candidacy or group membership. A task visible both ways appears once.
func (a *Adapter) PooledTasks(ctx context.Context, userId string) ([]*workflow.Task, error) {
	natives, err := a.engine.CreateQuery().QueryTasks(ctx, engine.TaskCriteria{CandidateUserId: userId, Unassigned: true})
	if err != nil {
		return nil, a.failure(err, userId)
	}

	var groups []string
	for _, authority := range a.services.Authorities.AuthoritiesOf(userId) {
		if a.services.Authorities.IsGroup(authority) {
			groups = append(groups, authority)
		}
	}

	if len(groups) != 0 {
		groupTasks, err := a.engine.CreateQuery().QueryTasks(ctx, engine.TaskCriteria{CandidateGroups: groups, Unassigned: true})
		if err != nil {
			return nil, a.failure(err, userId)
		}
		natives = append(natives, groupTasks...)
	}

	seen := make(map[string]bool, len(natives))

	tasks := make([]*workflow.Task, 0, len(natives))
	for _, native := range natives {
		if seen[native.Id] {
			continue
		}
		seen[native.Id] = true

		task, err := a.converter.task(ctx, native, true)
		if err != nil {
			if a.options.Strict {
				return nil, err
			}
			a.logger.Debug().Err(err).Str("task", native.Id).Msg("dropping pooled task that failed to convert")
			continue
		}
		if task != nil {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// timers

// Timers returns the pending timers of an instance. A timer's task reference
// is set only when the execution is waiting at a user task.
func (a *Adapter) Timers(ctx context.Context, instanceId string) ([]*workflow.Timer, error) {
	localId, err := LocalId(a.options.EngineId, instanceId)
	if err != nil {
		return nil, err
	}

	jobs, err := a.engine.CreateQuery().QueryJobs(ctx, engine.JobCriteria{ProcessInstanceId: localId, Type: engine.JobTimer})
	if err != nil {
		return nil, a.failure(err, instanceId)
	}

	timers := make([]*workflow.Timer, 0, len(jobs))
	for _, job := range jobs {
		timer := workflow.Timer{
			Id: GlobalId(a.options.EngineId, job.Id),

			DueAt: job.DueAt,
			Error: job.Error,
		}

		executions, err := a.engine.CreateQuery().QueryExecutions(ctx, engine.ExecutionCriteria{Id: job.ExecutionId})
		if err != nil {
			return nil, a.failure(err, instanceId)
		}
		if len(executions) != 0 {
			if timer.Path, err = a.converter.path(ctx, executions[0]); err != nil {
				return nil, err
			}
		}

		element, _, err := a.converter.elementOf(ctx, job.ProcessInstanceId, job.ActivityId)
		if err != nil {
			return nil, err
		}
		if element != nil && element.Type == model.ElementUserTask {
			natives, err := a.engine.CreateQuery().QueryTasks(ctx, engine.TaskCriteria{
				ProcessInstanceId: job.ProcessInstanceId,
				TaskDefinitionKey: job.ActivityId,
			})
			if err != nil {
				return nil, a.failure(err, instanceId)
			}
			if len(natives) != 0 {
				if timer.Task, err = a.converter.task(ctx, natives[0], false); err != nil {
					return nil, err
				}
			}
		}

		timers = append(timers, &timer)
	}
	return timers, nil
}

// taskPredicates compiles a query into composable filter functions, shared
// between natively queried tasks and synthesized start tasks.
func taskPredicates(query workflow.TaskQuery) []func(*workflow.Task) bool {
	var predicates []func(*workflow.Task) bool

	if query.TaskId != "" {
		predicates = append(predicates, func(t *workflow.Task) bool {
			return t.Id == query.TaskId
		})
	}
	if query.TaskName != "" {
		predicates = append(predicates, func(t *workflow.Task) bool {
			return t.Name == query.TaskName
		})
	}
	if query.State != 0 {
		predicates = append(predicates, func(t *workflow.Task) bool {
			return t.State == query.State
		})
	}
	if query.Actor != "" {
		predicates = append(predicates, func(t *workflow.Task) bool {
			if t.Kind == workflow.TaskStart {
				return t.Path != nil && t.Path.Instance != nil && t.Path.Instance.Initiator == query.Actor
			}
			return t.Properties["bpm:assignee"] == query.Actor
		})
	}
	if query.ProcessId != "" {
		predicates = append(predicates, func(t *workflow.Task) bool {
			return t.Path != nil && t.Path.Instance != nil && t.Path.Instance.Id == query.ProcessId
		})
	}
	if query.ProcessName != "" {
		predicates = append(predicates, func(t *workflow.Task) bool {
			return t.Path != nil && t.Path.Instance != nil && t.Path.Instance.Definition != nil &&
				t.Path.Instance.Definition.Name == query.ProcessName
		})
	}
	if query.Active != nil {
		predicates = append(predicates, func(t *workflow.Task) bool {
			return t.Path != nil && t.Path.Instance != nil && t.Path.Instance.Active == *query.Active
		})
	}
	if query.DueAfter != nil || query.DueBefore != nil {
		predicates = append(predicates, func(t *workflow.Task) bool {
			dueAt, ok := t.Properties["bpm:dueDate"].(time.Time)
			if !ok {
				return false
			}
			if query.DueAfter != nil && dueAt.Before(*query.DueAfter) {
				return false
			}
			return query.DueBefore == nil || !dueAt.After(*query.DueBefore)
		})
	}
	if len(query.TaskProperties) != 0 {
		predicates = append(predicates, func(t *workflow.Task) bool {
			return matchesProperties(t.Properties, query.TaskProperties)
		})
	}
	if len(query.ProcessProperties) != 0 {
		predicates = append(predicates, func(t *workflow.Task) bool {
			// ordinary tasks are filtered natively via variable equality;
			// a start task's properties are the instance's properties
			if t.Kind != workflow.TaskStart {
				return true
			}
			return matchesProperties(t.Properties, query.ProcessProperties)
		})
	}

	return predicates
}

func matchesProperties(properties map[string]any, conditions map[string]any) bool {
	for name, value := range conditions {
		existing, ok := properties[name]
		if !ok || fmt.Sprint(existing) != fmt.Sprint(value) {
			return false
		}
	}
	return true
}
