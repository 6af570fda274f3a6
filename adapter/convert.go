package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/procflow/procflow/engine"
	"github.com/procflow/procflow/model"
	"github.com/procflow/procflow/repo"
	"github.com/procflow/procflow/workflow"
	"github.com/rs/zerolog"
)

// well-known instance variables, set by callers via namespaced properties
const (
	varDescription      = "bpm_description"
	varWorkflowDueDate  = "bpm_workflowDueDate"
	varWorkflowPackage  = "bpm_package"
	varWorkflowPriority = "bpm_workflowPriority"
)

// startTaskDefinitionId is the task definition key of every virtual start task.
const startTaskDefinitionId = "start"

// typeConverter translates native engine entities into the generic workflow
// object model.
type typeConverter struct {
	engineId string
	engine   engine.Engine

	dictionary repo.DictionaryService
	properties *propertyConverter
	tenants    repo.TenantService

	// multiTenant indicates that definition keys are tenant-qualified.
	multiTenant bool

	logger zerolog.Logger
}

// Convert translates a native object, dispatching on its kind.
// The dispatch is closed: any other type fails with a workflow error of type
// [workflow.ErrUnsupportedConversion].
func (c *typeConverter) Convert(ctx context.Context, v any) (any, error) {
	switch native := v.(type) {
	case engine.Deployment:
		return native, nil // resource metadata passes through; see adapter.Deploy
	case engine.ProcessDefinition:
		return c.definition(ctx, native)
	case engine.ProcessInstance:
		return c.instanceById(ctx, native.Id, false)
	case engine.HistoricProcessInstance:
		return c.instance(ctx, native, false)
	case engine.Execution:
		return c.path(ctx, native)
	case *model.Element:
		return c.node(native, ""), nil
	case engine.Task:
		return c.task(ctx, native, false)
	case engine.HistoricTask:
		return c.historicTask(ctx, native)
	default:
		return nil, workflow.NewError(workflow.ErrUnsupportedConversion, "cannot convert native type %T", v)
	}
}

func (c *typeConverter) definition(ctx context.Context, native engine.ProcessDefinition) (*workflow.Definition, error) {
	parsed, err := c.engine.GetParsedDefinition(ctx, native.Id)
	if err != nil {
		return nil, workflow.WrapError(workflow.ErrEngineFailure, err, "failed to get parsed definition %s", native.Id)
	}

	startEvent := parsed.Model.InitialElement(native.Key)

	var startNode *workflow.Node
	if startEvent != nil {
		startNode = c.node(startEvent, native.Key)
	}

	return &workflow.Definition{
		Id: GlobalId(c.engineId, native.Id),

		Key:     native.Key,
		Name:    c.tenants.BaseName(native.Key),
		Version: native.Version,

		Title:       native.Name,
		Description: native.Description,

		StartTaskDefinition: workflow.TaskDefinition{
			Id:       startTaskDefinitionId,
			Node:     startNode,
			TypeName: native.StartFormKey,
		},
	}, nil
}

// instance converts a historic process instance record. Instance metadata is
// always read through the historic record, even while the instance is active,
// so there is one consistent read path.
func (c *typeConverter) instance(ctx context.Context, native engine.HistoricProcessInstance, withProperties bool) (*workflow.Instance, error) {
	definitions, err := c.engine.CreateQuery().QueryProcessDefinitions(ctx, engine.ProcessDefinitionCriteria{Id: native.ProcessDefinitionId})
	if err != nil {
		return nil, workflow.WrapError(workflow.ErrEngineFailure, err, "failed to query process definition %s", native.ProcessDefinitionId)
	}

	var definition *workflow.Definition
	if len(definitions) != 0 {
		if definition, err = c.definition(ctx, definitions[0]); err != nil {
			return nil, err
		}
	}

	variables, err := c.engine.GetHistoricVariables(ctx, native.Id)
	if err != nil {
		return nil, workflow.WrapError(workflow.ErrEngineFailure, err, "failed to get variables of process instance %s", native.Id)
	}

	instance := workflow.Instance{
		Id: GlobalId(c.engineId, native.Id),

		Definition: definition,

		Active:    !native.IsEnded(),
		EndedAt:   native.EndedAt,
		Initiator: native.StartedBy,
		StartedAt: native.StartedAt,
	}

	if v, ok := variables[varDescription]; ok {
		instance.Description = fmt.Sprint(v)
	}
	if v, ok := variables[varWorkflowPackage]; ok {
		instance.PackageRef = fmt.Sprint(v)
	}
	if v, ok := variables[varWorkflowPriority]; ok {
		if priority, isInt := convertValue(repo.DataInt, v).(int); isInt {
			instance.Priority = priority
		}
	}
	if v, ok := variables[varWorkflowDueDate]; ok {
		if dueAt, isTime := convertValue(repo.DataDate, v).(time.Time); isTime {
			instance.DueAt = &dueAt
		}
	}

	if withProperties {
		var startTypeName string
		if definition != nil {
			startTypeName = definition.StartTaskDefinition.TypeName
		}
		instance.Properties = c.properties.taskProperties(startTypeName, variables)
	}

	return &instance, nil
}

// instanceById converts an instance via its historic record, or returns nil,
// if no such record exists.
func (c *typeConverter) instanceById(ctx context.Context, processInstanceId string, withProperties bool) (*workflow.Instance, error) {
	historic, err := c.historicInstanceById(ctx, processInstanceId)
	if err != nil || historic == nil {
		return nil, err
	}
	return c.instance(ctx, *historic, withProperties)
}

func (c *typeConverter) historicInstanceById(ctx context.Context, processInstanceId string) (*engine.HistoricProcessInstance, error) {
	results, err := c.engine.CreateQuery().QueryHistoricProcessInstances(ctx, engine.HistoricProcessInstanceCriteria{Id: processInstanceId})
	if err != nil {
		return nil, workflow.WrapError(workflow.ErrEngineFailure, err, "failed to query historic process instance %s", processInstanceId)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// path converts a native execution, resolving the single active leaf activity.
func (c *typeConverter) path(ctx context.Context, native engine.Execution) (*workflow.Path, error) {
	instance, err := c.instanceById(ctx, native.ProcessInstanceId, false)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, nil
	}

	path := workflow.Path{
		Id: GlobalId(c.engineId, native.Id),

		Instance: instance,

		Active: !native.IsEnded,
	}

	if native.IsEnded {
		return &path, nil
	}

	activityIds, err := c.engine.GetActiveActivityIds(ctx, native.Id)
	if err != nil {
		return nil, workflow.WrapError(workflow.ErrEngineFailure, err, "failed to get active activity IDs of execution %s", native.Id)
	}
	if len(activityIds) == 0 {
		return &path, nil
	}
	if len(activityIds) > 1 {
		// no ordering is guaranteed; only the single-active-activity case is
		// fully supported
		c.logger.Warn().Str("execution", native.Id).Int("count", len(activityIds)).
			Msg("execution has multiple active activities, taking the first")
	}

	element, definitionKey, err := c.elementOf(ctx, native.ProcessInstanceId, activityIds[0])
	if err != nil {
		return nil, err
	}
	if element != nil {
		path.Node = c.node(element, definitionKey)
	}
	return &path, nil
}

// completedPath synthesizes the path view of an instance that has ended.
func (c *typeConverter) completedPath(ctx context.Context, processInstanceId string) (*workflow.Path, error) {
	instance, err := c.instanceById(ctx, processInstanceId, false)
	if err != nil || instance == nil {
		return nil, err
	}

	return &workflow.Path{
		Id: GlobalId(c.engineId, processInstanceId),

		Instance: instance,

		Active: false,
	}, nil
}

// node maps a BPMN element to a node with the single synthetic default transition.
func (c *typeConverter) node(element *model.Element, definitionKey string) *workflow.Node {
	if definitionKey == "" && element.Parent != nil {
		definitionKey = element.Parent.Id
	}

	return &workflow.Node{
		Name: element.Id,

		DefinitionKey: definitionKey,

		Description: element.Documentation,
		IsTaskNode:  element.Type.IsTask(),
		Title:       element.Name,
		Type:        element.Type.String(),

		DefaultTransition: workflow.Transition{Id: workflow.DefaultTransitionId},
	}
}

// task converts an ordinary native task.
//
// If the task's instance is not visible in the caller's tenant domain and
// ignoreDomainMismatch is set, nil is returned instead of an error.
func (c *typeConverter) task(ctx context.Context, native engine.Task, ignoreDomainMismatch bool) (*workflow.Task, error) {
	if ignoreDomainMismatch && !c.isVisible(ctx, native.ProcessDefinitionId) {
		return nil, nil
	}

	executions, err := c.engine.CreateQuery().QueryExecutions(ctx, engine.ExecutionCriteria{Id: native.ExecutionId})
	if err != nil {
		return nil, workflow.WrapError(workflow.ErrEngineFailure, err, "failed to query execution %s", native.ExecutionId)
	}

	var path *workflow.Path
	if len(executions) != 0 {
		if path, err = c.path(ctx, executions[0]); err != nil {
			return nil, err
		}
	} else if path, err = c.completedPath(ctx, native.ProcessInstanceId); err != nil {
		return nil, err
	}
	if path == nil {
		if ignoreDomainMismatch {
			return nil, nil
		}
		return nil, workflow.NewError(workflow.ErrUnknownInstance, "process instance %s of task %s could not be found", native.ProcessInstanceId, native.Id)
	}

	variables, err := c.engine.GetHistoricTaskVariables(ctx, native.Id)
	if err != nil {
		return nil, workflow.WrapError(workflow.ErrEngineFailure, err, "failed to get variables of task %s", native.Id)
	}

	task := workflow.Task{
		Id: GlobalId(c.engineId, native.Id),

		Kind: workflow.TaskOrdinary,

		Definition: c.taskDefinition(ctx, native.ProcessInstanceId, native.TaskDefinitionKey, native.FormKey),
		Path:       path,

		Description: native.Description,
		Name:        native.FormKey,
		Properties:  c.properties.taskProperties(native.FormKey, variables),
		State:       workflow.TaskInProgress,
		Title:       native.Name,
	}

	c.applyTaskAttributes(&task, native.Assignee, native.DueAt, native.Priority)
	return &task, nil
}

// historicTask converts a historic task record into a COMPLETED task view.
func (c *typeConverter) historicTask(ctx context.Context, native engine.HistoricTask) (*workflow.Task, error) {
	path, err := c.completedPath(ctx, native.ProcessInstanceId)
	if err != nil {
		return nil, err
	}

	variables, err := c.engine.GetHistoricTaskVariables(ctx, native.Id)
	if err != nil {
		return nil, workflow.WrapError(workflow.ErrEngineFailure, err, "failed to get variables of task %s", native.Id)
	}

	state := workflow.TaskInProgress
	if native.IsEnded() {
		state = workflow.TaskCompleted
	}

	task := workflow.Task{
		Id: GlobalId(c.engineId, native.Id),

		Kind: workflow.TaskOrdinary,

		Definition: c.taskDefinition(ctx, native.ProcessInstanceId, native.TaskDefinitionKey, native.FormKey),
		Path:       path,

		Description: native.Description,
		Name:        native.FormKey,
		Properties:  c.properties.taskProperties(native.FormKey, variables),
		State:       state,
		Title:       native.Name,
	}

	c.applyTaskAttributes(&task, native.Assignee, native.DueAt, native.Priority)
	return &task, nil
}

func (c *typeConverter) applyTaskAttributes(task *workflow.Task, assignee string, dueAt *time.Time, priority int) {
	if task.Properties == nil {
		task.Properties = make(map[string]any)
	}
	if assignee != "" {
		task.Properties["bpm:assignee"] = assignee
	}
	if dueAt != nil {
		task.Properties["bpm:dueDate"] = *dueAt
	}
	if priority != 0 {
		task.Properties["bpm:priority"] = priority
	}
}

// taskDefinition derives a task definition from an activity and its form key.
func (c *typeConverter) taskDefinition(ctx context.Context, processInstanceId string, taskDefinitionKey string, formKey string) workflow.TaskDefinition {
	taskDefinition := workflow.TaskDefinition{
		Id:       taskDefinitionKey,
		TypeName: formKey,
	}

	element, definitionKey, err := c.elementOf(ctx, processInstanceId, taskDefinitionKey)
	if err == nil && element != nil {
		taskDefinition.Node = c.node(element, definitionKey)
	}
	return taskDefinition
}

// elementOf resolves a BPMN element within the model of an instance's definition.
func (c *typeConverter) elementOf(ctx context.Context, processInstanceId string, activityId string) (*model.Element, string, error) {
	historic, err := c.historicInstanceById(ctx, processInstanceId)
	if err != nil || historic == nil {
		return nil, "", err
	}

	parsed, err := c.engine.GetParsedDefinition(ctx, historic.ProcessDefinitionId)
	if err != nil {
		if engine.IsNotFound(err) {
			return nil, "", nil
		}
		return nil, "", workflow.WrapError(workflow.ErrEngineFailure, err, "failed to get parsed definition %s", historic.ProcessDefinitionId)
	}

	return parsed.Model.ElementById(activityId), parsed.Definition.Key, nil
}

// isVisible determines if a definition belongs to the caller's tenant domain.
// Without tenant-qualified keys, isolation relies on the hidden variable
// check instead.
func (c *typeConverter) isVisible(ctx context.Context, processDefinitionId string) bool {
	if !c.multiTenant || !c.tenants.IsEnabled() {
		return true
	}

	domain := c.tenants.CurrentDomain(ctx)
	if domain == "" {
		return true
	}

	parsed, err := c.engine.GetParsedDefinition(ctx, processDefinitionId)
	if err != nil {
		return false
	}
	return c.tenants.DomainOf(parsed.Definition.Key) == domain
}

// getVirtualStartTask synthesizes the start task of a process instance.
//
// The engine has no native entity for a start task: its identifier is derived
// from the process instance ID and its state from a completion-marker
// variable. A completed override, when non-nil, replaces the marker check.
// If the instance is not visible in the caller's tenant domain, nil is
// returned.
func (c *typeConverter) getVirtualStartTask(ctx context.Context, processInstanceId string, completed *bool) (*workflow.Task, error) {
	historic, err := c.historicInstanceById(ctx, processInstanceId)
	if err != nil || historic == nil {
		return nil, err
	}

	if !c.isVisible(ctx, historic.ProcessDefinitionId) {
		return nil, nil
	}

	variables, err := c.engine.GetHistoricVariables(ctx, processInstanceId)
	if err != nil {
		return nil, workflow.WrapError(workflow.ErrEngineFailure, err, "failed to get variables of process instance %s", processInstanceId)
	}

	// hidden variable tenant check, used when definition keys are not tenant-qualified
	if tenantDomain, ok := variables[varTenantDomain]; ok {
		if fmt.Sprint(tenantDomain) != c.tenants.CurrentDomain(ctx) {
			return nil, nil
		}
	}

	state := workflow.TaskInProgress
	if completed != nil {
		if *completed {
			state = workflow.TaskCompleted
		}
	} else if _, ended := variables[varStartTaskEnded]; ended {
		state = workflow.TaskCompleted
	}

	definitions, err := c.engine.CreateQuery().QueryProcessDefinitions(ctx, engine.ProcessDefinitionCriteria{Id: historic.ProcessDefinitionId})
	if err != nil {
		return nil, workflow.WrapError(workflow.ErrEngineFailure, err, "failed to query process definition %s", historic.ProcessDefinitionId)
	}
	if len(definitions) == 0 {
		return nil, nil
	}

	definition, err := c.definition(ctx, definitions[0])
	if err != nil {
		return nil, err
	}

	var path *workflow.Path
	executions, err := c.engine.CreateQuery().QueryExecutions(ctx, engine.ExecutionCriteria{Id: processInstanceId})
	if err != nil {
		return nil, workflow.WrapError(workflow.ErrEngineFailure, err, "failed to query execution %s", processInstanceId)
	}
	if len(executions) != 0 {
		path, err = c.path(ctx, executions[0])
	} else {
		path, err = c.completedPath(ctx, processInstanceId)
	}
	if err != nil {
		return nil, err
	}

	startTypeName := definition.StartTaskDefinition.TypeName

	task := workflow.Task{
		Id: GlobalId(c.engineId, StartTaskLocalId(processInstanceId)),

		Kind: workflow.TaskStart,

		Definition: definition.StartTaskDefinition,
		Path:       path,

		Name:       startTypeName,
		Properties: c.properties.taskProperties(startTypeName, variables),
		State:      state,
	}

	if startNode := definition.StartTaskDefinition.Node; startNode != nil {
		task.Title = startNode.Title
		task.Description = startNode.Description
	}
	if task.Title == "" {
		task.Title = definition.Title
	}

	return &task, nil
}

// findUserTasks collects the user task elements of a process in first-visit
// order, following outgoing sequence flows from the initial element.
//
// The traversal is an explicit worklist DFS with a visited set, so it
// terminates on cyclic graphs and visits each element at most once.
func findUserTasks(m *model.Model, processId string) []*model.Element {
	initial := m.InitialElement(processId)
	if initial == nil {
		return nil
	}

	var (
		userTasks []*model.Element
		worklist  = []*model.Element{initial}
		visited   = map[string]bool{initial.Id: true}
	)

	for len(worklist) != 0 {
		element := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		if element.Type == model.ElementUserTask {
			userTasks = append(userTasks, element)
		}

		// push in reverse, so the first outgoing flow is visited first
		for i := len(element.Outgoing) - 1; i >= 0; i-- {
			target := element.Outgoing[i].Target
			if target == nil || visited[target.Id] {
				continue
			}
			visited[target.Id] = true
			worklist = append(worklist, target)
		}
	}

	return userTasks
}
