// Package mem provides an embedded in-memory process engine.
//
// A mem engine keeps all state in memory and is lost on shutdown.
// It is suited for embedding, local development and testing.
package mem

import (
	"context"
	"sync"
	"time"

	"github.com/procflow/procflow/engine"
	"github.com/rs/zerolog"
)

func New(customizers ...func(*Options)) (engine.Engine, error) {
	options := NewOptions()
	for _, customizer := range customizers {
		customizer(&options)
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	memEngine := memEngine{
		ctx:               newMemContext(options),
		defaultQueryLimit: options.Common.DefaultQueryLimit,
		logger:            options.Common.Logger,
	}

	if options.Common.JobExecutorEnabled {
		memEngine.jobExecutor = newJobExecutor(&memEngine, options.Common.JobExecutorInterval, options.Common.JobExecutorLimit)
		memEngine.jobExecutor.execute()
	}

	return &memEngine, nil
}

func NewOptions() Options {
	return Options{
		Common: engine.Options{
			DefaultQueryLimit:   1000,
			EngineId:            engine.DefaultEngineId,
			JobExecutorEnabled:  false,
			JobExecutorInterval: 60 * time.Second,
			JobExecutorLimit:    10,
			JobRetryLimit:       1,
			Logger:              zerolog.Nop(),
		},
	}
}

type Options struct {
	Common engine.Options // Common options
}

func (o Options) Validate() error {
	return o.Common.Validate()
}

type memEngine struct {
	ctxMutex sync.Mutex
	ctx      *memContext

	defaultQueryLimit int
	jobExecutor       *jobExecutor
	logger            zerolog.Logger
}

func (e *memEngine) lock() *memContext {
	e.ctxMutex.Lock()
	return e.ctx
}

func (e *memEngine) unlock() {
	e.ctxMutex.Unlock()
}

func (e *memEngine) CreateDeployment(_ context.Context, cmd engine.CreateDeploymentCmd) (engine.Deployment, []engine.ProcessDefinition, error) {
	if err := engine.ValidateCmd(cmd, "failed to create deployment"); err != nil {
		return engine.Deployment{}, nil, err
	}

	defer e.unlock()
	return e.lock().createDeployment(cmd)
}

func (e *memEngine) DeleteDeployment(_ context.Context, cmd engine.DeleteDeploymentCmd) error {
	if err := engine.ValidateCmd(cmd, "failed to delete deployment"); err != nil {
		return err
	}

	defer e.unlock()
	return e.lock().deleteDeployment(cmd)
}

func (e *memEngine) StartProcessInstance(_ context.Context, cmd engine.StartProcessInstanceCmd) (engine.ProcessInstance, error) {
	if err := engine.ValidateCmd(cmd, "failed to start process instance"); err != nil {
		return engine.ProcessInstance{}, err
	}

	defer e.unlock()
	return e.lock().startProcessInstance(cmd)
}

func (e *memEngine) SignalExecution(_ context.Context, cmd engine.SignalExecutionCmd) error {
	if err := engine.ValidateCmd(cmd, "failed to signal execution"); err != nil {
		return err
	}

	defer e.unlock()
	return e.lock().signalExecution(cmd)
}

func (e *memEngine) DeleteProcessInstance(_ context.Context, cmd engine.DeleteProcessInstanceCmd) error {
	if err := engine.ValidateCmd(cmd, "failed to delete process instance"); err != nil {
		return err
	}

	defer e.unlock()
	return e.lock().deleteProcessInstance(cmd)
}

func (e *memEngine) DeleteHistoricProcessInstance(_ context.Context, processInstanceId string) error {
	defer e.unlock()
	return e.lock().deleteHistoricProcessInstance(processInstanceId)
}

func (e *memEngine) CompleteTask(_ context.Context, cmd engine.CompleteTaskCmd) error {
	if err := engine.ValidateCmd(cmd, "failed to complete task"); err != nil {
		return err
	}

	defer e.unlock()
	return e.lock().completeTask(cmd)
}

func (e *memEngine) SetTaskAssignee(_ context.Context, cmd engine.SetTaskAssigneeCmd) error {
	if err := engine.ValidateCmd(cmd, "failed to set task assignee"); err != nil {
		return err
	}

	defer e.unlock()
	return e.lock().setTaskAssignee(cmd)
}

func (e *memEngine) AddIdentityLink(_ context.Context, cmd engine.AddIdentityLinkCmd) error {
	if err := engine.ValidateCmd(cmd, "failed to add identity link"); err != nil {
		return err
	}

	defer e.unlock()
	return e.lock().addIdentityLink(cmd)
}

func (e *memEngine) GetIdentityLinks(_ context.Context, taskId string) ([]engine.IdentityLink, error) {
	defer e.unlock()
	return e.lock().getIdentityLinks(taskId)
}

func (e *memEngine) GetActiveActivityIds(_ context.Context, executionId string) ([]string, error) {
	defer e.unlock()
	return e.lock().getActiveActivityIds(executionId)
}

func (e *memEngine) GetVariables(_ context.Context, executionId string) (map[string]any, error) {
	defer e.unlock()
	return e.lock().getVariables(executionId)
}

func (e *memEngine) SetVariables(_ context.Context, cmd engine.SetVariablesCmd) error {
	if err := engine.ValidateCmd(cmd, "failed to set variables"); err != nil {
		return err
	}

	defer e.unlock()
	return e.lock().setVariables(cmd)
}

func (e *memEngine) GetTaskVariables(_ context.Context, taskId string) (map[string]any, error) {
	defer e.unlock()
	return e.lock().getTaskVariables(taskId)
}

func (e *memEngine) SetTaskVariables(_ context.Context, cmd engine.SetTaskVariablesCmd) error {
	if err := engine.ValidateCmd(cmd, "failed to set task variables"); err != nil {
		return err
	}

	defer e.unlock()
	return e.lock().setTaskVariables(cmd)
}

func (e *memEngine) GetHistoricVariables(_ context.Context, processInstanceId string) (map[string]any, error) {
	defer e.unlock()
	return e.lock().getHistoricVariables(processInstanceId)
}

func (e *memEngine) GetHistoricTaskVariables(_ context.Context, taskId string) (map[string]any, error) {
	defer e.unlock()
	return e.lock().getHistoricTaskVariables(taskId)
}

func (e *memEngine) GetParsedDefinition(_ context.Context, processDefinitionId string) (engine.ParsedDefinition, error) {
	defer e.unlock()
	return e.lock().getParsedDefinition(processDefinitionId)
}

func (e *memEngine) GetBpmnXml(_ context.Context, processDefinitionId string) (string, error) {
	defer e.unlock()

	definition, err := e.lock().definitionById(processDefinitionId)
	if err != nil {
		return "", err
	}
	return definition.BpmnXml, nil
}

func (e *memEngine) ExecuteJobs(ctx context.Context, cmd engine.ExecuteJobsCmd) ([]engine.Job, []engine.Job, error) {
	if err := engine.ValidateCmd(cmd, "failed to execute jobs"); err != nil {
		return nil, nil, err
	}

	e.ctxMutex.Lock()
	dueJobs := e.ctx.dueJobs(cmd)
	handler := e.ctx.options.Common.JobHandler
	e.ctxMutex.Unlock()

	var (
		completedJobs []engine.Job
		failedJobs    []engine.Job
	)

	for _, job := range dueJobs {
		// the handler runs unlocked, so it can call back into the engine
		var handlerErr error
		if handler != nil {
			handlerErr = handler(ctx, job)
		}

		e.ctxMutex.Lock()
		err := e.ctx.completeJob(job, handlerErr)
		e.ctxMutex.Unlock()

		if err != nil {
			e.logger.Error().Err(err).Str("job", job.String()).Msg("failed to complete job")
			failedJobs = append(failedJobs, job)
			continue
		}

		if handlerErr != nil {
			failedJobs = append(failedJobs, job)
			if onFailure := e.ctx.options.Common.OnJobExecutionFailure; onFailure != nil {
				onFailure(job, handlerErr)
			}
		} else {
			completedJobs = append(completedJobs, job)
		}
	}

	return completedJobs, failedJobs, nil
}

func (e *memEngine) SetTime(_ context.Context, cmd engine.SetTimeCmd) error {
	if err := engine.ValidateCmd(cmd, "failed to set time"); err != nil {
		return err
	}

	defer e.unlock()
	return e.lock().setTime(cmd.Time)
}

func (e *memEngine) CreateQuery() engine.Query {
	return &query{
		e: e,

		options: engine.QueryOptions{Limit: e.defaultQueryLimit},
	}
}

func (e *memEngine) Shutdown() {
	if e.jobExecutor != nil {
		e.jobExecutor.stop()
		e.jobExecutor = nil
	}

	e.ctxMutex.Lock()
	e.ctx.modelCache.Stop()
	e.ctxMutex.Unlock()
}

func newJobExecutor(e engine.Engine, interval time.Duration, jobLimit int) *jobExecutor {
	tickerCtx, tickerCancel := context.WithCancel(context.Background())

	return &jobExecutor{
		engine:   e,
		jobLimit: jobLimit,

		tickerCtx:    tickerCtx,
		tickerCancel: tickerCancel,
		ticker:       time.NewTicker(interval),
	}
}

type jobExecutor struct {
	engine   engine.Engine
	jobLimit int

	tickerCtx    context.Context
	tickerCancel context.CancelFunc
	ticker       *time.Ticker
}

func (e *jobExecutor) execute() {
	go func() {
		for {
			select {
			case <-e.ticker.C:
				_, _, _ = e.engine.ExecuteJobs(e.tickerCtx, engine.ExecuteJobsCmd{Limit: e.jobLimit})
			case <-e.tickerCtx.Done():
				return
			}
		}
	}()
}

func (e *jobExecutor) stop() {
	e.ticker.Stop()
	e.tickerCancel()
}
