package mem

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jellydator/ttlcache/v3"
	"github.com/procflow/procflow/engine"
	"github.com/procflow/procflow/model"
)

const modelCacheTTL = time.Hour

func newMemContext(options Options) *memContext {
	modelCache := ttlcache.New(
		ttlcache.WithTTL[string, *model.Model](modelCacheTTL),
	)

	go modelCache.Start()

	return &memContext{
		options:    options,
		modelCache: modelCache,
	}
}

// memContext holds the complete state of a mem engine.
// It must be accessed while the engine's mutex is held.
type memContext struct {
	options Options

	offset time.Duration // time offset, increased via SetTime
	idSeq  int64

	deployments      []deploymentEntity
	definitions      []definitionEntity
	processInstances []processInstanceEntity
	tasks            []taskEntity
	jobs             []jobEntity
	variables        []variableEntity
	identityLinks    []identityLinkEntity

	modelCache *ttlcache.Cache[string, *model.Model]
}

func (c *memContext) time() time.Time {
	return time.Now().Add(c.offset).UTC().Truncate(time.Millisecond)
}

func (c *memContext) setTime(t time.Time) error {
	now := c.time()
	if t.Before(now) {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to set time",
			Detail: fmt.Sprintf("time %s is before engine time %s", t.Format(time.RFC3339), now.Format(time.RFC3339)),
		}
	}

	c.offset = c.offset + t.Sub(now)
	return nil
}

func (c *memContext) nextId() string {
	c.idSeq++
	return strconv.FormatInt(c.idSeq, 10)
}

// selectors

func (c *memContext) definitionById(id string) (*definitionEntity, error) {
	for i := range c.definitions {
		if c.definitions[i].Id == id {
			return &c.definitions[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (c *memContext) instanceById(id string) (*processInstanceEntity, error) {
	for i := range c.processInstances {
		if c.processInstances[i].Id == id {
			return &c.processInstances[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (c *memContext) taskById(id string) (*taskEntity, error) {
	for i := range c.tasks {
		if c.tasks[i].Id == id {
			return &c.tasks[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (c *memContext) jobById(id string) (*jobEntity, error) {
	for i := range c.jobs {
		if c.jobs[i].Id == id {
			return &c.jobs[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

// cachedModel returns the decoded BPMN model of a definition, decoding and caching it on a miss.
func (c *memContext) cachedModel(definition *definitionEntity) (*model.Model, error) {
	if item := c.modelCache.Get(definition.Id); item != nil {
		return item.Value(), nil
	}

	m, err := model.New(strings.NewReader(definition.BpmnXml))
	if err != nil {
		return nil, engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to decode BPMN XML",
			Detail: err.Error(),
		}
	}

	c.modelCache.Set(definition.Id, m, ttlcache.DefaultTTL)
	return m, nil
}

func (c *memContext) getParsedDefinition(processDefinitionId string) (engine.ParsedDefinition, error) {
	definition, err := c.definitionById(processDefinitionId)
	if err == pgx.ErrNoRows {
		return engine.ParsedDefinition{}, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to get parsed definition",
			Detail: fmt.Sprintf("process definition %s could not be found", processDefinitionId),
		}
	}

	m, err := c.cachedModel(definition)
	if err != nil {
		return engine.ParsedDefinition{}, err
	}

	return engine.ParsedDefinition{Definition: definition.ProcessDefinition(), Model: m}, nil
}

func (c *memContext) getActiveActivityIds(executionId string) ([]string, error) {
	instance, err := c.instanceById(executionId)
	if err == pgx.ErrNoRows {
		return nil, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to get active activity IDs",
			Detail: fmt.Sprintf("execution %s could not be found", executionId),
		}
	}

	if !instance.ActivityId.Valid {
		return nil, nil
	}
	return []string{instance.ActivityId.String}, nil
}

func (c *memContext) getIdentityLinks(taskId string) ([]engine.IdentityLink, error) {
	if _, err := c.taskById(taskId); err == pgx.ErrNoRows {
		return nil, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to get identity links",
			Detail: fmt.Sprintf("task %s could not be found", taskId),
		}
	}

	var identityLinks []engine.IdentityLink
	for _, e := range c.identityLinks {
		if e.TaskId == taskId {
			identityLinks = append(identityLinks, e.IdentityLink())
		}
	}
	return identityLinks, nil
}
