package adapter

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/procflow/procflow/auth"
	"github.com/procflow/procflow/repo"
	"github.com/procflow/procflow/workflow"
	"github.com/rs/zerolog"
)

// reserved native variable names
const (
	varCompanyHome   = "companyhome"
	varInitiator     = "initiator"
	varInitiatorHome = "initiatorhome"

	// varStartTaskEnded marks a process instance whose virtual start task has
	// been completed. Its value is the completion timestamp.
	varStartTaskEnded = "_startTaskEnded"

	// varCancelled tags instances deleted via cancel rather than delete.
	varCancelled = "_cancelled"
)

// mapNameToVariable mangles a namespaced property name into a native variable
// name: "prefix:local" becomes "prefix_local".
func mapNameToVariable(name string) string {
	return strings.Replace(name, ":", "_", 1)
}

// mapVariableToName inverts the name mangling. Variables written by an older
// scheme use "prefix}local" and are recognized as a fallback. A variable
// without a separator is returned unchanged.
func mapVariableToName(variable string) string {
	if i := strings.Index(variable, "}"); i > 0 {
		return variable[:i] + ":" + variable[i+1:]
	}
	if i := strings.Index(variable, "_"); i > 0 {
		return variable[:i] + ":" + variable[i+1:]
	}
	return variable
}

// isReservedVariable reports whether a native variable is adapter bookkeeping
// rather than a caller-visible property.
func isReservedVariable(variable string) bool {
	switch variable {
	case varCompanyHome, varInitiator, varInitiatorHome, varStartTaskEnded, varCancelled, varTenantDomain:
		return true
	default:
		return false
	}
}

// propertyConverter maps between the namespaced typed-property model and the
// engine's string-keyed untyped variables.
type propertyConverter struct {
	dictionary repo.DictionaryService
	nodes      repo.NodeService
	people     repo.PersonService

	logger zerolog.Logger
}

// taskProperties maps native variables back to namespaced property names and
// converts values to their declared types, where the type's metadata is known.
func (c *propertyConverter) taskProperties(typeName string, variables map[string]any) map[string]any {
	typeDefinition, _ := c.dictionary.TypeDefinition(typeName)

	properties := make(map[string]any, len(variables))
	for variable, value := range variables {
		if isReservedVariable(variable) {
			continue
		}

		name := mapVariableToName(variable)
		if propertyDefinition, ok := typeDefinition.Properties[name]; ok {
			value = convertValue(propertyDefinition.DataType, value)
		}
		properties[name] = value
	}
	return properties
}

// startVariables computes the native variable set seeding a new process
// instance: declared defaults for absent start-task properties, the supplied
// parameters, and the fixed company-home, initiator and initiator-home
// references.
func (c *propertyConverter) startVariables(ctx context.Context, startTypeName string, params map[string]any) map[string]any {
	variables := make(map[string]any)

	if typeDefinition, ok := c.dictionary.TypeDefinition(startTypeName); ok {
		for name, propertyDefinition := range typeDefinition.Properties {
			if propertyDefinition.DefaultValue == "" {
				continue
			}
			if _, supplied := params[name]; supplied {
				continue
			}
			variables[mapNameToVariable(name)] = convertValue(propertyDefinition.DataType, propertyDefinition.DefaultValue)
		}
	}

	for name, value := range params {
		variables[mapNameToVariable(name)] = value
	}

	variables[varCompanyHome] = c.nodes.CompanyHome()

	userId := auth.User(ctx)
	if userId == "" {
		userId = auth.SystemUserId
	}
	if nodeRef, ok := c.people.PersonNodeRef(userId); ok {
		variables[varInitiator] = nodeRef
	} else {
		variables[varInitiator] = userId
	}
	if homeFolder, ok := c.people.HomeFolder(userId); ok {
		variables[varInitiatorHome] = homeFolder
	}

	return variables
}

// updateVariables merges property updates and association add/remove sets into
// the given native local variables. Association values are merged against the
// existing list, not replaced.
func (c *propertyConverter) updateVariables(typeName string, variables map[string]any, propUpdates map[string]any, addAssocs map[string][]string, removeAssocs map[string][]string) map[string]any {
	typeDefinition, _ := c.dictionary.TypeDefinition(typeName)

	updates := make(map[string]any, len(propUpdates))
	for name, value := range propUpdates {
		updates[mapNameToVariable(name)] = value
	}

	for name, added := range addAssocs {
		if !typeDefinition.Associations[name] {
			c.logger.Warn().Str("name", name).Msg("ignoring add of undeclared association")
			continue
		}

		variable := mapNameToVariable(name)
		existing := toStringList(variables[variable])
		for _, v := range added {
			if !slices.Contains(existing, v) {
				existing = append(existing, v)
			}
		}
		updates[variable] = existing
	}

	for name, removed := range removeAssocs {
		if !typeDefinition.Associations[name] {
			continue
		}

		variable := mapNameToVariable(name)

		existing := toStringList(variables[variable])
		if updated, ok := updates[variable]; ok {
			existing = toStringList(updated)
		}

		existing = slices.DeleteFunc(existing, func(v string) bool {
			return slices.Contains(removed, v)
		})
		updates[variable] = existing
	}

	return updates
}

// resolveOutcome determines the outcome value recorded when a task ends.
//
// A named transition other than the implicit default is only valid if the
// task's type declares an outcome property; the transition string is then
// converted to the property's declared type. Without a named transition, the
// current value of the outcome property, if any, is read back.
func (c *propertyConverter) resolveOutcome(typeName string, transitionId string, variables map[string]any) (name string, value any, err error) {
	typeDefinition, _ := c.dictionary.TypeDefinition(typeName)

	outcomeName := typeDefinition.OutcomePropertyName
	if transitionId != "" && transitionId != workflow.DefaultTransitionId {
		if outcomeName == "" {
			return "", nil, workflow.NewError(workflow.ErrInvalidTransition,
				"task type %s declares no outcome property, only the default transition %q is supported", typeName, workflow.DefaultTransitionId)
		}

		outcomeValue := any(transitionId)
		if propertyDefinition, ok := typeDefinition.Properties[outcomeName]; ok {
			outcomeValue = convertValue(propertyDefinition.DataType, transitionId)
		}
		return outcomeName, outcomeValue, nil
	}

	if outcomeName == "" {
		return "", nil, nil
	}

	if existing, ok := variables[mapNameToVariable(outcomeName)]; ok && existing != nil {
		return outcomeName, fmt.Sprint(existing), nil
	}
	return outcomeName, nil, nil
}

// convertValue converts a native value to a declared data type.
// A value that cannot be converted is passed through unchanged.
func convertValue(dataType repo.DataType, value any) any {
	if value == nil {
		return nil
	}

	switch dataType {
	case repo.DataText:
		return fmt.Sprint(value)
	case repo.DataInt:
		switch v := value.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		case string:
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
	case repo.DataFloat:
		switch v := value.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
	case repo.DataBoolean:
		switch v := value.(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	case repo.DataDate:
		switch v := value.(type) {
		case time.Time:
			return v
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t
			}
		}
	case repo.DataNodeRef:
		return fmt.Sprint(value)
	}

	return value
}

func toStringList(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		return slices.Clone(v)
	case []any:
		list := make([]string, 0, len(v))
		for _, item := range v {
			list = append(list, fmt.Sprint(item))
		}
		return list
	case string:
		if v == "" {
			return nil
		}
		return strings.Split(v, ",")
	default:
		return []string{fmt.Sprint(v)}
	}
}
