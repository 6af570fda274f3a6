// Package repo defines the content-repository collaborators the workflow
// adapter depends on: dictionary metadata, nodes, people and authorities,
// tenants and localized messages.
//
// The interfaces are intentionally narrow. In-memory implementations are
// provided for embedding and testing.
package repo

import (
	"context"
	"fmt"
)

// DataType describes the declared type of a property definition.
type DataType int

const (
	DataAny DataType = iota + 1
	DataBoolean
	DataDate
	DataFloat
	DataInt
	DataNodeRef
	DataText
)

func MapDataType(s string) DataType {
	switch s {
	case "d:any":
		return DataAny
	case "d:boolean":
		return DataBoolean
	case "d:date":
		return DataDate
	case "d:float":
		return DataFloat
	case "d:int":
		return DataInt
	case "d:noderef":
		return DataNodeRef
	case "d:text":
		return DataText
	default:
		return 0
	}
}

func (v DataType) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v DataType) String() string {
	switch v {
	case DataAny:
		return "d:any"
	case DataBoolean:
		return "d:boolean"
	case DataDate:
		return "d:date"
	case DataFloat:
		return "d:float"
	case DataInt:
		return "d:int"
	case DataNodeRef:
		return "d:noderef"
	case DataText:
		return "d:text"
	default:
		return ""
	}
}

func (v *DataType) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapDataType(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid data type %s", s)
	}
	return nil
}

// PropertyDefinition declares a namespaced property on a type.
type PropertyDefinition struct {
	Name string // Namespaced property name, e.g. "wf:reviewOutcome".

	DataType     DataType
	DefaultValue string // Optional default, applied when the property is absent.
}

// TypeDefinition is the metadata of a task or start-task type.
type TypeDefinition struct {
	Name string // Namespaced type name, e.g. "wf:reviewTask".

	Title       string
	Description string

	// Properties declared on the type, keyed by namespaced name.
	Properties map[string]PropertyDefinition
	// Associations declared on the type, keyed by namespaced name.
	// Association values are multi-valued and merged, not replaced, on update.
	Associations map[string]bool

	// OutcomePropertyName is the property that records which transition was
	// taken when a task of this type completed. Empty if none is declared.
	OutcomePropertyName string
	// EndAutomatically marks start-task types whose synthetic start task is
	// ended immediately after the instance is started.
	EndAutomatically bool
}

// A DictionaryService looks up type metadata.
type DictionaryService interface {
	// TypeDefinition returns the metadata of a type, or false, if the type is unknown.
	TypeDefinition(name string) (TypeDefinition, bool)
}

// A NodeService resolves node references.
type NodeService interface {
	// Exists determines if a node reference points to an existing node.
	Exists(nodeRef string) bool
	// CompanyHome returns the node reference of the company home folder.
	CompanyHome() string
}

// A PersonService resolves users.
type PersonService interface {
	// Exists determines if a user exists.
	Exists(userId string) bool
	// PersonNodeRef returns the node reference of a user, or false, if the user is unknown.
	PersonNodeRef(userId string) (string, bool)
	// HomeFolder returns the node reference of a user's home folder, or false, if the user is unknown.
	HomeFolder(userId string) (string, bool)
	// UserIdOf returns the user a person node reference belongs to, or false, if no user matches.
	UserIdOf(nodeRef string) (string, bool)
}

// An AuthorityService resolves group membership.
type AuthorityService interface {
	// AuthoritiesOf returns the groups a user belongs to.
	AuthoritiesOf(userId string) []string
	// IsGroup determines if an authority name denotes a group.
	IsGroup(authority string) bool
}

// A TenantService partitions data into tenant domains.
//
// A tenant-qualified name has the form "@domain@name". When multi-tenancy is
// disabled, names are passed through unqualified.
type TenantService interface {
	// IsEnabled determines if multi-tenant deployment mode is enabled.
	IsEnabled() bool
	// CurrentDomain returns the tenant domain of the calling user, or an
	// empty string for the default tenant.
	CurrentDomain(ctx context.Context) string
	// QualifyName prefixes a name with the caller's tenant domain.
	QualifyName(ctx context.Context, name string) string
	// BaseName strips a tenant prefix, if present.
	BaseName(name string) string
	// DomainOf extracts the tenant domain of a qualified name, or an empty string.
	DomainOf(name string) string
}

// A MessageService translates message keys into localized text.
type MessageService interface {
	Message(key string, args ...any) string
}

// QualifyTenantName builds a tenant-qualified name.
func QualifyTenantName(domain string, name string) string {
	if domain == "" {
		return name
	}
	return fmt.Sprintf("@%s@%s", domain, name)
}
