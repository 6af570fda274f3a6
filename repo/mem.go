package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/procflow/procflow/auth"
)

// NewDictionary creates an in-memory dictionary service from type definitions.
func NewDictionary(typeDefinitions ...TypeDefinition) DictionaryService {
	types := make(map[string]TypeDefinition, len(typeDefinitions))
	for _, typeDefinition := range typeDefinitions {
		types[typeDefinition.Name] = typeDefinition
	}
	return &memDictionary{types: types}
}

type memDictionary struct {
	types map[string]TypeDefinition
}

func (d *memDictionary) TypeDefinition(name string) (TypeDefinition, bool) {
	typeDefinition, ok := d.types[name]
	return typeDefinition, ok
}

// NewNodes creates an in-memory node service.
func NewNodes(companyHome string, nodeRefs ...string) NodeService {
	nodes := make(map[string]bool, len(nodeRefs)+1)
	nodes[companyHome] = true
	for _, nodeRef := range nodeRefs {
		nodes[nodeRef] = true
	}
	return &memNodes{companyHome: companyHome, nodes: nodes}
}

type memNodes struct {
	companyHome string
	nodes       map[string]bool
}

func (n *memNodes) Exists(nodeRef string) bool {
	return n.nodes[nodeRef]
}

func (n *memNodes) CompanyHome() string {
	return n.companyHome
}

// Person is a user known to an in-memory person service.
type Person struct {
	UserId string

	Groups     []string // Groups the user belongs to.
	HomeFolder string
	NodeRef    string
}

// NewPeople creates an in-memory person and authority service.
func NewPeople(people ...Person) *MemPeople {
	byUserId := make(map[string]Person, len(people))
	for _, person := range people {
		byUserId[person.UserId] = person
	}
	return &MemPeople{people: byUserId}
}

// MemPeople implements both PersonService and AuthorityService.
type MemPeople struct {
	people map[string]Person
}

func (p *MemPeople) Exists(userId string) bool {
	_, ok := p.people[userId]
	return ok || userId == auth.SystemUserId
}

func (p *MemPeople) PersonNodeRef(userId string) (string, bool) {
	person, ok := p.people[userId]
	if !ok {
		return "", false
	}
	if person.NodeRef == "" {
		return fmt.Sprintf("workspace://SpacesStore/person-%s", userId), true
	}
	return person.NodeRef, true
}

func (p *MemPeople) HomeFolder(userId string) (string, bool) {
	person, ok := p.people[userId]
	if !ok {
		return "", false
	}
	if person.HomeFolder == "" {
		return fmt.Sprintf("workspace://SpacesStore/home-%s", userId), true
	}
	return person.HomeFolder, true
}

func (p *MemPeople) UserIdOf(nodeRef string) (string, bool) {
	for userId := range p.people {
		if personNodeRef, ok := p.PersonNodeRef(userId); ok && personNodeRef == nodeRef {
			return userId, true
		}
	}
	return "", false
}

func (p *MemPeople) AuthoritiesOf(userId string) []string {
	return p.people[userId].Groups
}

func (p *MemPeople) IsGroup(authority string) bool {
	return strings.HasPrefix(authority, "GROUP_")
}

// NewTenants creates an in-memory tenant service.
//
// The current domain is taken from the user ID carried on the context: a user
// ID of the form "user@domain" belongs to the tenant domain, anything else to
// the default tenant. The enabled flag governs name qualification and
// domain-based filtering only.
func NewTenants(enabled bool) TenantService {
	return &memTenants{enabled: enabled}
}

type memTenants struct {
	enabled bool
}

func (t *memTenants) IsEnabled() bool {
	return t.enabled
}

func (t *memTenants) CurrentDomain(ctx context.Context) string {
	userId := auth.User(ctx)
	if i := strings.LastIndex(userId, "@"); i > 0 {
		return userId[i+1:]
	}
	return ""
}

func (t *memTenants) QualifyName(ctx context.Context, name string) string {
	if !t.enabled {
		return name
	}
	return QualifyTenantName(t.CurrentDomain(ctx), name)
}

func (t *memTenants) BaseName(name string) string {
	if len(name) < 2 || name[0] != '@' {
		return name
	}
	if i := strings.Index(name[1:], "@"); i >= 0 {
		return name[i+2:]
	}
	return name
}

func (t *memTenants) DomainOf(name string) string {
	if len(name) < 2 || name[0] != '@' {
		return ""
	}
	if i := strings.Index(name[1:], "@"); i >= 0 {
		return name[1 : i+1]
	}
	return ""
}

// NewMessages creates an in-memory message service.
// Unknown keys fall back to the key itself, so error text is never empty.
func NewMessages(messages map[string]string) MessageService {
	return &memMessages{messages: messages}
}

type memMessages struct {
	messages map[string]string
}

func (m *memMessages) Message(key string, args ...any) string {
	template, ok := m.messages[key]
	if !ok {
		template = key
	}
	if len(args) == 0 {
		return template
	}
	return fmt.Sprintf(template, args...)
}
