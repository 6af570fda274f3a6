package model

// Element represents a BPMN element within a process.
type Element struct {
	Id   string
	Name string
	Type ElementType

	Parent   *Element
	Incoming []*SequenceFlow
	Outgoing []*SequenceFlow

	Documentation string

	// Extension attributes, set on task and event elements.
	Assignee        string   // Initial assignee of a user task.
	CandidateGroups []string // Groups that may claim a user task.
	CandidateUsers  []string // Users that may claim a user task.
	FormKey         string   // Key of the form or metadata type, attached to a start event or user task.
	Timer           string   // Timer definition of a timer catch event: a CRON expression or an ISO 8601 duration.

	Children []*Element

	Model any
}

// AllElements returns the element and all its descendants in document order.
func (e *Element) AllElements() []*Element {
	all := []*Element{e}

	i := 0
	for i < len(all) {
		all = append(all, all[i].Children...)
		i++
	}

	return all
}

func (e *Element) ChildById(id string) *Element {
	for i := 0; i < len(e.Children); i++ {
		if e.Children[i].Id == id {
			return e.Children[i]
		}
	}
	return nil
}

func (e *Element) ChildrenByType(elementType ElementType) []*Element {
	var children []*Element
	for i := 0; i < len(e.Children); i++ {
		if e.Children[i].Type == elementType {
			children = append(children, e.Children[i])
		}
	}
	return children
}

// TargetById returns the target element of an outgoing sequence flow, or nil, if no such flow exists.
func (e *Element) TargetById(targetId string) *Element {
	for i := 0; i < len(e.Outgoing); i++ {
		target := e.Outgoing[i].Target
		if target != nil && target.Id == targetId {
			return target
		}
	}
	return nil
}

type SequenceFlow struct {
	Id     string
	Source *Element
	Target *Element
}

// element specific models

type Process struct {
	IsExecutable bool
}
