package model

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// New decodes a BPMN XML document into a model.
//
// Only the element types listed in [ElementType] are retained.
// Unknown elements are skipped, so that a definition authored for a richer
// engine can still be deployed, as long as its executable paths consist of
// supported elements.
func New(bpmnXmlReader io.Reader) (*Model, error) {
	var (
		definitions       Definitions
		definitionsParsed bool

		elements []*Element

		element       *Element
		parentElement *Element

		isDocumentation bool
		isIncoming      bool
		isOutgoing      bool
		isTimeCycle     bool
		isTimeDuration  bool
	)

	addElement := func(elementType ElementType, attributes []xml.Attr) {
		element = newElement(elementType, attributes)

		if parentElement != nil {
			element.Parent = parentElement
			parentElement.Children = append(parentElement.Children, element)
		}

		elements = append(elements, element)
	}

	var sequenceFlows []*SequenceFlow

	sequenceFlowById := func(id string) *SequenceFlow {
		for _, sequenceFlow := range sequenceFlows {
			if sequenceFlow.Id == id {
				return sequenceFlow
			}
		}

		sequenceFlow := &SequenceFlow{Id: id}
		sequenceFlows = append(sequenceFlows, sequenceFlow)
		return sequenceFlow
	}

	decoder := xml.NewDecoder(bpmnXmlReader)

	count := 0
	for {
		token, err := decoder.Token()
		if token == nil || err == io.EOF {
			if count == 0 {
				return nil, errors.New("XML is empty")
			}
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode XML: %v", err)
		}

		count++

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "definitions":
				definitions.Id = getAttrValue(t.Attr, "id")
				definitionsParsed = true
			case "documentation":
				isDocumentation = true
			case "endEvent":
				addElement(ElementEndEvent, t.Attr)
			case "exclusiveGateway":
				addElement(ElementExclusiveGateway, t.Attr)
				element.Model = ExclusiveGateway{Default: getAttrValue(t.Attr, "default")}
			case "incoming":
				isIncoming = true
			case "intermediateCatchEvent":
				element = newElement(0, t.Attr) // unknown type until an event definition is decoded
			case "outgoing":
				isOutgoing = true
			case "process":
				isExecutable, _ := strconv.ParseBool(getAttrValue(t.Attr, "isExecutable"))

				addElement(ElementProcess, t.Attr)
				parentElement = element
				parentElement.Model = Process{IsExecutable: isExecutable}

				definitions.Processes = append(definitions.Processes, parentElement)
			case "receiveTask":
				addElement(ElementReceiveTask, t.Attr)
			case "serviceTask":
				addElement(ElementServiceTask, t.Attr)
			case "startEvent":
				addElement(ElementStartEvent, t.Attr)
			case "timeCycle":
				isTimeCycle = true
			case "timeDuration":
				isTimeDuration = true
			case "timerEventDefinition":
				if element != nil && element.Type == 0 {
					element.Type = ElementTimerCatchEvent

					if element.Parent == nil && parentElement != nil {
						element.Parent = parentElement
						parentElement.Children = append(parentElement.Children, element)
					}
					elements = append(elements, element)
				}
			case "userTask":
				addElement(ElementUserTask, t.Attr)
			default:
				element = nil
			}
		case xml.CharData:
			if element == nil {
				continue // skip unknown element
			} else if isDocumentation {
				element.Documentation = strings.TrimSpace(string(t))
			} else if isIncoming {
				sequenceFlow := sequenceFlowById(string(t))
				sequenceFlow.Target = element
				element.Incoming = append(element.Incoming, sequenceFlow)
			} else if isOutgoing {
				sequenceFlow := sequenceFlowById(string(t))
				sequenceFlow.Source = element
				element.Outgoing = append(element.Outgoing, sequenceFlow)
			} else if isTimeCycle || isTimeDuration {
				element.Timer = strings.TrimSpace(string(t))
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "documentation":
				isDocumentation = false
			case "incoming":
				isIncoming = false
			case "intermediateCatchEvent":
				element = nil
			case "outgoing":
				isOutgoing = false
			case "process":
				parentElement = nil
			case "timeCycle":
				isTimeCycle = false
			case "timeDuration":
				isTimeDuration = false
			}
		}
	}

	if !definitionsParsed {
		return nil, errors.New("no definitions found")
	}

	return &Model{
		Definitions: &definitions,

		Elements:      elements,
		SequenceFlows: sequenceFlows,
	}, nil
}

type Model struct {
	Definitions *Definitions

	Elements      []*Element
	SequenceFlows []*SequenceFlow
}

// ElementById returns the element with the given id, or nil, if no such element exists.
func (m *Model) ElementById(id string) *Element {
	for _, element := range m.Elements {
		if element.Id == id {
			return element
		}
	}
	return nil
}

// ElementsByType returns all elements of the given type.
func (m *Model) ElementsByType(elementType ElementType) []*Element {
	var elements []*Element
	for _, element := range m.Elements {
		if element.Type == elementType {
			elements = append(elements, element)
		}
	}
	return elements
}

// InitialElement returns the start event of a process, or nil, if the process has none.
func (m *Model) InitialElement(processId string) *Element {
	processElement := m.ProcessById(processId)
	if processElement == nil {
		return nil
	}

	startEvents := processElement.ChildrenByType(ElementStartEvent)
	if len(startEvents) == 0 {
		return nil
	}
	return startEvents[0]
}

// ProcessById returns the process with the given id, or nil, if no such process exists.
func (m *Model) ProcessById(id string) *Element {
	for i := range m.Definitions.Processes {
		if m.Definitions.Processes[i].Id == id {
			return m.Definitions.Processes[i]
		}
	}
	return nil
}

type Definitions struct {
	Id string

	Processes []*Element
}

// element specific models, resolved from attributes

type ExclusiveGateway struct {
	Default string // ID of the default sequence flow.
}

func getAttrValue(attributes []xml.Attr, name string) string {
	for i := range attributes {
		if attributes[i].Name.Local == name {
			return attributes[i].Value
		}
	}
	return ""
}

func newElement(elementType ElementType, attributes []xml.Attr) *Element {
	element := Element{
		Id:   getAttrValue(attributes, "id"),
		Name: getAttrValue(attributes, "name"),
		Type: elementType,

		Assignee: getAttrValue(attributes, "assignee"),
		FormKey:  getAttrValue(attributes, "formKey"),
		Timer:    getAttrValue(attributes, "timer"),
	}

	if candidateGroups := getAttrValue(attributes, "candidateGroups"); candidateGroups != "" {
		element.CandidateGroups = splitList(candidateGroups)
	}
	if candidateUsers := getAttrValue(attributes, "candidateUsers"); candidateUsers != "" {
		element.CandidateUsers = splitList(candidateUsers)
	}

	return &element
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")

	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
