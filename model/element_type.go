package model

import "fmt"

// ElementType describes the BPMN element types supported by the engine.
type ElementType int

const (
	ElementEndEvent ElementType = iota + 1
	ElementExclusiveGateway
	ElementProcess
	ElementReceiveTask
	ElementServiceTask
	ElementStartEvent
	ElementTimerCatchEvent
	ElementUserTask
)

func MapElementType(s string) ElementType {
	switch s {
	case "END_EVENT":
		return ElementEndEvent
	case "EXCLUSIVE_GATEWAY":
		return ElementExclusiveGateway
	case "PROCESS":
		return ElementProcess
	case "RECEIVE_TASK":
		return ElementReceiveTask
	case "SERVICE_TASK":
		return ElementServiceTask
	case "START_EVENT":
		return ElementStartEvent
	case "TIMER_CATCH_EVENT":
		return ElementTimerCatchEvent
	case "USER_TASK":
		return ElementUserTask
	default:
		return 0
	}
}

// IsTask determines if an element of this type represents a unit of work.
func (v ElementType) IsTask() bool {
	switch v {
	case ElementReceiveTask, ElementServiceTask, ElementUserTask:
		return true
	default:
		return false
	}
}

// IsWaitState determines if an execution stays at an element of this type until it is triggered externally.
func (v ElementType) IsWaitState() bool {
	switch v {
	case ElementReceiveTask, ElementTimerCatchEvent, ElementUserTask:
		return true
	default:
		return false
	}
}

func (v ElementType) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v ElementType) String() string {
	switch v {
	case ElementEndEvent:
		return "END_EVENT"
	case ElementExclusiveGateway:
		return "EXCLUSIVE_GATEWAY"
	case ElementProcess:
		return "PROCESS"
	case ElementReceiveTask:
		return "RECEIVE_TASK"
	case ElementServiceTask:
		return "SERVICE_TASK"
	case ElementStartEvent:
		return "START_EVENT"
	case ElementTimerCatchEvent:
		return "TIMER_CATCH_EVENT"
	case ElementUserTask:
		return "USER_TASK"
	default:
		return ""
	}
}

func (v *ElementType) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapElementType(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid element type data %s", s)
	}
	return nil
}
