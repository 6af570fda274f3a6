package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidXml(t *testing.T) {
	if _, err := New(strings.NewReader("")); err == nil {
		t.Fatal("expected error when XML is empty")
	}

	if _, err := New(strings.NewReader("#")); err == nil {
		t.Fatal("expected error when XML is invalid")
	}

	if _, err := New(strings.NewReader("<process></process>")); err == nil {
		t.Fatal("expected error when XML contains no definitions")
	}

	if _, err := New(strings.NewReader("<process></process1>")); err == nil {
		t.Fatal("expected error when XML is invalid")
	}
}

func TestReview(t *testing.T) {
	assert := assert.New(t)

	// when
	model := mustCreateModel(t, "review.bpmn")

	// then
	assert.Equal("test", model.Definitions.Id)
	assert.Len(model.Definitions.Processes, 1)

	processElement := model.Definitions.Processes[0]
	assert.Equal("review", processElement.Id)
	assert.Equal("Document Review", processElement.Name)
	assert.Equal(ElementProcess, processElement.Type)
	assert.Equal("Review and approve a submitted document.", processElement.Documentation)
	assert.Equal(Process{IsExecutable: true}, processElement.Model)
	assert.Len(processElement.Children, 3)

	startEvent := processElement.ChildById("start")
	if assert.NotNil(startEvent) {
		assert.Equal(ElementStartEvent, startEvent.Type)
		assert.Equal("wf:submitReviewTask", startEvent.FormKey)
		assert.Len(startEvent.Outgoing, 1)
	}

	userTask := processElement.ChildById("reviewTask")
	if assert.NotNil(userTask) {
		assert.Equal(ElementUserTask, userTask.Type)
		assert.Equal("Review Document", userTask.Name)
		assert.Equal("wf:reviewTask", userTask.FormKey)
		assert.Equal([]string{"GROUP_reviewers"}, userTask.CandidateGroups)
	}

	assert.Equal(userTask, startEvent.TargetById("reviewTask"))
	assert.Equal(startEvent, model.InitialElement("review"))
	assert.Nil(model.InitialElement("unknown"))
}

func TestTimer(t *testing.T) {
	assert := assert.New(t)

	// when
	model := mustCreateModel(t, "timer.bpmn")

	// then
	userTask := model.ElementById("remindTask")
	if assert.NotNil(userTask) {
		assert.Equal("admin", userTask.Assignee)
		assert.Equal("PT1H", userTask.Timer)
	}

	timerCatchEvent := model.ElementById("dueTimer")
	if assert.NotNil(timerCatchEvent) {
		assert.Equal(ElementTimerCatchEvent, timerCatchEvent.Type)
		assert.Equal("PT1H", timerCatchEvent.Timer)
		assert.Len(timerCatchEvent.Incoming, 1)
		assert.Len(timerCatchEvent.Outgoing, 1)
	}

	assert.Len(model.ElementsByType(ElementTimerCatchEvent), 1)
}

func TestCycle(t *testing.T) {
	assert := assert.New(t)

	// when
	model := mustCreateModel(t, "cycle.bpmn")

	// then
	draft := model.ElementById("draft")
	decide := model.ElementById("decide")

	if assert.NotNil(draft) && assert.NotNil(decide) {
		assert.Len(draft.Incoming, 2)
		assert.Len(decide.Outgoing, 2)
		assert.Equal(ElementExclusiveGateway, decide.Type)
		assert.Equal(ExclusiveGateway{Default: "f4"}, decide.Model)
		assert.Equal(draft, decide.TargetById("draft"))
	}
}

func TestAllElements(t *testing.T) {
	model := mustCreateModel(t, "service.bpmn")

	processElement := model.Definitions.Processes[0]
	assert.Len(t, processElement.AllElements(), 5)
	assert.Len(t, processElement.ChildrenByType(ElementUserTask), 1)
}
