package mem

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/procflow/procflow/engine"
)

func mustCreateEngine(t *testing.T, customizers ...func(*Options)) engine.Engine {
	e, err := New(customizers...)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func mustReadBpmnFile(t *testing.T, fileName string) string {
	bpmnFile, err := os.Open("../../test/bpmn/" + fileName)
	if err != nil {
		t.Fatalf("failed to open BPMN file: %v", err)
	}

	defer bpmnFile.Close()

	b, err := io.ReadAll(bpmnFile)
	if err != nil {
		t.Fatalf("failed to read BPMN XML: %v", err)
	}
	return string(b)
}

func mustCreateDeployment(t *testing.T, e engine.Engine, fileName string) (engine.Deployment, []engine.ProcessDefinition) {
	deployment, definitions, err := e.CreateDeployment(context.Background(), engine.CreateDeploymentCmd{
		BpmnXml:      mustReadBpmnFile(t, fileName),
		Name:         fileName,
		ResourceName: fileName,
	})
	if err != nil {
		t.Fatalf("failed to create deployment: %v", err)
	}
	return deployment, definitions
}

func mustStartProcessInstance(t *testing.T, e engine.Engine, processDefinitionId string, variables map[string]any) engine.ProcessInstance {
	processInstance, err := e.StartProcessInstance(context.Background(), engine.StartProcessInstanceCmd{
		ProcessDefinitionId: processDefinitionId,
		StartedBy:           "test-user",
		Variables:           variables,
	})
	if err != nil {
		t.Fatalf("failed to start process instance: %v", err)
	}
	return processInstance
}
