package adapter

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/procflow/procflow/auth"
	"github.com/procflow/procflow/engine"
	"github.com/procflow/procflow/engine/mem"
	"github.com/procflow/procflow/repo"
	"github.com/procflow/procflow/workflow"
)

const testCompanyHome = "workspace://SpacesStore/company-home"

func testDictionary() repo.DictionaryService {
	return repo.NewDictionary(
		repo.TypeDefinition{
			Name:  "wf:submitReviewTask",
			Title: "Submit Review",
		},
		repo.TypeDefinition{
			Name:  "wf:reviewTask",
			Title: "Review",
			Properties: map[string]repo.PropertyDefinition{
				"wf:reviewOutcome": {Name: "wf:reviewOutcome", DataType: repo.DataText},
			},
			Associations: map[string]bool{
				"wf:reviewers": true,
			},
			OutcomePropertyName: "wf:reviewOutcome",
		},
		repo.TypeDefinition{
			Name: "test:startTask",
			Properties: map[string]repo.PropertyDefinition{
				"test:myProp": {Name: "test:myProp", DataType: repo.DataText, DefaultValue: "Default value"},
			},
		},
		repo.TypeDefinition{
			Name: "test:workTask",
		},
	)
}

func testPeople() *repo.MemPeople {
	return repo.NewPeople(
		repo.Person{UserId: "admin", Groups: []string{"GROUP_reviewers"}},
		repo.Person{UserId: "jane", Groups: []string{"GROUP_reviewers"}},
		repo.Person{UserId: "alice@acme"},
		repo.Person{UserId: "bob@other"},
	)
}

func mustCreateAdapter(t *testing.T, tenantsEnabled bool, customizers ...func(*Options)) (*Adapter, engine.Engine) {
	e, err := mem.New()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	t.Cleanup(e.Shutdown)

	people := testPeople()

	a, err := New(e, Services{
		Authorities: people,
		Dictionary:  testDictionary(),
		Messages:    repo.NewMessages(nil),
		Nodes:       repo.NewNodes(testCompanyHome),
		People:      people,
		Tenants:     repo.NewTenants(tenantsEnabled),
	}, customizers...)
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	return a, e
}

func mustReadBpmnFile(t *testing.T, fileName string) string {
	bpmnFile, err := os.Open("../test/bpmn/" + fileName)
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

func mustDeploy(t *testing.T, a *Adapter, ctx context.Context, fileName string) *workflow.Deployment {
	deployment, err := a.Deploy(ctx, fileName, mustReadBpmnFile(t, fileName), false)
	if err != nil {
		t.Fatalf("failed to deploy %s: %v", fileName, err)
	}
	if len(deployment.Problems) != 0 {
		t.Fatalf("deployment of %s has problems: %v", fileName, deployment.Problems)
	}
	return deployment
}

func mustStartInstance(t *testing.T, a *Adapter, ctx context.Context, definitionId string, params map[string]any) *workflow.Path {
	path, err := a.StartInstance(ctx, definitionId, params)
	if err != nil {
		t.Fatalf("failed to start instance of %s: %v", definitionId, err)
	}
	return path
}

func userContext(userId string) context.Context {
	return auth.WithUser(context.Background(), userId)
}
