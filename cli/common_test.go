package cli

import (
	"strings"
	"testing"

	"github.com/procflow/procflow/adapter"
	"github.com/procflow/procflow/engine/mem"
	"github.com/procflow/procflow/repo"
)

func mustCreateCli(t *testing.T) *Cli {
	e, err := mem.New()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	t.Cleanup(e.Shutdown)

	people := repo.NewPeople(
		repo.Person{UserId: "admin"},
		repo.Person{UserId: "jane"},
	)

	a, err := adapter.New(e, adapter.Services{
		Authorities: people,
		Dictionary: repo.NewDictionary(
			repo.TypeDefinition{Name: "wf:submitReviewTask"},
			repo.TypeDefinition{
				Name: "wf:reviewTask",
				Properties: map[string]repo.PropertyDefinition{
					"wf:reviewOutcome": {Name: "wf:reviewOutcome", DataType: repo.DataText},
				},
				OutcomePropertyName: "wf:reviewOutcome",
			},
		),
		Messages: repo.NewMessages(nil),
		Nodes:    repo.NewNodes("workspace://SpacesStore/company-home"),
		People:   people,
		Tenants:  repo.NewTenants(false),
	})
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	return &Cli{e: e, a: a, userId: "jane"}
}

func mustExecute(t *testing.T, cli *Cli, args ...string) string {
	rootCmd := newRootCmd(cli)
	rootCmd.PersistentPostRun = nil

	var out strings.Builder
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("failed to execute %v: %v", args, err)
	}
	return out.String()
}
