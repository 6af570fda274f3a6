package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newDefinitionCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "definition",
		Short:       "Deploy and query workflow definitions",
		RunE:        cli.help,
		Annotations: map[string]string{noAdapterRequired: ""},
	}

	c.AddCommand(newDefinitionDeployCmd(cli))
	c.AddCommand(newDefinitionGetCmd(cli))
	c.AddCommand(newDefinitionQueryCmd(cli))
	c.AddCommand(newDefinitionUndeployCmd(cli))

	return &c
}

func newDefinitionDeployCmd(cli *Cli) *cobra.Command {
	var (
		bpmnFileName string
		internal     bool
	)

	c := cobra.Command{
		Use:   "deploy",
		Short: "Deploy a workflow definition",
		RunE: func(c *cobra.Command, _ []string) error {
			bpmnXml, err := os.ReadFile(bpmnFileName)
			if err != nil {
				return fmt.Errorf("failed to read BPMN file %s: %v", bpmnFileName, err)
			}

			deployment, err := cli.a.Deploy(cli.context(), bpmnFileName, string(bpmnXml), internal)
			if err != nil {
				return err
			}

			if len(deployment.Problems) != 0 {
				c.Println("Problems")
				for _, problem := range deployment.Problems {
					c.Println("  " + problem)
				}
				return nil
			}

			c.Println(deployment.Definition.Id)
			return nil
		},
	}

	c.Flags().StringVar(&bpmnFileName, "bpmn-file", "", "Path to a BPMN XML file")
	c.Flags().BoolVar(&internal, "internal", false, "Hide the definition from definition queries")

	c.MarkFlagRequired("bpmn-file")
	c.MarkFlagFilename("bpmn-file", ".bpmn", ".bpmn20.xml", ".xml")

	return &c
}

func newDefinitionGetCmd(cli *Cli) *cobra.Command {
	var (
		id   string
		name string
	)

	c := cobra.Command{
		Use:   "get",
		Short: "Get a workflow definition by ID or name",
		RunE: func(c *cobra.Command, _ []string) error {
			ctx := cli.context()

			definition, err := cli.a.DefinitionById(ctx, id)
			if name != "" {
				definition, err = cli.a.DefinitionByName(ctx, name)
			}
			if err != nil {
				return err
			}
			if definition == nil {
				return fmt.Errorf("no such definition")
			}

			table := newTable("ID", "KEY", "NAME", "VERSION", "TITLE", "START TASK")
			table.addRow(
				definition.Id,
				definition.Key,
				definition.Name,
				strconv.Itoa(definition.Version),
				definition.Title,
				definition.StartTaskDefinition.TypeName,
			)

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().StringVar(&id, "id", "", "Global definition ID")
	c.Flags().StringVar(&name, "name", "", "Definition name, takes precedence over --id")

	return &c
}

func newDefinitionQueryCmd(cli *Cli) *cobra.Command {
	var latest bool

	c := cobra.Command{
		Use:   "query",
		Short: "Query workflow definitions",
		RunE: func(c *cobra.Command, _ []string) error {
			ctx := cli.context()

			definitions, err := cli.a.Definitions(ctx)
			if latest {
				definitions, err = cli.a.LatestDefinitions(ctx)
			}
			if err != nil {
				return err
			}

			table := newTable("ID", "KEY", "NAME", "VERSION", "TITLE")
			for _, definition := range definitions {
				table.addRow(
					definition.Id,
					definition.Key,
					definition.Name,
					strconv.Itoa(definition.Version),
					definition.Title,
				)
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().BoolVar(&latest, "latest", false, "Latest version of each definition only")

	return &c
}

func newDefinitionUndeployCmd(cli *Cli) *cobra.Command {
	var id string

	c := cobra.Command{
		Use:   "undeploy",
		Short: "Undeploy a workflow definition and its instances",
		RunE: func(c *cobra.Command, _ []string) error {
			return cli.a.Undeploy(cli.context(), id)
		},
	}

	c.Flags().StringVar(&id, "id", "", "Global definition ID")

	c.MarkFlagRequired("id")

	return &c
}
