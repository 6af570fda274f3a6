package cli

import (
	"fmt"
	"strconv"

	"github.com/procflow/procflow/workflow"
	"github.com/spf13/cobra"
)

func newInstanceCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "instance",
		Short:       "Start, signal and query workflow instances",
		RunE:        cli.help,
		Annotations: map[string]string{noAdapterRequired: ""},
	}

	c.AddCommand(newInstanceCancelCmd(cli))
	c.AddCommand(newInstanceDeleteCmd(cli))
	c.AddCommand(newInstanceGetCmd(cli))
	c.AddCommand(newInstanceQueryCmd(cli))
	c.AddCommand(newInstanceSignalCmd(cli))
	c.AddCommand(newInstanceStartCmd(cli))
	c.AddCommand(newInstanceTimersCmd(cli))

	return &c
}

func newInstanceStartCmd(cli *Cli) *cobra.Command {
	var (
		definitionId string
		propertyMap  map[string]string
	)

	c := cobra.Command{
		Use:   "start",
		Short: "Start a workflow instance",
		RunE: func(c *cobra.Command, _ []string) error {
			path, err := cli.a.StartInstance(cli.context(), definitionId, mapProperties(propertyMap))
			if err != nil {
				return err
			}

			c.Println(path.Instance.Id)
			return nil
		},
	}

	c.Flags().StringVar(&definitionId, "definition-id", "", "Global definition ID")
	c.Flags().StringToStringVar(&propertyMap, "property", nil, "Start property, consisting of namespaced name and value")

	c.MarkFlagRequired("definition-id")

	return &c
}

func newInstanceSignalCmd(cli *Cli) *cobra.Command {
	var (
		pathId       string
		transitionId string
	)

	c := cobra.Command{
		Use:   "signal",
		Short: "Signal a waiting execution path",
		RunE: func(c *cobra.Command, _ []string) error {
			path, err := cli.a.SignalPath(cli.context(), pathId, transitionId)
			if err != nil {
				return err
			}

			c.Print(formatPath(path))
			return nil
		},
	}

	c.Flags().StringVar(&pathId, "id", "", "Global path ID")
	c.Flags().StringVar(&transitionId, "transition-id", workflow.DefaultTransitionId, "Transition to take")

	c.MarkFlagRequired("id")

	return &c
}

func newInstanceGetCmd(cli *Cli) *cobra.Command {
	var id string

	c := cobra.Command{
		Use:   "get",
		Short: "Get a workflow instance",
		RunE: func(c *cobra.Command, _ []string) error {
			instance, err := cli.a.InstanceById(cli.context(), id)
			if err != nil {
				return err
			}
			if instance == nil {
				return fmt.Errorf("no such instance")
			}

			c.Print(formatInstances(instance))
			return nil
		},
	}

	c.Flags().StringVar(&id, "id", "", "Global instance ID")

	c.MarkFlagRequired("id")

	return &c
}

func newInstanceQueryCmd(cli *Cli) *cobra.Command {
	var (
		active      bool
		propertyMap map[string]string

		query workflow.InstanceQuery
	)

	c := cobra.Command{
		Use:   "query",
		Short: "Query workflow instances",
		RunE: func(c *cobra.Command, _ []string) error {
			if c.Flags().Changed("active") {
				query.Active = &active
			}
			query.Properties = mapProperties(propertyMap)

			instances, err := cli.a.QueryInstances(cli.context(), query)
			if err != nil {
				return err
			}

			c.Print(formatInstances(instances...))
			return nil
		},
	}

	c.Flags().StringVar(&query.DefinitionId, "definition-id", "", "Global definition ID")
	c.Flags().BoolVar(&active, "active", false, "Running instances only, finished only when false is passed explicitly")
	c.Flags().StringToStringVar(&propertyMap, "property", nil, "Instance property, consisting of namespaced name and value")

	return &c
}

func newInstanceCancelCmd(cli *Cli) *cobra.Command {
	var id string

	c := cobra.Command{
		Use:   "cancel",
		Short: "Cancel a workflow instance",
		RunE: func(c *cobra.Command, _ []string) error {
			instance, err := cli.a.CancelInstance(cli.context(), id)
			if err != nil {
				return err
			}

			c.Print(formatInstances(instance))
			return nil
		},
	}

	c.Flags().StringVar(&id, "id", "", "Global instance ID")

	c.MarkFlagRequired("id")

	return &c
}

func newInstanceDeleteCmd(cli *Cli) *cobra.Command {
	var id string

	c := cobra.Command{
		Use:   "delete",
		Short: "Delete a workflow instance",
		RunE: func(c *cobra.Command, _ []string) error {
			instance, err := cli.a.DeleteInstance(cli.context(), id)
			if err != nil {
				return err
			}

			c.Print(formatInstances(instance))
			return nil
		},
	}

	c.Flags().StringVar(&id, "id", "", "Global instance ID")

	c.MarkFlagRequired("id")

	return &c
}

func newInstanceTimersCmd(cli *Cli) *cobra.Command {
	var id string

	c := cobra.Command{
		Use:   "timers",
		Short: "Query the pending timers of a workflow instance",
		RunE: func(c *cobra.Command, _ []string) error {
			timers, err := cli.a.Timers(cli.context(), id)
			if err != nil {
				return err
			}

			table := newTable("ID", "DUE AT", "NODE", "TASK", "ERROR")
			for _, timer := range timers {
				var node string
				if timer.Path != nil && timer.Path.Node != nil {
					node = timer.Path.Node.Name
				}

				var task string
				if timer.Task != nil {
					task = timer.Task.Id
				}

				table.addRow(timer.Id, formatTime(timer.DueAt), node, task, timer.Error)
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().StringVar(&id, "id", "", "Global instance ID")

	c.MarkFlagRequired("id")

	return &c
}

func formatInstances(instances ...*workflow.Instance) string {
	table := newTable("ID", "DEFINITION", "ACTIVE", "INITIATOR", "STARTED AT", "ENDED AT", "DESCRIPTION")
	for _, instance := range instances {
		var definitionName string
		if instance.Definition != nil {
			definitionName = instance.Definition.Name
		}

		table.addRow(
			instance.Id,
			definitionName,
			strconv.FormatBool(instance.Active),
			instance.Initiator,
			formatTime(instance.StartedAt),
			formatTimeOrNil(instance.EndedAt),
			instance.Description,
		)
	}
	return table.format()
}

func formatPath(path *workflow.Path) string {
	var node string
	if path.Node != nil {
		node = path.Node.Name
	}

	var instanceId string
	if path.Instance != nil {
		instanceId = path.Instance.Id
	}

	table := newTable("ID", "INSTANCE", "ACTIVE", "NODE")
	table.addRow(path.Id, instanceId, strconv.FormatBool(path.Active), node)
	return table.format()
}
