package cli

import (
	"fmt"

	"github.com/procflow/procflow/workflow"
	"github.com/spf13/cobra"
)

func newTaskCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "task",
		Short:       "Manage and query workflow tasks",
		RunE:        cli.help,
		Annotations: map[string]string{noAdapterRequired: ""},
	}

	c.AddCommand(newTaskCompleteCmd(cli))
	c.AddCommand(newTaskGetCmd(cli))
	c.AddCommand(newTaskPooledCmd(cli))
	c.AddCommand(newTaskQueryCmd(cli))
	c.AddCommand(newTaskUpdateCmd(cli))

	return &c
}

func newTaskGetCmd(cli *Cli) *cobra.Command {
	var id string

	c := cobra.Command{
		Use:   "get",
		Short: "Get a workflow task",
		RunE: func(c *cobra.Command, _ []string) error {
			task, err := cli.a.GetTask(cli.context(), id)
			if err != nil {
				return err
			}
			if task == nil {
				return fmt.Errorf("no such task")
			}

			c.Print(formatTasks(task))
			return nil
		},
	}

	c.Flags().StringVar(&id, "id", "", "Global task ID")

	c.MarkFlagRequired("id")

	return &c
}

func newTaskCompleteCmd(cli *Cli) *cobra.Command {
	var (
		id           string
		transitionId string
	)

	c := cobra.Command{
		Use:   "complete",
		Short: "Complete a workflow task",
		RunE: func(c *cobra.Command, _ []string) error {
			task, err := cli.a.EndTask(cli.context(), id, transitionId)
			if err != nil {
				return err
			}

			c.Print(formatTasks(task))
			return nil
		},
	}

	c.Flags().StringVar(&id, "id", "", "Global task ID")
	c.Flags().StringVar(&transitionId, "transition-id", workflow.DefaultTransitionId, "Transition to take")

	c.MarkFlagRequired("id")

	return &c
}

func newTaskUpdateCmd(cli *Cli) *cobra.Command {
	var (
		id          string
		propertyMap map[string]string
	)

	c := cobra.Command{
		Use:   "update",
		Short: "Update the properties of a workflow task",
		RunE: func(c *cobra.Command, _ []string) error {
			task, err := cli.a.UpdateTask(cli.context(), id, mapProperties(propertyMap), nil, nil)
			if err != nil {
				return err
			}

			c.Print(formatTasks(task))
			return nil
		},
	}

	c.Flags().StringVar(&id, "id", "", "Global task ID")
	c.Flags().StringToStringVar(&propertyMap, "property", nil, "Task property, consisting of namespaced name and value")

	c.MarkFlagRequired("id")
	c.MarkFlagRequired("property")

	return &c
}

func newTaskQueryCmd(cli *Cli) *cobra.Command {
	var (
		active      bool
		state       string
		propertyMap map[string]string

		query workflow.TaskQuery
	)

	c := cobra.Command{
		Use:   "query",
		Short: "Query workflow tasks",
		RunE: func(c *cobra.Command, _ []string) error {
			if c.Flags().Changed("active") {
				query.Active = &active
			}
			query.State = workflow.MapTaskState(state)
			query.TaskProperties = mapProperties(propertyMap)

			tasks, err := cli.a.QueryTasks(cli.context(), query)
			if err != nil {
				return err
			}

			c.Print(formatTasks(tasks...))
			return nil
		},
	}

	c.Flags().StringVar(&query.TaskName, "name", "", "Namespaced task type name")
	c.Flags().StringVar(&state, "state", "", "Task state: IN_PROGRESS or COMPLETED")
	c.Flags().StringVar(&query.Actor, "actor", "", "Assignee, or initiator for start tasks")
	c.Flags().StringVar(&query.ProcessId, "instance-id", "", "Global instance ID")
	c.Flags().StringVar(&query.ProcessName, "definition-name", "", "Definition name")
	c.Flags().BoolVar(&active, "active", false, "Tasks of running instances only, finished only when false is passed explicitly")
	c.Flags().StringToStringVar(&propertyMap, "property", nil, "Task property, consisting of namespaced name and value")

	return &c
}

func newTaskPooledCmd(cli *Cli) *cobra.Command {
	var userId string

	c := cobra.Command{
		Use:   "pooled",
		Short: "Query unassigned tasks a user is a candidate for",
		RunE: func(c *cobra.Command, _ []string) error {
			tasks, err := cli.a.PooledTasks(cli.context(), userId)
			if err != nil {
				return err
			}

			c.Print(formatTasks(tasks...))
			return nil
		},
	}

	c.Flags().StringVar(&userId, "user-id", "", "Candidate user ID")

	c.MarkFlagRequired("user-id")

	return &c
}

func formatTasks(tasks ...*workflow.Task) string {
	table := newTable("ID", "KIND", "NAME", "STATE", "TITLE", "PROPERTIES")
	for _, task := range tasks {
		table.addRow(
			task.Id,
			task.Kind.String(),
			task.Name,
			task.State.String(),
			task.Title,
			formatProperties(task.Properties),
		)
	}
	return table.format()
}
