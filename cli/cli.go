package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/procflow/procflow/adapter"
	"github.com/procflow/procflow/auth"
	"github.com/procflow/procflow/engine"
	"github.com/procflow/procflow/engine/mem"
	"github.com/procflow/procflow/repo"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	envLookupAllowed  = "envLookupAllowed"  // flag level annotation that allows an environment variable lookup
	noAdapterRequired = "noAdapterRequired" // annotation, indicating that no adapter is required to run the command
	envPrefix         = "PROCFLOW_"
	program           = "procflow"
)

func New(version string) *Cli {
	cli := Cli{version: version}

	cli.rootCmd = newRootCmd(&cli)

	return &cli
}

type Cli struct {
	version string

	rootCmd *cobra.Command

	e engine.Engine
	a *adapter.Adapter

	debugEnabled bool
	userId       string
}

func (c *Cli) Execute() int {
	if err := c.rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func (c *Cli) context() context.Context {
	return auth.WithUser(context.Background(), c.userId)
}

func (c *Cli) help(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

func newRootCmd(cli *Cli) *cobra.Command {
	var (
		engineId       string
		multiTenant    bool
		repoConfigFile string
	)

	c := cobra.Command{
		Use:   program,
		Short: "A workflow CLI over an embedded process engine",
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			c.SilenceUsage = true

			if _, ok := c.Annotations[noAdapterRequired]; ok {
				return nil
			}

			if cli.a != nil {
				return nil // skip engine creation when testing
			}

			c.Flags().VisitAll(func(f *pflag.Flag) {
				if f.Changed {
					return
				}
				if _, ok := f.Annotations[envLookupAllowed]; !ok {
					return
				}

				// e.g. repo-config -> PROCFLOW_REPO_CONFIG
				key := envPrefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")

				if value, ok := os.LookupEnv(key); ok {
					f.Value.Set(value)
				}
			})

			config, err := loadRepoConfig(repoConfigFile)
			if err != nil {
				return err
			}

			logger := zerolog.Nop()
			if cli.debugEnabled {
				logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
			}

			people := repo.NewPeople(config.People...)

			// the handler needs the engine, which exists only after mem.New -
			// the indirection resolves it at execution time
			var handler engine.JobHandler

			e, err := mem.New(func(o *mem.Options) {
				o.Common.EngineId = engineId
				o.Common.JobHandler = func(ctx context.Context, job engine.Job) error {
					return handler(ctx, job)
				}
				o.Common.Logger = logger
			})
			if err != nil {
				return fmt.Errorf("failed to create engine: %v", err)
			}

			handler = adapter.NewJobHandler(e, people, nil, logger)

			a, aErr := adapter.New(e, adapter.Services{
				Authorities: people,
				Dictionary:  repo.NewDictionary(config.Types...),
				Messages:    repo.NewMessages(config.Messages),
				Nodes:       repo.NewNodes(config.CompanyHome),
				People:      people,
				Tenants:     repo.NewTenants(config.TenantsEnabled),
			}, func(o *adapter.Options) {
				o.EngineId = engineId
				o.MultiTenantDeployment = multiTenant
				o.Logger = logger
			})
			if aErr != nil {
				e.Shutdown()
				return fmt.Errorf("failed to create adapter: %v", aErr)
			}

			cli.e = e
			cli.a = a
			return nil
		},
		RunE: cli.help,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cli.e != nil {
				cli.e.Shutdown()
			}
		},
		Annotations: map[string]string{noAdapterRequired: ""},
	}

	c.PersistentFlags().StringVar(&engineId, "engine-id", engine.DefaultEngineId, "ID of the embedded engine, used as global ID prefix")
	c.PersistentFlags().StringVar(&cli.userId, "user", auth.SystemUserId, "User ID the command runs as")
	c.PersistentFlags().StringVar(&repoConfigFile, "repo-config", "", "Path to a JSON file with repository data (types, people, messages)")
	c.PersistentFlags().BoolVar(&multiTenant, "multi-tenant", false, "Qualify definition keys per tenant domain")
	c.PersistentFlags().BoolVar(&cli.debugEnabled, "debug", false, "Log engine and adapter internals")

	c.PersistentFlags().SetAnnotation("engine-id", envLookupAllowed, nil)
	c.PersistentFlags().SetAnnotation("user", envLookupAllowed, nil)
	c.PersistentFlags().SetAnnotation("repo-config", envLookupAllowed, nil)
	c.PersistentFlags().SetAnnotation("multi-tenant", envLookupAllowed, nil)
	c.PersistentFlags().SetAnnotation("debug", envLookupAllowed, nil)

	c.AddCommand(newDefinitionCmd(cli))
	c.AddCommand(newInstanceCmd(cli))
	c.AddCommand(newTaskCmd(cli))
	c.AddCommand(newRunJobsCmd(cli))
	c.AddCommand(newVersionCmd(cli))

	return &c
}

func newRunJobsCmd(cli *Cli) *cobra.Command {
	var cmd engine.ExecuteJobsCmd

	c := cobra.Command{
		Use:   "run-jobs",
		Short: "Execute due jobs",
		RunE: func(c *cobra.Command, _ []string) error {
			completedJobs, failedJobs, err := cli.e.ExecuteJobs(cli.context(), cmd)
			if err != nil {
				return err
			}

			table := newTable("ID", "PROCESS INSTANCE ID", "ACTIVITY ID", "DUE AT", "ERROR")
			for _, job := range completedJobs {
				table.addRow(job.Id, job.ProcessInstanceId, job.ActivityId, formatTime(job.DueAt), job.Error)
			}
			for _, job := range failedJobs {
				table.addRow(job.Id, job.ProcessInstanceId, job.ActivityId, formatTime(job.DueAt), job.Error)
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().StringVar(&cmd.ProcessInstanceId, "process-instance-id", "", "Native process instance ID")
	c.Flags().IntVar(&cmd.Limit, "limit", 10, "Maximum number of jobs to execute")

	return &c
}

func newVersionCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(c *cobra.Command, _ []string) {
			c.Println(cli.version)
		},
		Annotations: map[string]string{noAdapterRequired: ""},
	}

	return &c
}
