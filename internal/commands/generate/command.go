// Package generate implements the one and only command of mlbundle:
// scaffold a Databricks ML bundle project.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/youta-t/flarc"

	"github.com/mlbundle/mlbundle/internal/buildtime"
	"github.com/mlbundle/mlbundle/internal/bundle"
	"github.com/mlbundle/mlbundle/internal/config/profiles"
	"github.com/mlbundle/mlbundle/internal/env"
)

type Flag struct {
	Name          string `flag:"name" alias:"n" metavar:"PROJECT_NAME" help:"Name of the ML project (e.g. vista-2d-segmentation). Required."`
	OutputDir     string `flag:"output-dir" alias:"o" metavar:"DIR" help:"Directory the project is created in."`
	WorkspaceHost string `flag:"workspace-host" alias:"w" metavar:"URL" help:"Databricks workspace URL (e.g. https://your-workspace.cloud.databricks.com). Required, unless --profile provides it."`
	ModelType     string `flag:"model-type" alias:"m" metavar:"TYPE" help:"Type of ML model: classification, regression, segmentation, nlp or custom (default: custom)."`
	UseGPU        bool   `flag:"use-gpu" help:"Configure clusters for GPU-based training."`
	Profile       string `flag:"profile" metavar:"NAME" help:"Workspace profile to read the workspace host from."`
	ProfileStore  string `flag:"profile-store" metavar:"PATH" help:"Path to the workspace profile store."`
	SaveProfile   bool   `flag:"save-profile" help:"After generating, save --workspace-host into the profile store under --profile."`
	Env           string `flag:"env" metavar:"PATH" help:"Path to a mlbundle.env defaults file (default: searched upward from --output-dir)."`
	Quiet         bool   `flag:"quiet" alias:"q" help:"Do not show the progress bar."`
	Version       bool   `flag:"version" help:"Show version and exit."`
}

// Materialize is the writing backend of the command,
// swappable for tests.
type Materialize func(
	l *log.Logger,
	req bundle.Request,
	files []bundle.File,
	opts ...bundle.Option,
) ([]string, error)

type Option struct {
	materialize Materialize
}

func WithMaterializer(m Materialize) func(*Option) *Option {
	return func(o *Option) *Option {
		o.materialize = m
		return o
	}
}

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	option := &Option{
		materialize: func(
			l *log.Logger,
			req bundle.Request,
			files []bundle.File,
			opts ...bundle.Option,
		) ([]string, error) {
			return bundle.New(opts...).Materialize(l, req, files)
		},
	}
	for _, opt := range options {
		option = opt(option)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return flarc.NewCommand(
		"Generate a Databricks ML platform project with governance and best practices.",
		Flag{
			OutputDir:    ".",
			ProfileStore: filepath.Join(home, ".mlbundle", "profiles"),
		},
		flarc.Args{},
		Task(option.materialize),
		flarc.WithDescription(`
Generate a new Databricks ML bundle project:

	{{ .Command }} -n my-project -w https://my-workspace.cloud.databricks.com

The project tree is written to --output-dir/--name. {{ .Command }} refuses
to write into a directory which already exists and is not empty; it never
overwrites. Partial output of a failed run is left on disk.

The workspace host can come from a named profile instead of --workspace-host:

	{{ .Command }} -n my-project --profile my-workspace

Store a profile while generating with --save-profile. A team can also keep
defaults (model type, compute overrides, extra pip dependencies) in a
"mlbundle.env" file; the nearest one above --output-dir is used.

After generating:

	cd my-project
	pip install -r requirements.txt
	databricks bundle validate --target dev
	databricks bundle deploy --target dev
`),
	)
}

func Task(materialize Materialize) flarc.Task[Flag] {
	return func(ctx context.Context, cl flarc.Commandline[Flag], params []any) error {
		logger := log.New(cl.Stderr(), "", log.LstdFlags)
		logger.SetPrefix(fmt.Sprintf("[%s] ", cl.Fullname()))

		flags := cl.Flags()

		if flags.Version {
			fmt.Fprintln(cl.Stdout(), buildtime.VersionString())
			return nil
		}

		if flags.Name == "" {
			return fmt.Errorf("%w: --name is required", flarc.ErrUsage)
		}
		if flags.SaveProfile && flags.Profile == "" {
			return fmt.Errorf("%w: --save-profile needs --profile", flarc.ErrUsage)
		}

		host := flags.WorkspaceHost
		if host == "" && flags.Profile != "" {
			store, err := profiles.Load(flags.ProfileStore)
			if err != nil {
				if errors.Is(err, profiles.ErrStoreNotFound) {
					return fmt.Errorf(
						"%w: profile store is not found (%s); pass --workspace-host",
						flarc.ErrUsage, flags.ProfileStore,
					)
				}
				return fmt.Errorf("failed to load profile store (%s): %w", flags.ProfileStore, err)
			}
			prof, ok := store[flags.Profile]
			if !ok {
				return fmt.Errorf(
					"%w: profile '%s' is not in the profile store (%s)",
					flarc.ErrUsage, flags.Profile, flags.ProfileStore,
				)
			}
			host = prof.Host
		}
		if host == "" {
			return fmt.Errorf("%w: --workspace-host is required", flarc.ErrUsage)
		}

		envPath := flags.Env
		if envPath == "" {
			envPath = env.Search(flags.OutputDir)
		}
		defaults, err := env.Load(envPath)
		if err != nil {
			return fmt.Errorf("failed to load defaults file (%s): %w", envPath, err)
		}

		modelType := flags.ModelType
		if modelType == "" {
			modelType = defaults.ModelType
		}
		if modelType == "" {
			modelType = string(bundle.ModelCustom)
		}
		mt, err := bundle.ParseModelType(modelType)
		if err != nil {
			return fmt.Errorf("%w: %w", flarc.ErrUsage, err)
		}

		req := bundle.Request{
			ProjectName:   flags.Name,
			OutputDir:     flags.OutputDir,
			WorkspaceHost: host,
			ModelType:     mt,
			UseGPU:        flags.UseGPU,
			SparkVersion:  defaults.SparkVersionFor(flags.UseGPU),
			NodeType:      defaults.NodeTypeFor(flags.UseGPU),
			ExtraPipDeps:  defaults.PipDeps,
		}.WithDefaults()

		if err := req.Verify(); err != nil {
			return fmt.Errorf("%w: %w", flarc.ErrUsage, err)
		}

		written, err := materialize(
			logger, req, bundle.Catalog(),
			bundle.WithProgressOut(cl.Stderr()),
			bundle.WithQuiet(flags.Quiet),
		)
		if err != nil {
			return err
		}

		if flags.SaveProfile {
			if err := saveProfile(flags.ProfileStore, flags.Profile, host); err != nil {
				return fmt.Errorf("project is generated, but saving profile failed: %w", err)
			}
			logger.Printf("profile %s is saved to %s", flags.Profile, flags.ProfileStore)
		}

		out := cl.Stdout()
		fmt.Fprintf(out, "created %s (%d files):\n", req.Dest(), len(written))
		for _, w := range written {
			fmt.Fprintf(out, "  %s\n", w)
		}
		fmt.Fprintf(out, `
next steps:
  1. cd %s
  2. pip install -r requirements.txt
  3. databricks bundle validate --target dev
  4. databricks bundle deploy --target dev
`, req.Dest())

		return nil
	}
}

func saveProfile(storePath string, name string, host string) error {
	store, err := profiles.Load(storePath)
	if errors.Is(err, profiles.ErrStoreNotFound) {
		store = profiles.Store{}
	} else if err != nil {
		return err
	}

	prof := &profiles.WorkspaceProfile{Host: host}
	if err := prof.Verify(); err != nil {
		return err
	}

	store[name] = prof
	return store.Save(storePath)
}
