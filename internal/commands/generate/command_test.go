package generate_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/youta-t/flarc"

	"github.com/mlbundle/mlbundle/internal/bundle"
	"github.com/mlbundle/mlbundle/internal/commands/generate"
	"github.com/mlbundle/mlbundle/internal/commands/internal/commandline"
	"github.com/mlbundle/mlbundle/internal/config/profiles"
	"github.com/mlbundle/mlbundle/internal/utils/try"
)

func TestGenerateCommand(t *testing.T) {
	type When struct {
		flags generate.Flag

		materializeReturns []string
		materializeErr     error
	}
	type Then struct {
		err              error
		materializeCalls int
		request          bundle.Request
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			calls := 0
			var gotReq bundle.Request
			materialize := func(
				l *log.Logger,
				req bundle.Request,
				files []bundle.File,
				opts ...bundle.Option,
			) ([]string, error) {
				calls += 1
				gotReq = req
				return when.materializeReturns, when.materializeErr
			}

			stdout := new(bytes.Buffer)
			cl := commandline.MockCommandline[generate.Flag]{
				Fullname_: "mlbundle",
				Stdout_:   stdout,
				Stderr_:   new(bytes.Buffer),
				Flags_:    when.flags,
			}

			actual := generate.Task(materialize)(
				context.Background(), cl, []any{},
			)

			if !errors.Is(actual, then.err) {
				t.Errorf(
					"returned error unmatch. (actual, expected) = (%+v, %+v)",
					actual, then.err,
				)
			}
			if calls != then.materializeCalls {
				t.Errorf(
					"materialize calls unmatch. (actual, expected) = (%d, %d)",
					calls, then.materializeCalls,
				)
			}
			if then.materializeCalls == 0 {
				return
			}
			e := then.request
			if gotReq.ProjectName != e.ProjectName ||
				gotReq.OutputDir != e.OutputDir ||
				gotReq.WorkspaceHost != e.WorkspaceHost ||
				gotReq.ModelType != e.ModelType ||
				gotReq.UseGPU != e.UseGPU ||
				gotReq.SparkVersion != e.SparkVersion ||
				gotReq.NodeType != e.NodeType {
				t.Errorf(
					"request unmatch.\n===actual===\n%+v\n===expected===\n%+v",
					gotReq, e,
				)
			}
		}
	}

	t.Run("when --name is missing, it fails usage and writes nothing", theory(
		When{
			flags: generate.Flag{
				OutputDir:     ".",
				WorkspaceHost: "https://x.cloud.databricks.com",
			},
		},
		Then{err: flarc.ErrUsage, materializeCalls: 0},
	))

	t.Run("when no host is given by flag nor profile, it fails usage", theory(
		When{
			flags: generate.Flag{
				Name:         "demo",
				OutputDir:    ".",
				ProfileStore: filepath.Join(t.TempDir(), "profiles"),
			},
		},
		Then{err: flarc.ErrUsage, materializeCalls: 0},
	))

	t.Run("when --save-profile comes without --profile, it fails usage", theory(
		When{
			flags: generate.Flag{
				Name:          "demo",
				OutputDir:     ".",
				WorkspaceHost: "https://x.cloud.databricks.com",
				SaveProfile:   true,
			},
		},
		Then{err: flarc.ErrUsage, materializeCalls: 0},
	))

	t.Run("when the model type is out of the enumeration, it fails usage", theory(
		When{
			flags: generate.Flag{
				Name:          "demo",
				OutputDir:     ".",
				WorkspaceHost: "https://x.cloud.databricks.com",
				ModelType:     "vision",
			},
		},
		Then{err: flarc.ErrUsage, materializeCalls: 0},
	))

	t.Run("when all flags are given, it materializes the resolved request", theory(
		When{
			flags: generate.Flag{
				Name:          "demo",
				OutputDir:     "/somewhere",
				WorkspaceHost: "https://x.cloud.databricks.com",
				ModelType:     "segmentation",
				UseGPU:        true,
			},
			materializeReturns: []string{"databricks.yml"},
		},
		Then{
			err:              nil,
			materializeCalls: 1,
			request: bundle.Request{
				ProjectName:   "demo",
				OutputDir:     "/somewhere",
				WorkspaceHost: "https://x.cloud.databricks.com",
				ModelType:     bundle.ModelSegmentation,
				UseGPU:        true,
				SparkVersion:  "14.3.x-gpu-ml-scala2.12",
				NodeType:      "g4dn.xlarge",
			},
		},
	))

	t.Run("when --model-type is not given, it falls back to custom", theory(
		When{
			flags: generate.Flag{
				Name:          "demo",
				OutputDir:     "/somewhere",
				WorkspaceHost: "https://x.cloud.databricks.com",
			},
			materializeReturns: []string{"databricks.yml"},
		},
		Then{
			err:              nil,
			materializeCalls: 1,
			request: bundle.Request{
				ProjectName:   "demo",
				OutputDir:     "/somewhere",
				WorkspaceHost: "https://x.cloud.databricks.com",
				ModelType:     bundle.ModelCustom,
				SparkVersion:  "14.3.x-scala2.12",
				NodeType:      "i3.xlarge",
			},
		},
	))
}

func TestGenerateCommand_MaterializerErrorIsNotUsage(t *testing.T) {
	fakeErr := errors.New("fake write error")
	materialize := func(
		l *log.Logger, req bundle.Request, files []bundle.File, opts ...bundle.Option,
	) ([]string, error) {
		return nil, fakeErr
	}

	cl := commandline.MockCommandline[generate.Flag]{
		Fullname_: "mlbundle",
		Stdout_:   new(bytes.Buffer),
		Stderr_:   new(bytes.Buffer),
		Flags_: generate.Flag{
			Name:          "demo",
			OutputDir:     t.TempDir(),
			WorkspaceHost: "https://x.cloud.databricks.com",
		},
	}

	err := generate.Task(materialize)(context.Background(), cl, []any{})
	if !errors.Is(err, fakeErr) {
		t.Errorf("unexpected error: %+v", err)
	}
	if errors.Is(err, flarc.ErrUsage) {
		t.Error("a write failure must not be reported as a usage error")
	}
}

func TestGenerateCommand_Summary(t *testing.T) {
	materialize := func(
		l *log.Logger, req bundle.Request, files []bundle.File, opts ...bundle.Option,
	) ([]string, error) {
		return []string{"databricks.yml", "README.md"}, nil
	}

	stdout := new(bytes.Buffer)
	cl := commandline.MockCommandline[generate.Flag]{
		Fullname_: "mlbundle",
		Stdout_:   stdout,
		Stderr_:   new(bytes.Buffer),
		Flags_: generate.Flag{
			Name:          "demo",
			OutputDir:     "/somewhere",
			WorkspaceHost: "https://x.cloud.databricks.com",
		},
	}

	if err := generate.Task(materialize)(context.Background(), cl, []any{}); err != nil {
		t.Fatal(err)
	}

	out := stdout.String()
	for _, expected := range []string{
		filepath.Join("/somewhere", "demo"),
		"databricks.yml",
		"README.md",
		"databricks bundle validate --target dev",
		"pip install -r requirements.txt",
	} {
		if !strings.Contains(out, expected) {
			t.Errorf("stdout does not mention %q:\n%s", expected, out)
		}
	}
}

func TestGenerateCommand_Version(t *testing.T) {
	materialize := func(
		l *log.Logger, req bundle.Request, files []bundle.File, opts ...bundle.Option,
	) ([]string, error) {
		t.Fatal("--version must not generate anything")
		return nil, nil
	}

	stdout := new(bytes.Buffer)
	cl := commandline.MockCommandline[generate.Flag]{
		Fullname_: "mlbundle",
		Stdout_:   stdout,
		Stderr_:   new(bytes.Buffer),
		Flags_:    generate.Flag{Version: true},
	}

	if err := generate.Task(materialize)(context.Background(), cl, []any{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), "mlbundle") {
		t.Errorf("version line unmatch: %s", stdout.String())
	}
}

func TestGenerateCommand_Profiles(t *testing.T) {
	newMaterialize := func(captured *bundle.Request) generate.Materialize {
		return func(
			l *log.Logger, req bundle.Request, files []bundle.File, opts ...bundle.Option,
		) ([]string, error) {
			*captured = req
			return []string{"databricks.yml"}, nil
		}
	}

	t.Run("the workspace host is read from the named profile", func(t *testing.T) {
		storePath := filepath.Join(t.TempDir(), "store", "profiles")
		store := profiles.Store{
			"team": {Host: "https://team.cloud.databricks.com"},
		}
		if err := store.Save(storePath); err != nil {
			t.Fatal(err)
		}

		var req bundle.Request
		cl := commandline.MockCommandline[generate.Flag]{
			Fullname_: "mlbundle",
			Stdout_:   new(bytes.Buffer),
			Stderr_:   new(bytes.Buffer),
			Flags_: generate.Flag{
				Name:         "demo",
				OutputDir:    t.TempDir(),
				Profile:      "team",
				ProfileStore: storePath,
			},
		}

		err := generate.Task(newMaterialize(&req))(context.Background(), cl, []any{})
		if err != nil {
			t.Fatal(err)
		}
		if req.WorkspaceHost != "https://team.cloud.databricks.com" {
			t.Errorf("workspace host unmatch: %s", req.WorkspaceHost)
		}
	})

	t.Run("an unknown profile name fails usage", func(t *testing.T) {
		storePath := filepath.Join(t.TempDir(), "profiles")
		store := profiles.Store{
			"team": {Host: "https://team.cloud.databricks.com"},
		}
		if err := store.Save(storePath); err != nil {
			t.Fatal(err)
		}

		var req bundle.Request
		cl := commandline.MockCommandline[generate.Flag]{
			Fullname_: "mlbundle",
			Stdout_:   new(bytes.Buffer),
			Stderr_:   new(bytes.Buffer),
			Flags_: generate.Flag{
				Name:         "demo",
				OutputDir:    t.TempDir(),
				Profile:      "no-such-team",
				ProfileStore: storePath,
			},
		}

		err := generate.Task(newMaterialize(&req))(context.Background(), cl, []any{})
		if !errors.Is(err, flarc.ErrUsage) {
			t.Errorf("unexpected error: %+v", err)
		}
	})

	t.Run("--save-profile persists the host after generating", func(t *testing.T) {
		storePath := filepath.Join(t.TempDir(), "profiles")

		var req bundle.Request
		cl := commandline.MockCommandline[generate.Flag]{
			Fullname_: "mlbundle",
			Stdout_:   new(bytes.Buffer),
			Stderr_:   new(bytes.Buffer),
			Flags_: generate.Flag{
				Name:          "demo",
				OutputDir:     t.TempDir(),
				WorkspaceHost: "https://x.cloud.databricks.com",
				Profile:       "team",
				ProfileStore:  storePath,
				SaveProfile:   true,
			},
		}

		err := generate.Task(newMaterialize(&req))(context.Background(), cl, []any{})
		if err != nil {
			t.Fatal(err)
		}

		store := try.To(profiles.Load(storePath)).OrFatal(t)
		prof, ok := store["team"]
		if !ok {
			t.Fatal("profile 'team' is not saved")
		}
		if prof.Host != "https://x.cloud.databricks.com" {
			t.Errorf("saved host unmatch: %s", prof.Host)
		}
	})
}

func TestGenerateCommand_EnvDefaults(t *testing.T) {
	outputDir := t.TempDir()
	envContent := `
modelType: nlp
sparkVersion:
    gpu: 15.4.x-gpu-ml-scala2.12
nodeType:
    gpu: g5.2xlarge
pipDeps:
    - great-expectations>=0.18.0
`
	envPath := filepath.Join(outputDir, "mlbundle.env")
	if err := os.WriteFile(envPath, []byte(envContent), os.FileMode(0644)); err != nil {
		t.Fatal(err)
	}

	var req bundle.Request
	materialize := func(
		l *log.Logger, r bundle.Request, files []bundle.File, opts ...bundle.Option,
	) ([]string, error) {
		req = r
		return []string{"databricks.yml"}, nil
	}

	cl := commandline.MockCommandline[generate.Flag]{
		Fullname_: "mlbundle",
		Stdout_:   new(bytes.Buffer),
		Stderr_:   new(bytes.Buffer),
		Flags_: generate.Flag{
			Name:          "demo",
			OutputDir:     outputDir,
			WorkspaceHost: "https://x.cloud.databricks.com",
			UseGPU:        true,
		},
	}

	if err := generate.Task(materialize)(context.Background(), cl, []any{}); err != nil {
		t.Fatal(err)
	}

	if req.ModelType != bundle.ModelNLP {
		t.Errorf("model type unmatch: %s", req.ModelType)
	}
	if req.SparkVersion != "15.4.x-gpu-ml-scala2.12" {
		t.Errorf("spark version unmatch: %s", req.SparkVersion)
	}
	if req.NodeType != "g5.2xlarge" {
		t.Errorf("node type unmatch: %s", req.NodeType)
	}
	if len(req.ExtraPipDeps) != 1 || req.ExtraPipDeps[0] != "great-expectations>=0.18.0" {
		t.Errorf("extra pip deps unmatch: %v", req.ExtraPipDeps)
	}
}
