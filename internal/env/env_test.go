package env_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mlbundle/mlbundle/internal/env"
	"github.com/mlbundle/mlbundle/internal/utils/try"
)

func TestLoad(t *testing.T) {
	t.Run("a missing file yields empty defaults, not an error", func(t *testing.T) {
		e, err := env.Load(filepath.Join(t.TempDir(), "no-such-file"))
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if e.ModelType != "" || len(e.PipDeps) != 0 {
			t.Errorf("defaults are not empty: %+v", e)
		}
		if e.SparkVersionFor(true) != "" || e.NodeTypeFor(false) != "" {
			t.Error("empty defaults yield compute overrides")
		}
	})

	t.Run("a well-formed file is parsed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), env.DefaultFileName)
		content := `
modelType: segmentation
sparkVersion:
    cpu: 15.4.x-scala2.12
    gpu: 15.4.x-gpu-ml-scala2.12
nodeType:
    gpu: g5.2xlarge
pipDeps:
    - great-expectations>=0.18.0
    - evidently
`
		if err := os.WriteFile(path, []byte(content), os.FileMode(0644)); err != nil {
			t.Fatal(err)
		}

		e := try.To(env.Load(path)).OrFatal(t)

		if e.ModelType != "segmentation" {
			t.Errorf("modelType unmatch: %s", e.ModelType)
		}
		if v := e.SparkVersionFor(false); v != "15.4.x-scala2.12" {
			t.Errorf("cpu spark version unmatch: %s", v)
		}
		if v := e.SparkVersionFor(true); v != "15.4.x-gpu-ml-scala2.12" {
			t.Errorf("gpu spark version unmatch: %s", v)
		}
		if v := e.NodeTypeFor(false); v != "" {
			t.Errorf("cpu node type unmatch: %s", v)
		}
		if v := e.NodeTypeFor(true); v != "g5.2xlarge" {
			t.Errorf("gpu node type unmatch: %s", v)
		}
		if len(e.PipDeps) != 2 {
			t.Errorf("pipDeps unmatch: %v", e.PipDeps)
		}
	})

	t.Run("a file which does not parse is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), env.DefaultFileName)
		if err := os.WriteFile(path, []byte("pipDeps: not-a-list\n"), os.FileMode(0644)); err != nil {
			t.Fatal(err)
		}

		if _, err := env.Load(path); err == nil {
			t.Error("a broken file is accepted")
		}
	})
}

func TestSearch(t *testing.T) {
	t.Run("it finds the file in the directory itself", func(t *testing.T) {
		dir := t.TempDir()
		expected := filepath.Join(dir, env.DefaultFileName)
		if err := os.WriteFile(expected, []byte("modelType: nlp\n"), os.FileMode(0644)); err != nil {
			t.Fatal(err)
		}

		if actual := env.Search(dir); actual != expected {
			t.Errorf("found path unmatch. (actual, expected) = (%s, %s)", actual, expected)
		}
	})

	t.Run("it walks up to a parent directory", func(t *testing.T) {
		root := t.TempDir()
		expected := filepath.Join(root, env.DefaultFileName)
		if err := os.WriteFile(expected, []byte("modelType: nlp\n"), os.FileMode(0644)); err != nil {
			t.Fatal(err)
		}

		child := filepath.Join(root, "a", "b")
		if err := os.MkdirAll(child, os.FileMode(0755)); err != nil {
			t.Fatal(err)
		}

		if actual := env.Search(child); actual != expected {
			t.Errorf("found path unmatch. (actual, expected) = (%s, %s)", actual, expected)
		}
	})

	t.Run("without a hit it returns the candidate in the directory", func(t *testing.T) {
		dir := t.TempDir()
		expected := filepath.Join(dir, env.DefaultFileName)
		if actual := env.Search(dir); actual != expected {
			t.Errorf("found path unmatch. (actual, expected) = (%s, %s)", actual, expected)
		}
	})
}
