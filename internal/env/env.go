// Package env loads optional per-directory defaults for the generator
// from a "mlbundle.env" YAML file, so that a team can pin its compute
// conventions next to its projects.
package env

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the file Search looks for.
const DefaultFileName = "mlbundle.env"

// BundleEnv are generation defaults. Every field is optional;
// the zero value means "use built-in defaults".
type BundleEnv struct {
	// default model type when --model-type is not given.
	ModelType string `yaml:"modelType"`

	// spark runtime overrides, keyed "cpu" / "gpu".
	SparkVersion map[string]string `yaml:"sparkVersion"`

	// node type overrides, keyed "cpu" / "gpu".
	NodeType map[string]string `yaml:"nodeType"`

	// extra python dependencies appended to requirements.txt.
	PipDeps []string `yaml:"pipDeps"`
}

func New() *BundleEnv {
	return new(BundleEnv)
}

func (e *BundleEnv) SparkVersionFor(gpu bool) string {
	return e.SparkVersion[computeKey(gpu)]
}

func (e *BundleEnv) NodeTypeFor(gpu bool) string {
	return e.NodeType[computeKey(gpu)]
}

func computeKey(gpu bool) string {
	if gpu {
		return "gpu"
	}
	return "cpu"
}

// Load reads a BundleEnv from filepath.
//
// A missing or unreadable file is not an error: defaults are optional.
// A file which exists but does not parse is.
func Load(filepath string) (*BundleEnv, error) {
	env := BundleEnv{}

	content, err := os.ReadFile(filepath)
	if err != nil {
		return &env, nil
	}

	if err := yaml.Unmarshal(content, &env); err != nil {
		return nil, err
	}

	return &env, nil
}

// Search walks up from dir looking for DefaultFileName, and returns the
// path of the first hit. When nothing is found it returns the candidate
// in dir itself (which Load then treats as absent).
func Search(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	for searchpath := dir; ; {
		candidate := filepath.Join(searchpath, DefaultFileName)
		if s, err := os.Stat(candidate); err == nil && s.Mode().IsRegular() {
			return candidate
		}

		next := filepath.Dir(searchpath)
		if next == searchpath {
			break
		}
		searchpath = next
	}

	return filepath.Join(dir, DefaultFileName)
}
