// Package bundle renders Databricks ML bundle project trees.
//
// A Request fully determines the output: rendering the fixed catalog
// (see Catalog) against the same Request always produces the same tree.
package bundle

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

var ErrInvalidRequest = errors.New("invalid generation request")
var ErrUnknownModelType = errors.New("unknown model type")

// ModelType selects which template variants populate model-specific files.
type ModelType string

const (
	ModelClassification ModelType = "classification"
	ModelRegression     ModelType = "regression"
	ModelSegmentation   ModelType = "segmentation"
	ModelNLP            ModelType = "nlp"
	ModelCustom         ModelType = "custom"
)

// ModelTypes lists all known model types, in a fixed order.
func ModelTypes() []ModelType {
	return []ModelType{
		ModelClassification,
		ModelRegression,
		ModelSegmentation,
		ModelNLP,
		ModelCustom,
	}
}

// ParseModelType converts a flag value into a ModelType.
//
// # Return
//
// ErrUnknownModelType listing the valid choices when s is not one of them.
func ParseModelType(s string) (ModelType, error) {
	names := []string{}
	for _, m := range ModelTypes() {
		if s == string(m) {
			return m, nil
		}
		names = append(names, string(m))
	}
	return "", fmt.Errorf(
		"%w: %s (choose one of: %s)",
		ErrUnknownModelType, s, strings.Join(names, ", "),
	)
}

// PipDeps are the model-type specific python dependencies put into
// requirements.txt of the generated project.
func (m ModelType) PipDeps() []string {
	switch m {
	case ModelSegmentation:
		return []string{"monai>=1.3.0", "cellpose==3.0.6", "segment-anything-py"}
	case ModelNLP:
		return []string{"transformers>=4.20.0", "datasets>=2.0.0", "tokenizers>=0.13.0"}
	case ModelClassification:
		return []string{"scikit-learn>=1.3.2", "xgboost>=1.7.0"}
	case ModelRegression:
		return []string{"scikit-learn>=1.3.2", "statsmodels>=0.14.0"}
	}
	return nil
}

const (
	sparkVersionCPU = "14.3.x-scala2.12"
	sparkVersionGPU = "14.3.x-gpu-ml-scala2.12"
	nodeTypeCPU     = "i3.xlarge"
	nodeTypeGPU     = "g4dn.xlarge"
)

// Request is the immutable configuration of one generation run.
type Request struct {
	// name of the project; also the root directory name.
	ProjectName string

	// directory where the project root is created.
	OutputDir string

	// Databricks workspace URL, substituted into target files.
	WorkspaceHost string

	ModelType ModelType

	UseGPU bool

	// resolved compute fields.
	//
	// Empty values are filled by WithDefaults from UseGPU;
	// a defaults file (see internal/env) may pre-fill them.
	SparkVersion string
	NodeType     string

	// extra python dependencies appended to requirements.txt.
	ExtraPipDeps []string
}

// WithDefaults fills unset fields and returns the completed Request.
func (r Request) WithDefaults() Request {
	if r.OutputDir == "" {
		r.OutputDir = "."
	}
	if r.ModelType == "" {
		r.ModelType = ModelCustom
	}
	if r.SparkVersion == "" {
		r.SparkVersion = sparkVersionCPU
		if r.UseGPU {
			r.SparkVersion = sparkVersionGPU
		}
	}
	if r.NodeType == "" {
		r.NodeType = nodeTypeCPU
		if r.UseGPU {
			r.NodeType = nodeTypeGPU
		}
	}
	return r
}

// Verify the Request.
//
// # Return
//
// nil if it is valid. Otherwise, ErrInvalidRequest (or ErrUnknownModelType)
// naming what is wrong.
func (r Request) Verify() error {
	if r.ProjectName == "" {
		return fmt.Errorf("%w: project name is required", ErrInvalidRequest)
	}
	if r.WorkspaceHost == "" {
		return fmt.Errorf("%w: workspace host is required", ErrInvalidRequest)
	}
	if !verifyURL(r.WorkspaceHost) {
		return fmt.Errorf(
			"%w: workspace host is not a URL: %s",
			ErrInvalidRequest, r.WorkspaceHost,
		)
	}
	if _, err := ParseModelType(string(r.ModelType)); err != nil {
		return err
	}
	return nil
}

func verifyURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}

// Dest is the root path of the generated tree: OutputDir/ProjectName.
func (r Request) Dest() string {
	return filepath.Join(r.OutputDir, r.ProjectName)
}

// SnakeName is ProjectName with "-" replaced by "_",
// usable as a python identifier.
func (r Request) SnakeName() string {
	return strings.ReplaceAll(r.ProjectName, "-", "_")
}

// ServingWorkloadType is the serving endpoint compute class.
func (r Request) ServingWorkloadType() string {
	if r.UseGPU {
		return "GPU_SMALL"
	}
	return "CPU"
}

// GPUPipDeps are the python dependencies installed on GPU clusters.
//
// They are attached to job cluster specs, not to requirements.txt,
// so that the GPU flag only changes compute configuration.
func (r Request) GPUPipDeps() []string {
	if !r.UseGPU {
		return nil
	}
	return []string{"torch>=2.0.0", "torchvision>=0.15.0"}
}
