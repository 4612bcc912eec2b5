package bundle

import "encoding/json"

// policyRule is one entry of a Databricks cluster/serving policy document.
type policyRule struct {
	Type         string   `json:"type"`
	Value        any      `json:"value,omitempty"`
	Values       []string `json:"values,omitempty"`
	MinValue     int      `json:"minValue,omitempty"`
	MaxValue     int      `json:"maxValue,omitempty"`
	DefaultValue any      `json:"defaultValue,omitempty"`
	Hidden       bool     `json:"hidden,omitempty"`
}

func marshalPolicy(doc any) ([]byte, error) {
	buf, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(buf, '\n'), nil
}

// renderClusterPolicy pins interactive clusters of this project to the
// compute the Request resolved (spark runtime, node type) and caps idle
// time. Keys of the map are policy attribute paths; json.MarshalIndent
// sorts them, keeping output deterministic.
func renderClusterPolicy(r Request) ([]byte, error) {
	return marshalPolicy(map[string]policyRule{
		"spark_version": {
			Type: "fixed", Value: r.SparkVersion,
		},
		"node_type_id": {
			Type: "allowlist", Values: []string{r.NodeType}, DefaultValue: r.NodeType,
		},
		"autoscale.max_workers": {
			Type: "range", MinValue: 1, MaxValue: 8, DefaultValue: 4,
		},
		"autotermination_minutes": {
			Type: "range", MinValue: 10, MaxValue: 120, DefaultValue: 60,
		},
		"custom_tags.project": {
			Type: "fixed", Value: r.ProjectName,
		},
		"custom_tags.model_type": {
			Type: "fixed", Value: string(r.ModelType),
		},
	})
}

// renderServingPolicy constrains the model serving endpoint.
// workload_type is the only field the GPU flag changes here.
func renderServingPolicy(r Request) ([]byte, error) {
	return marshalPolicy(map[string]policyRule{
		"workload_type": {
			Type: "fixed", Value: r.ServingWorkloadType(),
		},
		"workload_size": {
			Type: "allowlist", Values: []string{"Small", "Medium"}, DefaultValue: "Small",
		},
		"scale_to_zero_enabled": {
			Type: "fixed", Value: true,
		},
		"custom_tags.project": {
			Type: "fixed", Value: r.ProjectName,
		},
	})
}

type emailNotifications struct {
	OnStart   []string `json:"on_start"`
	OnSuccess []string `json:"on_success"`
	OnFailure []string `json:"on_failure"`
}

func renderEmailNotifications(r Request) ([]byte, error) {
	return marshalPolicy(emailNotifications{
		OnStart:   []string{},
		OnSuccess: []string{},
		OnFailure: []string{r.ProjectName + "-alerts@example.com"},
	})
}

type mlflowPolicy struct {
	ExperimentPath   string   `json:"experiment_path"`
	RegisteredModel  string   `json:"registered_model"`
	AllowedStages    []string `json:"allowed_stages"`
	RequireSignature bool     `json:"require_model_signature"`
}

func renderMlflowPolicy(r Request) ([]byte, error) {
	return marshalPolicy(mlflowPolicy{
		ExperimentPath:   "/Shared/" + r.ProjectName + "/experiments",
		RegisteredModel:  r.SnakeName(),
		AllowedStages:    []string{"None", "Staging", "Production", "Archived"},
		RequireSignature: true,
	})
}
