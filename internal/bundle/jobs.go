package bundle

import (
	"fmt"

	"github.com/mlbundle/mlbundle/internal/utils/slices"
	y "github.com/mlbundle/mlbundle/internal/utils/yamler"
	"gopkg.in/yaml.v3"
)

type jobSpec struct {
	key      string
	synopsis string
	script   string

	// jobs running model code get the GPU libraries on their clusters
	// when the Request asks for GPU compute.
	modelLibs bool
}

// jobSpecs is the pipeline: preprocess -> train -> register -> serve,
// plus scheduled batch inference.
var jobSpecs = []jobSpec{
	{
		key:      "preprocess",
		synopsis: "materialize training data from the raw tables",
		script:   "../src/ds/preprocess.py",
	},
	{
		key:       "train",
		synopsis:  "train the model and log it to MLflow",
		script:    "../src/ds/train.py",
		modelLibs: true,
	},
	{
		key:      "register",
		synopsis: "register the trained model into the model registry",
		script:   "../src/ds/register.py",
	},
	{
		key:      "deploy_serving",
		synopsis: "create or update the serving endpoint",
		script:   "../src/ds/deploy_serving.py",
	},
	{
		key:       "batch_inference",
		synopsis:  "score a table with the latest registered model",
		script:    "../src/ds/utils/io.py",
		modelLibs: true,
	},
}

// renderJob builds jobs/job_<key>.yml: one bundle job resource with a
// single task on a fresh job cluster sized by the target's variables.
func renderJob(r Request, spec jobSpec) ([]byte, error) {
	taskEntries := []y.MapEntry{
		y.Entry(y.Text("task_key"), y.Text(spec.key)),
		y.Entry(
			y.Text("spark_python_task"),
			y.Map(
				y.Entry(y.Text("python_file"), y.QText(spec.script)),
				y.Entry(y.Text("parameters"), y.CompactSeq(
					y.QText("--env"), y.QText("${bundle.target}"),
				)),
			),
		),
		y.Entry(
			y.Text("new_cluster", y.WithHeadComment(`
new_cluster:
  Ephemeral job cluster. spark_version and node_type_id come from the
  per-environment target files.
`)),
			y.Map(
				y.Entry(y.Text("spark_version"), y.QText(r.SparkVersion)),
				y.Entry(y.Text("node_type_id"), y.QText(r.NodeType)),
				y.Entry(
					y.Text("autoscale"),
					y.Map(
						y.Entry(y.Text("min_workers"), y.Text("${var.min_workers}")),
						y.Entry(y.Text("max_workers"), y.Text("${var.max_workers}")),
					),
				),
				y.Entry(
					y.Text("custom_tags"),
					y.Map(
						y.Entry(y.Text("project"), y.QText(r.ProjectName)),
						y.Entry(y.Text("job"), y.QText(spec.key)),
					),
				),
			),
		),
	}

	libs := []*yaml.Node{
		y.Map(y.Entry(y.Text("requirements"), y.QText("../requirements.txt"))),
	}
	if spec.modelLibs {
		libs = append(libs, slices.Map(r.GPUPipDeps(), func(l string) *yaml.Node {
			return y.Map(y.Entry(y.Text("pypi"), y.Map(
				y.Entry(y.Text("package"), y.QText(l)),
			)))
		})...)
	}
	taskEntries = append(taskEntries, y.Entry(
		y.Text("libraries"),
		y.Seq(libs...),
	))

	jobEntries := []y.MapEntry{
		y.Entry(y.Text("name"), y.QText(fmt.Sprintf("%s-%s", r.ProjectName, spec.key))),
		y.Entry(y.Text("tasks"), y.Seq(y.Map(taskEntries...))),
		y.Entry(
			y.Text("email_notifications"),
			y.Map(
				y.Entry(y.Text("on_failure"), y.Seq(
					y.QText(r.ProjectName+"-alerts@example.com"),
				)),
			),
		),
	}

	doc := y.Map(
		y.Entry(
			y.Text("resources", y.WithHeadComment(fmt.Sprintf(
				"job_%s: %s.", spec.key, spec.synopsis,
			))),
			y.Map(
				y.Entry(
					y.Text("jobs"),
					y.Map(
						y.Entry(
							y.Text(fmt.Sprintf("%s_%s", r.SnakeName(), spec.key)),
							y.Map(jobEntries...),
						),
					),
				),
			),
		),
	)

	return y.Marshal(doc)
}
