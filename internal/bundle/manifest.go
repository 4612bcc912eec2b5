package bundle

import (
	"fmt"

	y "github.com/mlbundle/mlbundle/internal/utils/yamler"
)

// renderBundleManifest builds databricks.yml, the bundle root manifest.
//
// Per-environment targets live in environments/*.yml and are pulled in
// via "include", so this file is the same for every target.
func renderBundleManifest(r Request) ([]byte, error) {
	doc := y.Map(
		y.Entry(
			y.Text("bundle", y.WithHeadComment(
				fmt.Sprintf(`%s
Databricks asset bundle manifest. Generated by mlbundle.

Deploy with:
  databricks bundle validate --target dev
  databricks bundle deploy --target dev
`, r.ProjectName),
			)),
			y.Map(
				y.Entry(y.Text("name"), y.QText(r.ProjectName)),
			),
		),
		y.Entry(
			y.Text("include", y.WithHeadComment(`
include:
  Deployment targets (dev / stg / prod) are kept in their own files.
`)),
			y.Seq(
				y.QText("environments/*.yml"),
				y.QText("jobs/*.yml"),
			),
		),
		y.Entry(
			y.Text("variables", y.WithHeadComment(`
variables:
  Shared settings referenced from job and target definitions.
`)),
			y.Map(
				y.Entry(
					y.Text("model_type"),
					y.Map(
						y.Entry(y.Text("description"), y.Text("kind of ML model this project trains")),
						y.Entry(y.Text("default"), y.QText(string(r.ModelType))),
					),
				),
				y.Entry(
					y.Text("experiment_path"),
					y.Map(
						y.Entry(y.Text("description"), y.Text("MLflow experiment used by training jobs")),
						y.Entry(y.Text("default"), y.QText("/Shared/"+r.ProjectName+"/experiments")),
					),
				),
			),
		),
		y.Entry(
			y.Text("workspace", y.WithHeadComment(`
workspace:
  Default workspace. Targets override host and root_path per environment.
`)),
			y.Map(
				y.Entry(y.Text("host"), y.QText(r.WorkspaceHost)),
			),
		),
	)

	return y.Marshal(doc)
}

// renderTarget builds environments/<env>.yml: one deployment target with
// its workspace paths and the compute defaults jobs inherit.
func renderTarget(r Request, env string) ([]byte, error) {
	mode := "production"
	targetEntries := []y.MapEntry{}
	if env == "dev" {
		mode = "development"
		targetEntries = append(targetEntries,
			y.Entry(y.Text("default"), y.Bool(true)),
		)
	}

	targetEntries = append(targetEntries,
		y.Entry(y.Text("mode"), y.Text(mode)),
		y.Entry(
			y.Text("workspace"),
			y.Map(
				y.Entry(y.Text("host"), y.QText(r.WorkspaceHost)),
				y.Entry(y.Text("root_path"), y.QText(
					fmt.Sprintf("/Workspace/deployments/%s/%s", r.ProjectName, env),
				)),
			),
		),
		y.Entry(
			y.Text("variables", y.WithHeadComment(`
variables:
  Compute defaults for this target. Job clusters reference these.
`)),
			y.Map(
				y.Entry(y.Text("spark_version"), y.QText(r.SparkVersion)),
				y.Entry(y.Text("node_type_id"), y.QText(r.NodeType)),
				y.Entry(y.Text("min_workers"), y.Number(1)),
				y.Entry(y.Text("max_workers"), y.Number(4)),
			),
		),
	)

	doc := y.Map(
		y.Entry(
			y.Text("targets", y.WithHeadComment(fmt.Sprintf(
				`Deployment target "%s" of %s.`, env, r.ProjectName,
			))),
			y.Map(
				y.Entry(y.Text(env), y.Map(targetEntries...)),
			),
		),
	)

	return y.Marshal(doc)
}
