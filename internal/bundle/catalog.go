package bundle

import (
	"path"

	"github.com/mlbundle/mlbundle/internal/utils/slices"
)

// File is one entry of the template catalog: the relative path it is
// written to, and how its content derives from a Request.
type File struct {
	Path   string
	Render func(Request) ([]byte, error)
}

// Environments are the deployment targets every generated project gets.
var Environments = []string{"dev", "stg", "prod"}

// Catalog is the fixed template catalog.
//
// The file set and its order never depend on the Request, so the
// generated tree is deterministic and enumerable up front.
func Catalog() []File {
	targets := slices.Map(Environments, func(e string) File {
		return File{
			Path: path.Join("environments", e+".yml"),
			Render: func(r Request) ([]byte, error) {
				return renderTarget(r, e)
			},
		}
	})

	jobs := slices.Map(jobSpecs, func(j jobSpec) File {
		return File{
			Path: path.Join("jobs", "job_"+j.key+".yml"),
			Render: func(r Request) ([]byte, error) {
				return renderJob(r, j)
			},
		}
	})

	return slices.Concat(
		[]File{{Path: "databricks.yml", Render: renderBundleManifest}},
		targets,
		[]File{
			{Path: "requirements.txt", Render: renderRequirements},
			{Path: "requirements-lock.txt", Render: renderRequirementsLock},
			{Path: "README.md", Render: renderReadme},
			{Path: ".gitignore", Render: renderGitignore},
			{Path: "src/ds/__init__.py", Render: renderPackageInit},
			{Path: "src/ds/preprocess.py", Render: renderPreprocess},
			{Path: "src/ds/train.py", Render: renderTrain},
			{Path: "src/ds/register.py", Render: renderRegister},
			{Path: "src/ds/deploy_serving.py", Render: renderDeployServing},
			{Path: "src/ds/utils/__init__.py", Render: renderUtilsInit},
			{Path: "src/ds/utils/io.py", Render: renderIOUtils},
			{Path: "src/ds/utils/mlflow_utils.py", Render: renderMlflowUtils},
			{Path: "notebooks/01_preprocess.py", Render: renderNotebookPreprocess},
			{Path: "notebooks/02_train.py", Render: renderNotebookTrain},
			{Path: "notebooks/03_register_and_validate.py", Render: renderNotebookRegister},
		},
		jobs,
		[]File{
			{Path: "policies/cluster_policy_restricted.json", Render: renderClusterPolicy},
			{Path: "policies/serving_policy_serverless.json", Render: renderServingPolicy},
			{Path: "policies/email_notifications.json", Render: renderEmailNotifications},
			{Path: "policies/mlflow_policy.json", Render: renderMlflowPolicy},
			{Path: "ci/github-actions.yml", Render: renderCI},
			{Path: "docs/GOVERNANCE.md", Render: renderGovernance},
		},
	)
}
