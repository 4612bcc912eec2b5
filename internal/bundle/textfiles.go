package bundle

import (
	"fmt"
	"strings"
)

// base python dependencies every generated project gets, and the pinned
// versions written to requirements-lock.txt.
var basePipDeps = []string{
	"mlflow>=2.9.0",
	"pandas>=2.0.0",
	"numpy>=1.24.0",
	"databricks-sdk>=0.20.0",
}

var lockedPipDeps = map[string][]string{
	"base": {
		"mlflow==2.9.2",
		"pandas==2.1.4",
		"numpy==1.26.3",
		"databricks-sdk==0.20.0",
	},
	string(ModelClassification): {
		"scikit-learn==1.3.2",
		"xgboost==1.7.6",
	},
	string(ModelRegression): {
		"scikit-learn==1.3.2",
		"statsmodels==0.14.1",
	},
	string(ModelSegmentation): {
		"monai==1.3.0",
		"cellpose==3.0.6",
		"segment-anything-py==1.0",
	},
	string(ModelNLP): {
		"transformers==4.36.2",
		"datasets==2.16.1",
		"tokenizers==0.15.0",
	},
	string(ModelCustom): {},
}

func renderRequirements(r Request) ([]byte, error) {
	sb := new(strings.Builder)
	fmt.Fprintf(sb, "# %s dependencies (%s model)\n", r.ProjectName, r.ModelType)
	for _, d := range basePipDeps {
		fmt.Fprintln(sb, d)
	}
	for _, d := range r.ModelType.PipDeps() {
		fmt.Fprintln(sb, d)
	}
	for _, d := range r.ExtraPipDeps {
		fmt.Fprintln(sb, d)
	}
	return []byte(sb.String()), nil
}

func renderRequirementsLock(r Request) ([]byte, error) {
	sb := new(strings.Builder)
	fmt.Fprintf(sb, "# pinned dependencies for %s. regenerate with pip-compile.\n", r.ProjectName)
	for _, d := range lockedPipDeps["base"] {
		fmt.Fprintln(sb, d)
	}
	for _, d := range lockedPipDeps[string(r.ModelType)] {
		fmt.Fprintln(sb, d)
	}
	return []byte(sb.String()), nil
}

var renderReadme = render("README.md", `# {{.ProjectName}}

Databricks ML bundle project, generated by mlbundle.

## Layout

- `+"`databricks.yml`"+`: bundle manifest; targets are in `+"`environments/`"+`.
- `+"`src/ds/`"+`: the python package jobs run ({{.ModelType}} model).
- `+"`notebooks/`"+`: interactive companions of the jobs.
- `+"`jobs/`"+`: one bundle job per pipeline stage.
- `+"`policies/`"+`: cluster, serving and MLflow governance documents.
- `+"`ci/`"+`: pipeline definition for GitHub Actions.

## Getting started

    pip install -r requirements.txt
    databricks bundle validate --target dev
    databricks bundle deploy --target dev

Workspace: {{.WorkspaceHost}}
`)

var renderGitignore = render(".gitignore", `__pycache__/
*.pyc
.venv/
.databricks/
mlruns/
dist/
*.egg-info/
.DS_Store
`)

var renderCI = render("ci/github-actions.yml", `# CI for {{.ProjectName}}: validate the bundle on every push.
name: {{.ProjectName}} CI

on:
  push:
    branches: [main]
  pull_request:

jobs:
  validate:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - uses: actions/setup-python@v5
        with:
          python-version: "3.11"
      - name: install dependencies
        run: pip install -r requirements.txt
      - name: install databricks CLI
        run: curl -fsSL https://raw.githubusercontent.com/databricks/setup-cli/main/install.sh | sh
      - name: validate bundle
        env:
          DATABRICKS_HOST: {{.WorkspaceHost}}
          DATABRICKS_TOKEN: ${{ "{{ secrets.DATABRICKS_TOKEN }}" }}
        run: databricks bundle validate --target dev
`)

var renderGovernance = render("docs/GOVERNANCE.md", `# {{.ProjectName}} governance

Rules this project ships with, enforced by the documents under
`+"`policies/`"+`.

## Compute

Interactive clusters must satisfy
`+"`policies/cluster_policy_restricted.json`"+`: the Spark runtime and
node type are pinned to what the project was generated for, and idle
clusters terminate within two hours.

## Serving

Endpoints follow `+"`policies/serving_policy_serverless.json`"+`.

## Models

Models are tracked under the shared MLflow experiment and registered
as `+"`{{.SnakeName}}`"+` (see `+"`policies/mlflow_policy.json`"+`).
Registered models require a signature.

## Notifications

Job failures notify the list in `+"`policies/email_notifications.json`"+`.
Keep it current.
`)
