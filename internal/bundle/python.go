package bundle

import (
	"bytes"
	"text/template"
)

// render compiles tpl once and returns a renderer executing it against
// the Request. Templates see the Request itself, so they can use its
// methods ({{.SnakeName}}, {{.ServingWorkloadType}}, ...).
func render(name string, tpl string) func(Request) ([]byte, error) {
	t := template.Must(template.New(name).Parse(tpl))
	return func(r Request) ([]byte, error) {
		buf := bytes.NewBuffer(nil)
		if err := t.Execute(buf, r); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

var renderPackageInit = render("src/ds/__init__.py", `"""{{.ProjectName}} data science package."""

__version__ = "0.1.0"
`)

var renderUtilsInit = render("src/ds/utils/__init__.py", `"""Shared helpers for {{.ProjectName}} jobs."""
`)

var renderPreprocess = render("src/ds/preprocess.py", `"""Materialize training data for {{.ProjectName}}.

Run as a job task:
    python preprocess.py --env <target>
"""
import argparse

from ds.utils.io import read_raw_table, write_feature_table


def run(env: str) -> None:
    raw = read_raw_table(env)
    # TODO: project-specific feature engineering goes here.
    write_feature_table(raw, env)


if __name__ == "__main__":
    parser = argparse.ArgumentParser()
    parser.add_argument("--env", default="dev")
    args = parser.parse_args()
    run(args.env)
`)

var renderRegister = render("src/ds/register.py", `"""Register the latest {{.ProjectName}} training run into the model registry."""
import argparse

import mlflow

from ds.utils.mlflow_utils import latest_run_id

MODEL_NAME = "{{.SnakeName}}"


def run(env: str) -> None:
    run_id = latest_run_id(env)
    result = mlflow.register_model(f"runs:/{run_id}/model", MODEL_NAME)
    print(f"registered {MODEL_NAME} version {result.version}")


if __name__ == "__main__":
    parser = argparse.ArgumentParser()
    parser.add_argument("--env", default="dev")
    args = parser.parse_args()
    run(args.env)
`)

var renderIOUtils = render("src/ds/utils/io.py", `"""Table I/O for {{.ProjectName}}.

Also the entrypoint of the batch inference job.
"""
import argparse

FEATURE_TABLE = "{{.SnakeName}}_features"
PREDICTION_TABLE = "{{.SnakeName}}_predictions"


def read_raw_table(env: str):
    from pyspark.sql import SparkSession

    spark = SparkSession.builder.getOrCreate()
    return spark.read.table(f"{env}.{{.SnakeName}}_raw")


def write_feature_table(df, env: str) -> None:
    df.write.mode("overwrite").saveAsTable(f"{env}.{FEATURE_TABLE}")


def batch_inference(env: str) -> None:
    import mlflow.pyfunc
    from pyspark.sql import SparkSession

    spark = SparkSession.builder.getOrCreate()
    model = mlflow.pyfunc.load_model(f"models:/{{.SnakeName}}/latest")
    features = spark.read.table(f"{env}.{FEATURE_TABLE}").toPandas()
    features["prediction"] = model.predict(features)
    spark.createDataFrame(features).write.mode("overwrite").saveAsTable(
        f"{env}.{PREDICTION_TABLE}"
    )


if __name__ == "__main__":
    parser = argparse.ArgumentParser()
    parser.add_argument("--env", default="dev")
    args = parser.parse_args()
    batch_inference(args.env)
`)

var renderMlflowUtils = render("src/ds/utils/mlflow_utils.py", `"""MLflow helpers for {{.ProjectName}}."""
import mlflow

EXPERIMENT_PATH = "/Shared/{{.ProjectName}}/experiments"


def set_experiment() -> None:
    mlflow.set_experiment(EXPERIMENT_PATH)


def latest_run_id(env: str) -> str:
    experiment = mlflow.get_experiment_by_name(EXPERIMENT_PATH)
    runs = mlflow.search_runs(
        [experiment.experiment_id],
        filter_string=f"tags.env = '{env}'",
        order_by=["start_time DESC"],
        max_results=1,
    )
    if runs.empty:
        raise RuntimeError(f"no runs found for env {env}")
    return runs.iloc[0].run_id
`)

// training stub, one variant per model type.
var trainTemplates = map[ModelType]func(Request) ([]byte, error){
	ModelClassification: render("src/ds/train.py#classification", `"""Train the {{.ProjectName}} classification model."""
import argparse

import mlflow
import mlflow.sklearn
from sklearn.model_selection import train_test_split
from xgboost import XGBClassifier

from ds.utils.io import FEATURE_TABLE
from ds.utils.mlflow_utils import set_experiment


def run(env: str) -> None:
    set_experiment()
    with mlflow.start_run(tags={"env": env}):
        # TODO: load FEATURE_TABLE and split into features / label.
        model = XGBClassifier(n_estimators=100)
        # model.fit(X_train, y_train)
        mlflow.sklearn.log_model(model, "model")


if __name__ == "__main__":
    parser = argparse.ArgumentParser()
    parser.add_argument("--env", default="dev")
    args = parser.parse_args()
    run(args.env)
`),
	ModelRegression: render("src/ds/train.py#regression", `"""Train the {{.ProjectName}} regression model."""
import argparse

import mlflow
import mlflow.statsmodels
import statsmodels.api as sm

from ds.utils.io import FEATURE_TABLE
from ds.utils.mlflow_utils import set_experiment


def run(env: str) -> None:
    set_experiment()
    with mlflow.start_run(tags={"env": env}):
        # TODO: load FEATURE_TABLE and fit an OLS / GLM model.
        # model = sm.OLS(y, X).fit()
        # mlflow.statsmodels.log_model(model, "model")
        pass


if __name__ == "__main__":
    parser = argparse.ArgumentParser()
    parser.add_argument("--env", default="dev")
    args = parser.parse_args()
    run(args.env)
`),
	ModelSegmentation: render("src/ds/train.py#segmentation", `"""Train the {{.ProjectName}} segmentation model."""
import argparse

import mlflow
import torch
from monai.networks.nets import UNet

from ds.utils.mlflow_utils import set_experiment


def run(env: str) -> None:
    set_experiment()
    device = "cuda" if torch.cuda.is_available() else "cpu"
    with mlflow.start_run(tags={"env": env}):
        model = UNet(
            spatial_dims=2,
            in_channels=1,
            out_channels=1,
            channels=(16, 32, 64, 128),
            strides=(2, 2, 2),
        ).to(device)
        # TODO: training loop over the segmentation dataset.
        mlflow.pytorch.log_model(model, "model")


if __name__ == "__main__":
    parser = argparse.ArgumentParser()
    parser.add_argument("--env", default="dev")
    args = parser.parse_args()
    run(args.env)
`),
	ModelNLP: render("src/ds/train.py#nlp", `"""Fine-tune the {{.ProjectName}} NLP model."""
import argparse

import mlflow
from transformers import AutoModelForSequenceClassification, AutoTokenizer, Trainer

from ds.utils.mlflow_utils import set_experiment

BASE_MODEL = "distilbert-base-uncased"


def run(env: str) -> None:
    set_experiment()
    with mlflow.start_run(tags={"env": env}):
        tokenizer = AutoTokenizer.from_pretrained(BASE_MODEL)
        model = AutoModelForSequenceClassification.from_pretrained(BASE_MODEL)
        # TODO: build a Trainer over the tokenized dataset and train.
        mlflow.transformers.log_model(
            {"model": model, "tokenizer": tokenizer}, "model"
        )


if __name__ == "__main__":
    parser = argparse.ArgumentParser()
    parser.add_argument("--env", default="dev")
    args = parser.parse_args()
    run(args.env)
`),
	ModelCustom: render("src/ds/train.py#custom", `"""Train the {{.ProjectName}} model."""
import argparse

import mlflow

from ds.utils.mlflow_utils import set_experiment


class Model(mlflow.pyfunc.PythonModel):
    def predict(self, context, model_input):
        # TODO: replace with the real model.
        return model_input


def run(env: str) -> None:
    set_experiment()
    with mlflow.start_run(tags={"env": env}):
        mlflow.pyfunc.log_model("model", python_model=Model())


if __name__ == "__main__":
    parser = argparse.ArgumentParser()
    parser.add_argument("--env", default="dev")
    args = parser.parse_args()
    run(args.env)
`),
}

func renderTrain(r Request) ([]byte, error) {
	return trainTemplates[r.ModelType](r)
}

// serving deployment stub; the endpoint shape differs per model type,
// the workload type follows the GPU flag.
var servingTemplates = map[ModelType]func(Request) ([]byte, error){
	ModelClassification: render("src/ds/deploy_serving.py#classification", `"""Create or update the {{.ProjectName}} serving endpoint.

Serves the registered classifier behind a REST endpoint returning
class probabilities.
"""
from databricks.sdk import WorkspaceClient

ENDPOINT = "{{.SnakeName}}"
WORKLOAD_TYPE = "{{.ServingWorkloadType}}"

served_model = {
    "model_name": "{{.SnakeName}}",
    "model_version": "latest",
    "workload_type": WORKLOAD_TYPE,
    "workload_size": "Small",
    "scale_to_zero_enabled": True,
}

if __name__ == "__main__":
    client = WorkspaceClient()
    # TODO: client.serving_endpoints.create_and_wait(...)
    print(f"deploying {ENDPOINT} ({WORKLOAD_TYPE})")
`),
	ModelRegression: render("src/ds/deploy_serving.py#regression", `"""Create or update the {{.ProjectName}} serving endpoint.

Serves the registered regressor; responses are point estimates.
"""
from databricks.sdk import WorkspaceClient

ENDPOINT = "{{.SnakeName}}"
WORKLOAD_TYPE = "{{.ServingWorkloadType}}"

served_model = {
    "model_name": "{{.SnakeName}}",
    "model_version": "latest",
    "workload_type": WORKLOAD_TYPE,
    "workload_size": "Small",
    "scale_to_zero_enabled": True,
}

if __name__ == "__main__":
    client = WorkspaceClient()
    # TODO: client.serving_endpoints.create_and_wait(...)
    print(f"deploying {ENDPOINT} ({WORKLOAD_TYPE})")
`),
	ModelSegmentation: render("src/ds/deploy_serving.py#segmentation", `"""Create or update the {{.ProjectName}} serving endpoint.

Serves the segmentation model; requests carry base64 images, responses
carry run-length encoded masks. Large payloads: keep batch size small.
"""
from databricks.sdk import WorkspaceClient

ENDPOINT = "{{.SnakeName}}"
WORKLOAD_TYPE = "{{.ServingWorkloadType}}"

served_model = {
    "model_name": "{{.SnakeName}}",
    "model_version": "latest",
    "workload_type": WORKLOAD_TYPE,
    "workload_size": "Small",
    "scale_to_zero_enabled": False,
}

if __name__ == "__main__":
    client = WorkspaceClient()
    # TODO: client.serving_endpoints.create_and_wait(...)
    print(f"deploying {ENDPOINT} ({WORKLOAD_TYPE})")
`),
	ModelNLP: render("src/ds/deploy_serving.py#nlp", `"""Create or update the {{.ProjectName}} serving endpoint.

Serves the fine-tuned language model; requests carry text, responses
carry labels with scores.
"""
from databricks.sdk import WorkspaceClient

ENDPOINT = "{{.SnakeName}}"
WORKLOAD_TYPE = "{{.ServingWorkloadType}}"

served_model = {
    "model_name": "{{.SnakeName}}",
    "model_version": "latest",
    "workload_type": WORKLOAD_TYPE,
    "workload_size": "Small",
    "scale_to_zero_enabled": False,
}

if __name__ == "__main__":
    client = WorkspaceClient()
    # TODO: client.serving_endpoints.create_and_wait(...)
    print(f"deploying {ENDPOINT} ({WORKLOAD_TYPE})")
`),
	ModelCustom: render("src/ds/deploy_serving.py#custom", `"""Create or update the {{.ProjectName}} serving endpoint."""
from databricks.sdk import WorkspaceClient

ENDPOINT = "{{.SnakeName}}"
WORKLOAD_TYPE = "{{.ServingWorkloadType}}"

served_model = {
    "model_name": "{{.SnakeName}}",
    "model_version": "latest",
    "workload_type": WORKLOAD_TYPE,
    "workload_size": "Small",
    "scale_to_zero_enabled": True,
}

if __name__ == "__main__":
    client = WorkspaceClient()
    # TODO: client.serving_endpoints.create_and_wait(...)
    print(f"deploying {ENDPOINT} ({WORKLOAD_TYPE})")
`),
}

func renderDeployServing(r Request) ([]byte, error) {
	return servingTemplates[r.ModelType](r)
}

var renderNotebookPreprocess = render("notebooks/01_preprocess.py", `# Databricks notebook source
# MAGIC %md
# MAGIC # {{.ProjectName}}: preprocess
# MAGIC Interactive companion of jobs/job_preprocess.yml.

# COMMAND ----------

from ds.preprocess import run

run("dev")
`)

var renderNotebookTrain = render("notebooks/02_train.py", `# Databricks notebook source
# MAGIC %md
# MAGIC # {{.ProjectName}}: train
# MAGIC Interactive companion of jobs/job_train.yml.

# COMMAND ----------

from ds.train import run

run("dev")
`)

var renderNotebookRegister = render("notebooks/03_register_and_validate.py", `# Databricks notebook source
# MAGIC %md
# MAGIC # {{.ProjectName}}: register and validate
# MAGIC Registers the latest run and sanity-checks the registered model.

# COMMAND ----------

from ds.register import run

run("dev")

# COMMAND ----------

import mlflow.pyfunc

model = mlflow.pyfunc.load_model("models:/{{.SnakeName}}/latest")
print(model.metadata)
`)
