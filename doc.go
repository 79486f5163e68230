// Package pricepredict trains regression models that predict house sale
// prices from tabular property features, and serves them over HTTP.
//
// A dataset is read with a fixed column layout (data.HouseDataSchema), the
// eleven numeric features are concatenated into one feature vector and a
// regression trainer is fitted on it:
//
//	p, err := pipeline.Build(data.NumericFeatures, pipeline.DefaultTrainerConfig(pipeline.FastTree))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	view, err := data.LoadFromTextFile("Data/houses.csv", data.TextLoaderOptions{
//	    Separator: ';', HasHeader: true, AllowQuoting: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m, err := training.NewEnvironment(0, nil).Fit(p, view)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = pipeline.Save(m, view.Schema(), "TrainedData/Trainedhouses.csv")
//
// # Packages
//
//   - data: schema, records, text loader and in-memory frames
//   - pipeline: concatenate transform, trainer stages, model artifacts
//   - training: single-pass and cross-validated training, the service facade
//   - server: HTTP handlers (echo)
//   - config: YAML configuration
//   - report: fold charts (gonum/plot)
//   - sklearn/lightgbm: gradient-boosted regression trees (FastTree)
//   - sklearn/linear_model: SDCA and least-squares linear regression
//   - sklearn/model_selection: k-fold splitting and best-fold selection
//   - metrics: regression metrics
//   - preprocessing: feature standardisation
//   - core/model: estimator interfaces and atomic model persistence
//   - core/parallel: parallel helpers
//   - pkg/errors, pkg/log: error types and structured logging
//
// The command in cmd/pricepredict serves the API and exposes train,
// crossvalidate and predict subcommands.
package pricepredict
