// Package log defines standard attribute keys for training operations.
//
// The keys follow a hierarchical naming convention ("model.name", "data.samples")
// so that log records from the loader, the trainers and the service can be
// filtered together.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the trainer or transform.
	// Examples: "FastTree", "Sdca", "Concatenate"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"

	// RunIDKey identifies one training request end to end.
	RunIDKey = "run.id"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of rows in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the width of the feature vector.
	FeaturesKey = "data.features"

	// PathKey is the dataset or artifact path involved in the operation.
	PathKey = "data.path"

	// SeparatorKey is the field separator used to read a dataset.
	SeparatorKey = "data.separator"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LossKey records the training loss.
	LossKey = "metrics.loss"

	// R2ScoreKey records R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// RMSEKey records root mean squared error.
	RMSEKey = "metrics.rmse"

	// MAEKey records mean absolute error.
	MAEKey = "metrics.mae"

	// IterationKey records the current boosting round or epoch.
	IterationKey = "training.iteration"

	// FoldKey records the cross-validation fold index.
	FoldKey = "training.fold"
)

// Error and Configuration Context
const (
	// ErrorCodeKey provides the response code reported to API callers.
	ErrorCodeKey = "error.code"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit           = "fit"
	OperationPredict       = "predict"
	OperationTransform     = "transform"
	OperationScore         = "score"
	OperationLoad          = "load"
	OperationSave          = "save"
	OperationCrossValidate = "cross_validate"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
