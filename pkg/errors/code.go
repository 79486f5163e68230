package errors

// Response codes reported to API callers. CodeOK is the only success value.
const (
	CodeOK            = 1
	CodeValidation    = 2
	CodeDataLoad      = 3
	CodeConfiguration = 4
	CodeTraining      = 5
	CodePersistence   = 6
	CodeUnknown       = 9
)

// Code maps an error chain to its response code. When a chain carries more than
// one classified error the precedence is validation, data load, configuration,
// training, persistence.
func Code(err error) int {
	if err == nil {
		return CodeOK
	}
	var (
		validation *ValidationError
		load       *DataLoadError
		conf       *ConfigurationError
		training   *TrainingError
		persist    *PersistenceError
	)
	switch {
	case As(err, &validation):
		return CodeValidation
	case As(err, &load):
		return CodeDataLoad
	case As(err, &conf):
		return CodeConfiguration
	case As(err, &training):
		return CodeTraining
	case As(err, &persist):
		return CodePersistence
	default:
		return CodeUnknown
	}
}
