// Package server exposes the training service over HTTP.
package server

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gommonlog "github.com/labstack/gommon/log"

	"github.com/YuminosukeSato/pricepredict/data"
	"github.com/YuminosukeSato/pricepredict/pkg/log"
	"github.com/YuminosukeSato/pricepredict/training"
)

// APIRoot prefixes every route.
const APIRoot = "/api/priceprediction"

// Trainer is the part of training.Service the handlers use.
type Trainer interface {
	TrainModel(filename string, separator rune) (string, error)
	TrainModelCrossValidated(filename string, separator rune, folds int) (*training.CrossValidationOutput, error)
	Predict(modelFilename string, records []data.HouseData) ([]data.HousePrediction, error)
}

// New returns an echo server with the price prediction routes registered.
func New(svc Trainer, logLevel string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	SetLevel(e, logLevel)

	e.Use(middleware.Recover())
	e.Use(accessLog(log.GetLoggerWithName("server")))

	g := e.Group(APIRoot)
	g.POST("/PredictModel", PredictModelHandler(svc))
	g.POST("/CrossValidateModel", CrossValidateModelHandler(svc))
	g.POST("/Predict", PredictHandler(svc))
	return e
}

// SetLevel sets echo's own logger. Unknown levels fall back to warn.
func SetLevel(e *echo.Echo, logLevel string) {
	switch strings.ToLower(logLevel) {
	case "debug":
		e.Logger.SetLevel(gommonlog.DEBUG)
	case "info":
		e.Logger.SetLevel(gommonlog.INFO)
	case "warn", "":
		e.Logger.SetLevel(gommonlog.WARN)
	case "error":
		e.Logger.SetLevel(gommonlog.ERROR)
	case "off":
		e.Logger.SetLevel(gommonlog.OFF)
	default:
		e.Logger.SetLevel(gommonlog.WARN)
		e.Logger.Warnf("unknown log level %q, falling back to warn", logLevel)
	}
}

func accessLog(logger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			begin := time.Now()
			err := next(c)
			logger.Info("Request served",
				"http.method", c.Request().Method,
				"http.path", c.Request().URL.Path,
				"http.status", c.Response().Status,
				log.DurationMsKey, time.Since(begin).Milliseconds())
			return err
		}
	}
}
