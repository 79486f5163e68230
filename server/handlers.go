package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/YuminosukeSato/pricepredict/data"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

// Response is the body of every reply. Code is errors.CodeOK on success.
type Response struct {
	Code        int                    `json:"Code"`
	Message     string                 `json:"Message"`
	Predictions []data.HousePrediction `json:"Predictions,omitempty"`
	Folds       []FoldSummary          `json:"Folds,omitempty"`
}

// FoldSummary reports one cross-validation fold. Undefined metrics are null.
type FoldSummary struct {
	Fold int      `json:"Fold"`
	R2   *float64 `json:"R2"`
	RMSE *float64 `json:"RMSE"`
	MAE  *float64 `json:"MAE"`
	Best bool     `json:"Best,omitempty"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// PredictRequest is the JSON body of the Predict route.
type PredictRequest struct {
	ModelFilename string           `json:"modelFilename"`
	Houses        []data.HouseData `json:"houses"`
}

func fail(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, Response{Code: errors.Code(err), Message: err.Error()})
}

// PredictModelHandler trains a single-pass model on the named dataset.
func PredictModelHandler(svc Trainer) echo.HandlerFunc {
	return func(c echo.Context) error {
		sep, err := data.ParseSeparator(c.FormValue("separator"))
		if err != nil {
			return fail(c, err)
		}
		out, err := svc.TrainModel(c.FormValue("modelFilename"), sep)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, Response{
			Code:    errors.CodeOK,
			Message: fmt.Sprintf("model trained and saved to %s", out),
		})
	}
}

// CrossValidateModelHandler trains with k-fold cross-validation and keeps the best fold.
func CrossValidateModelHandler(svc Trainer) echo.HandlerFunc {
	return func(c echo.Context) error {
		sep, err := data.ParseSeparator(c.FormValue("separator"))
		if err != nil {
			return fail(c, err)
		}
		folds := 0
		if v := c.FormValue("folds"); v != "" {
			if folds, err = strconv.Atoi(v); err != nil {
				return fail(c, errors.NewValidationError("folds", "must be an integer", v))
			}
		}

		out, err := svc.TrainModelCrossValidated(c.FormValue("modelFilename"), sep, folds)
		if err != nil {
			return fail(c, err)
		}
		summary := make([]FoldSummary, len(out.Folds))
		for i, f := range out.Folds {
			summary[i] = FoldSummary{
				Fold: f.Fold,
				R2:   finite(f.R2),
				RMSE: finite(f.RMSE),
				MAE:  finite(f.MAE),
				Best: f.Fold == out.BestFold,
			}
		}
		return c.JSON(http.StatusOK, Response{
			Code: errors.CodeOK,
			Message: fmt.Sprintf("fold %d selected (R² %.4f), model saved to %s and transform to %s",
				out.BestFold, out.BestScore, out.ModelPath, out.TransformPath),
			Folds: summary,
		})
	}
}

// PredictHandler scores houses with a saved model.
func PredictHandler(svc Trainer) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req PredictRequest
		if err := c.Bind(&req); err != nil {
			return fail(c, errors.NewValidationError("body", "cannot decode request", err.Error()))
		}
		preds, err := svc.Predict(req.ModelFilename, req.Houses)
		if err != nil {
			return fail(c, err)
		}
		if preds == nil {
			preds = []data.HousePrediction{}
		}
		return c.JSON(http.StatusOK, Response{
			Code:        errors.CodeOK,
			Message:     fmt.Sprintf("%d predictions from %s", len(preds), req.ModelFilename),
			Predictions: preds,
		})
	}
}
