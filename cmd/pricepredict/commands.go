package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/pricepredict/data"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/pkg/filewatch"
	"github.com/YuminosukeSato/pricepredict/pkg/log"
	"github.com/YuminosukeSato/pricepredict/server"
)

const shutdownTimeout = 15 * time.Second

func (c *CLI) newServeCommand() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the training API over HTTP",
		Args:  cobra.NoArgs,
		Example: `  pricepredict serve --config pricepredict.yaml
  pricepredict serve --address :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				c.conf.Server.Address = address
			}
			logger := log.GetLoggerWithName("serve")
			e := server.New(c.service(), c.conf.Server.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// a changed configuration file stops the server so a supervisor restarts it
			if c.configPath != "" {
				wctx, cancel, err := filewatch.UntilModified(ctx, c.configPath)
				if err != nil {
					return err
				}
				defer cancel()
				ctx = wctx
			}

			go func() {
				<-ctx.Done()
				logger.Info("Shutting down", "cause", context.Cause(ctx).Error())
				graceful, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := e.Shutdown(graceful); err != nil {
					logger.Error("Shutdown failed", err)
				}
			}()

			logger.Info("Listening",
				"http.address", c.conf.Server.Address,
				log.PathKey, c.conf.Storage.DataRoot)
			if err := e.Start(c.conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			if errors.Is(context.Cause(ctx), filewatch.ErrModified) {
				return context.Cause(ctx)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Listen address; overrides the configuration")
	return cmd
}

func (c *CLI) newTrainCommand() *cobra.Command {
	var separator string

	cmd := &cobra.Command{
		Use:     "train <dataset>",
		Short:   "Train a model on a dataset under the data root",
		Args:    cobra.ExactArgs(1),
		Example: `  pricepredict train houses.csv --separator ';'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sep, err := data.ParseSeparator(separator)
			if err != nil {
				return err
			}
			out, err := c.service().TrainModel(args[0], sep)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&separator, "separator", "s", ",", "Field separator of the dataset")
	return cmd
}

func (c *CLI) newCrossValidateCommand() *cobra.Command {
	var separator string
	var folds int

	cmd := &cobra.Command{
		Use:     "crossvalidate <dataset>",
		Short:   "Train with k-fold cross-validation and keep the best fold's model",
		Args:    cobra.ExactArgs(1),
		Example: `  pricepredict crossvalidate houses.csv --separator ';' --folds 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sep, err := data.ParseSeparator(separator)
			if err != nil {
				return err
			}
			out, err := c.service().TrainModelCrossValidated(args[0], sep, folds)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVarP(&separator, "separator", "s", ",", "Field separator of the dataset")
	cmd.Flags().IntVarP(&folds, "folds", "k", 0, "Number of folds; 0 uses the configuration")
	return cmd
}

func (c *CLI) newPredictCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict <model> <houses.json>",
		Short: "Predict prices for houses read from a JSON array ('-' reads stdin)",
		Args:  cobra.ExactArgs(2),
		Example: `  pricepredict predict Trainedhouses.csv houses.json
  echo '[{"sqft_living":1800,"grade":7}]' | pricepredict predict Trainedhouses.csv -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in []byte
			var err error
			if args[1] == "-" {
				in, err = io.ReadAll(cmd.InOrStdin())
			} else {
				in, err = os.ReadFile(args[1])
			}
			if err != nil {
				return errors.NewDataLoadError(args[1], "cannot read", err)
			}
			var houses []data.HouseData
			if err := json.Unmarshal(in, &houses); err != nil {
				return errors.NewValidationError("houses", "must be a JSON array of houses", err.Error())
			}
			preds, err := c.service().Predict(args[0], houses)
			if err != nil {
				return err
			}
			return printJSON(cmd, preds)
		},
	}
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
