package cmdutil

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type metricsConfig struct {
	listenAddr string
	textfile   string
}

var metricsCfg = metricsConfig{}

func RegisterMetricsFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&metricsCfg.listenAddr,
		"metrics-listen-addr",
		metricsCfg.listenAddr,
		"Address for the metrics endpoint to listen to. Disabled if empty.",
	)
	cmd.PersistentFlags().StringVar(
		&metricsCfg.textfile,
		"metrics-textfile",
		metricsCfg.textfile,
		"If set, file to write metrics to in the text exposition format once done.",
	)
}

func MetricsServer(logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := fmt.Fprint(w, "OK"); err != nil {
			logger.Err(err).Msgf("error writing to healthz")
		}
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func RunMetricsServer(logger zerolog.Logger) {
	if metricsCfg.listenAddr == "" {
		return
	}
	go func() {
		m := MetricsServer(logger)
		if err := http.ListenAndServe(metricsCfg.listenAddr, m); err != nil {
			logger.Err(err).Msgf("error exposing metrics endpoints")
		}
	}()
}

// WriteMetricsTextfile writes the default registry to --metrics-textfile, if
// set.
func WriteMetricsTextfile(logger zerolog.Logger) error {
	if metricsCfg.textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(metricsCfg.textfile, prometheus.DefaultGatherer); err != nil {
		return errors.Wrapf(err, "error writing metrics to %s", metricsCfg.textfile)
	}
	logger.Debug().Str("path", metricsCfg.textfile).Msgf("wrote metrics")
	return nil
}
