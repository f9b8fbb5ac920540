package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/marcmoiagese/ArbreGedcom/core"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	var metricsAddr string
	var once bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consumeix la cua d'importacions fins a rebre SIGINT o SIGTERM",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			worker := app.NewImportWorker()
			if once {
				_, err := worker.RunOnce(ctx)
				return err
			}

			if metricsAddr == "" {
				metricsAddr = app.Settings.MetricsAddr
			}
			if metricsAddr != "" {
				srv := newMetricsServer(metricsAddr)
				go func() {
					core.Infof("mètriques a http://%s/metrics", metricsAddr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						core.Errorf("servidor de mètriques aturat: %v", err)
					}
				}()
				defer func() {
					shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
					defer done()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}
			return worker.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "adreça per exposar /metrics (per defecte METRICS_ADDR)")
	cmd.Flags().BoolVar(&once, "once", false, "processa un lot i surt")
	return cmd
}

func newMetricsServer(addr string) *http.Server {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
