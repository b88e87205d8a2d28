package cmd

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hackernews/auth"
	"hackernews/config"
	"hackernews/graphql"
	"hackernews/server"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GraphQL HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := Cfg.Validate(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, Cfg)
	},
}

func serve(ctx context.Context, conf *config.GlobalConfig) error {
	a, err := newApp(ctx, conf)
	if err != nil {
		return err
	}
	defer a.Close()

	metrics := server.NewMetrics()
	schema, err := graphql.NewGraphQLSchema(&graphql.Resolver{
		Store:    a.store,
		Votes:    a.votes,
		Events:   a.events,
		Issuer:   auth.NewIssuer(conf.Auth.Secret, conf.Auth.TokenTTL),
		Observer: metrics,
	})
	if err != nil {
		return err
	}
	router := server.NewRouter(schema, auth.NewDecoder(conf.Auth.Secret), metrics, conf.Server)

	if conf.Server.PprofAddr != "" {
		go func() {
			log.Infof("pprof is running on %s", conf.Server.PprofAddr)
			if err := http.ListenAndServe(conf.Server.PprofAddr, nil); err != nil {
				log.WithError(err).Warn("pprof stopped")
			}
		}()
	}

	// 配置文件变化时只热更新日志级别，其余配置需要重启
	loader.Watch(func(c *config.GlobalConfig) {
		if err := config.SetLogLevel(c.Log.Level); err != nil {
			log.WithError(err).Warn("ignore log.level change")
		}
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", conf.Server.Port),
		Handler: router,
	}
	return server.Serve(ctx, srv)
}

func init() {
	RootCmd.AddCommand(ServeCmd)
}
