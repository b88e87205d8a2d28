// Package cmd 命令行入口：serve migrate token watch
package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hackernews/config"
)

var (
	cfgFile string
	loader  *config.Loader
	// Cfg 在任意子命令执行前加载
	Cfg *config.GlobalConfig
)

var RootCmd = &cobra.Command{
	Use:          "hackernews",
	Short:        "Hackernews clone GraphQL API",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loader = config.NewLoader(cfgFile)
		conf, err := loader.Load()
		if err != nil {
			return err
		}
		if err := config.SetupLogger(conf.Log); err != nil {
			return err
		}
		Cfg = conf
		return nil
	},
}

// Execute 执行根命令，失败时退出进程
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: config.yml in . ./config ../config)")
}
