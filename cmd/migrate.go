package cmd

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hackernews/config"
	"hackernews/db"
)

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if Cfg.DbConfig.Driver == config.DriverMemory {
			return errors.New("memory driver has nothing to migrate")
		}
		gdb, err := db.Open(Cfg.DbConfig)
		if err != nil {
			return err
		}
		defer db.Close(gdb)
		if err := db.Migrate(gdb); err != nil {
			return err
		}
		log.Infof("%s database migrated", Cfg.DbConfig.Driver)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(MigrateCmd)
}
