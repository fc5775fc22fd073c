package main

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newSnapshotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "立即把Redis中的每日数据写入归档数据库",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Backup == nil {
				return errors.New("归档未启用 (archive.enabled=false)")
			}
			if err := app.Backup.Migrate(); err != nil {
				return err
			}
			if err := app.Backup.Snapshot(cmd.Context()); err != nil {
				return err
			}
			log.Info().Msg("快照完成")
			return nil
		},
	}
}
