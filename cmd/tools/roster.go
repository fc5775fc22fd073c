package main

import (
	"fmt"
	"os"

	"github.com/SlpAus/daily-guess-backend/internal/catalog"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newImportRosterCommand() *cobra.Command {
	var selector, output string
	cmd := &cobra.Command{
		Use:   "import-roster <roster.html>",
		Short: "从HTML名单表格生成目录JSON文件",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("无法打开名单文件: %w", err)
			}
			defer f.Close()

			entities, err := catalog.ParseRoster(f, selector, catalog.DefaultSchema)
			if err != nil {
				return err
			}
			// 先用目录自身的校验规则检查一遍，避免生成无法加载的文件
			if _, err := catalog.New(catalog.DefaultSchema, entities); err != nil {
				return err
			}

			data, err := json.MarshalIndent(entities, "", "  ")
			if err != nil {
				return fmt.Errorf("无法序列化目录: %w", err)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("无法写入 %s: %w", output, err)
			}
			log.Info().Int("entities", len(entities)).Str("output", output).Msg("目录文件已生成")
			return nil
		},
	}
	cmd.Flags().StringVar(&selector, "selector", "table", "名单表格的CSS选择器")
	cmd.Flags().StringVarP(&output, "output", "o", "./data/champions.json", "输出文件路径")
	return cmd
}
