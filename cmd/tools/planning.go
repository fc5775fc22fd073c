package main

import (
	"fmt"
	"os"

	"github.com/SlpAus/daily-guess-backend/internal/platform/calendar"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newImportPlanningCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import-planning <planning.json>",
		Short: "把旧的 日期 -> base64(名称) 排期写入Redis，已有日期不会被覆盖",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planning, err := readPlanning(args[0])
			if err != nil {
				return err
			}

			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			imported, err := app.Targets.ImportPlanning(cmd.Context(), planning)
			if err != nil {
				return err
			}
			log.Info().Int("total", len(planning)).Int("imported", imported).Msg("排期导入完成")
			return nil
		},
	}
}

func newVerifyPlanningCommand() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "verify-planning",
		Short: "打印某一天在Redis中解析出的目标实体",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			day := app.Clock.Today()
			if date != "" {
				if day, err = calendar.Parse(date); err != nil {
					return err
				}
			}

			ref, found, err := app.Targets.Lookup(cmd.Context(), day)
			if err != nil {
				return err
			}
			if !found {
				fmt.Printf("%s: 没有目标\n", day)
				return nil
			}
			entity, ok := app.Targets.ResolveEntity(ref)
			if !ok {
				fmt.Printf("%s: 引用 %s 无法解析\n", day, ref)
				return nil
			}
			fmt.Printf("%s: %s (id %d)\n", day, entity.Name, entity.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "要核对的日期 (YYYY-MM-DD)，默认今天")
	return cmd
}

// readPlanning 读取 {"2025-12-10": "QXVyw6lsaWVu", ...} 格式的排期文件
func readPlanning(path string) (map[calendar.DayID]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取排期文件: %w", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("排期文件格式错误: %w", err)
	}
	planning := make(map[calendar.DayID]string, len(raw))
	for date, ref := range raw {
		day, err := calendar.Parse(date)
		if err != nil {
			return nil, err
		}
		planning[day] = ref
	}
	return planning, nil
}
