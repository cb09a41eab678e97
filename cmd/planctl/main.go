// planctl 排班引擎命令行工具
// 离线生成与校验排班，不依赖服务端

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vperreard/mathildanesth/pkg/logger"
)

var (
	// Version 通过 ldflags 注入
	Version = "dev"

	logLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "planctl",
		Short: "麻醉科排班引擎命令行工具",
		Long:  "planctl 在本地执行排班生成与校验，人员与排班数据通过JSON文件传入。",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logger.Config{Level: logLevel, Format: "console"})
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "日志级别 (debug/info/warn/error)")

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "打印版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("planctl v%s\n", Version)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
