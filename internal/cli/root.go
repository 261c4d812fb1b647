// Package cli kpictl 运维命令行
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/zoutigo/smc-kpi/internal/config"
	"github.com/zoutigo/smc-kpi/internal/platform"
	"go.uber.org/zap"
)

// app 根命令初始化后各子命令共用的依赖
type app struct {
	cfg *config.Config
	log *zap.Logger
	out io.Writer
}

// NewRootCmd 构建命令树，结果写入 out
func NewRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "kpictl",
		Short: "kpictl - KPI rollup engine operator tool",
		Long: "kpictl computes KPI dashboards straight from the database and\n" +
			"manages the shared dashboard cache.",
		SilenceUsage:      true,
		PersistentPreRunE: a.initialize,
	}
	root.SetOut(out)

	root.AddCommand(newReportCmd(a))
	root.AddCommand(newCacheCmd(a))
	root.AddCommand(newVersionCmd(a))
	return root
}

// Execute 执行 kpictl
func Execute(version string) {
	buildVersion = version
	if err := NewRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

var buildVersion = "dev"

// initialize 加载 .env、配置与日志
func (a *app) initialize(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	log, err := platform.InitLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	a.log = log
	return nil
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kpictl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "kpictl %s\n", buildVersion)
		},
	}
}

// getContext 命令上下文，缺省为 Background
func getContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
