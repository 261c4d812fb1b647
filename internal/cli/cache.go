package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zoutigo/smc-kpi/internal/config"
	"github.com/zoutigo/smc-kpi/internal/kpi/cache"
	"github.com/zoutigo/smc-kpi/internal/platform"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the shared dashboard cache",
	}
	cmd.AddCommand(newCacheFlushCmd(a))
	return cmd
}

func newCacheFlushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "flush [scope]",
		Short: "Drop cached dashboards for a scope, or everything",
		Long: "Drop cached dashboards from the redis cache.\n\n" +
			"scope is \"global\" or \"category:<slug>\"; every filter variant of the\n" +
			"scope is dropped. Without a scope the whole cache is flushed.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := ""
			if len(args) == 1 {
				scope = args[0]
			}
			if err := validateScope(scope); err != nil {
				return err
			}
			if a.cfg.KPI.CacheBackend != config.CacheBackendRedis {
				return fmt.Errorf("cache flush needs kpi.cache_backend=redis, got %q", a.cfg.KPI.CacheBackend)
			}

			rdb := platform.InitRedis(a.cfg.Redis)
			defer rdb.Close()

			caches, err := platform.NewCaches(a.cfg.KPI, rdb, a.log)
			if err != nil {
				return err
			}
			if err := caches.Invalidate(getContext(cmd), scope); err != nil {
				return err
			}

			if scope == "" {
				scope = "all scopes"
			}
			fmt.Fprintf(a.out, "flushed %s\n", scope)
			return nil
		},
	}
}

func validateScope(scope string) error {
	switch {
	case scope == "", scope == cache.GlobalScope:
		return nil
	case strings.HasPrefix(scope, "category:") && len(scope) > len("category:") && !strings.Contains(scope, cache.KeySeparator):
		return nil
	}
	return fmt.Errorf("invalid scope %q: want \"global\" or \"category:<slug>\"", scope)
}
