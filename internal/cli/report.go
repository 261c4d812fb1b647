package cli

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/zoutigo/smc-kpi/internal/config"
	"github.com/zoutigo/smc-kpi/internal/kpi/entity"
	"github.com/zoutigo/smc-kpi/internal/kpi/repository"
	"github.com/zoutigo/smc-kpi/internal/kpi/service"
	"github.com/zoutigo/smc-kpi/internal/platform"
	"gorm.io/gorm"
)

var validStatuses = []string{entity.StatusActive, entity.StatusInactive, entity.StatusDraft, entity.StatusAll}

type filterFlags struct {
	plant  string
	flow   string
	status string
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.plant, "plant", "", "Restrict to one plant ID")
	cmd.Flags().StringVar(&f.flow, "flow", "", "Restrict to one flow ID")
	cmd.Flags().StringVar(&f.status, "status", "", "Asset status: ACTIVE, INACTIVE, DRAFT or ALL (default ACTIVE)")
}

func (f *filterFlags) filters() (repository.Filters, error) {
	if f.status != "" && !slices.Contains(validStatuses, f.status) {
		return repository.Filters{}, fmt.Errorf("invalid --status %q: want one of %v", f.status, validStatuses)
	}
	return repository.Filters{PlantID: f.plant, FlowID: f.flow, Status: f.status}, nil
}

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute a dashboard and print it as JSON",
	}
	cmd.AddCommand(newReportGlobalCmd(a))
	cmd.AddCommand(newReportCategoryCmd(a))
	cmd.AddCommand(newReportAllCmd(a))
	return cmd
}

func newReportGlobalCmd(a *app) *cobra.Command {
	var flags filterFlags
	cmd := &cobra.Command{
		Use:   "global",
		Short: "Storage dashboard across all plants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := flags.filters()
			if err != nil {
				return err
			}
			_, svc, err := a.dashboard()
			if err != nil {
				return err
			}
			payload, err := svc.Global(getContext(cmd), f)
			if err != nil {
				return err
			}
			return a.printJSON(payload)
		},
	}
	flags.bind(cmd)
	return cmd
}

func newReportCategoryCmd(a *app) *cobra.Command {
	var flags filterFlags
	cmd := &cobra.Command{
		Use:   "category <slug>",
		Short: "Packaging dashboard for one category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := flags.filters()
			if err != nil {
				return err
			}
			_, svc, err := a.dashboard()
			if err != nil {
				return err
			}
			payload, err := svc.Category(getContext(cmd), args[0], f)
			if err != nil {
				return err
			}
			return a.printJSON(payload)
		},
	}
	flags.bind(cmd)
	return cmd
}

func newReportAllCmd(a *app) *cobra.Command {
	var (
		flags  filterFlags
		family string
	)
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Dashboards of every category of a family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := flags.filters()
			if err != nil {
				return err
			}
			db, svc, err := a.dashboard()
			if err != nil {
				return err
			}
			ctx := getContext(cmd)

			slugs, err := repository.NewCategoryRepository(db).ListSlugs(ctx, family)
			if err != nil {
				return fmt.Errorf("list %s categories: %w", family, err)
			}
			payloads := make([]*service.CategoryPayload, 0, len(slugs))
			for _, slug := range slugs {
				payload, err := svc.Category(ctx, slug, f)
				if err != nil {
					return fmt.Errorf("category %s: %w", slug, err)
				}
				payloads = append(payloads, payload)
			}
			return a.printJSON(payloads)
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&family, "family", "packaging", "Category family to report on")
	return cmd
}

// dashboard 打开数据库并使用进程内缓存构建看板服务；一次性报表不读共享缓存
func (a *app) dashboard() (*gorm.DB, *service.DashboardService, error) {
	db, err := platform.InitDatabase(a.cfg.Database, false)
	if err != nil {
		return nil, nil, err
	}
	kpi := a.cfg.KPI
	kpi.CacheBackend = config.CacheBackendMemory
	caches, err := platform.NewCaches(kpi, nil, a.log)
	if err != nil {
		return nil, nil, err
	}
	return db, platform.NewDashboardService(a.cfg.KPI, db, caches, a.log), nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
