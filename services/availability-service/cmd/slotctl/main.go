// Command slotctl computes booking lengths and weekly availability for a
// store from the command line.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/tenantbook/reservations/libs/config"
	"github.com/tenantbook/reservations/libs/runtime"
	"github.com/tenantbook/reservations/services/availability-service/internal/availability"
	"github.com/tenantbook/reservations/services/availability-service/internal/calendar"
	"github.com/tenantbook/reservations/services/availability-service/internal/menu"
	"github.com/tenantbook/reservations/services/availability-service/internal/reservations"
	"github.com/tenantbook/reservations/services/availability-service/internal/tenant"
)

type globalFlags struct {
	storeDir string
	storeID  string
	url      string
	timeout  time.Duration
	timezone string
	tag      string
	logLevel string

	visit   string
	course  string
	menus   []string
	options []string
}

func (g *globalFlags) selection() menu.Selection {
	return menu.Selection{VisitCount: g.visit, Course: g.course, Menus: g.menus, Options: g.options}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "slotctl",
		Short:         "Inspect store availability",
		Long:          "slotctl computes booking lengths and the seven-day availability view for a configured store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.storeDir, "stores", config.String("STORE_CONFIG_DIR", "./stores"), "Directory holding store configs")
	pf.StringVarP(&g.storeID, "store", "s", "", "Store id")
	pf.StringVar(&g.url, "url", config.String("AVAILABILITY_URL", ""), "Default availability endpoint")
	pf.DurationVar(&g.timeout, "timeout", config.Duration("AVAILABILITY_TIMEOUT", 10*time.Second), "Availability request timeout")
	pf.StringVar(&g.timezone, "tz", config.String("DEFAULT_TIMEZONE", "Asia/Tokyo"), "Timezone for stores without one")
	pf.StringVar(&g.tag, "tag", config.String("BUSINESS_DAY_TAG", availability.DefaultBusinessDayTag), "Title marker of business-day events")
	pf.StringVar(&g.logLevel, "log-level", config.String("LOG_LEVEL", "info"), "Log level")
	pf.StringVar(&g.visit, "visit", "", "Visit count label")
	pf.StringVar(&g.course, "course", "", "Course name")
	pf.StringArrayVarP(&g.menus, "menu", "m", nil, "Menu name (repeatable)")
	pf.StringArrayVarP(&g.options, "option", "o", nil, "Option name (repeatable)")

	root.AddCommand(newMinutesCmd(g), newWeekCmd(g), newWatchCmd(g), newHealthCmd())
	return root
}

func main() {
	ctx, stop := runtime.SignalContext()
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (g *globalFlags) logger(w io.Writer) *slog.Logger {
	return runtime.NewLoggerTo(w, "slotctl", g.logLevel)
}

// newService wires a reservations.Service over the file store.
func (g *globalFlags) newService(logger *slog.Logger) (*reservations.Service, error) {
	if g.storeID == "" {
		return nil, errors.New(`required flag "store" not set`)
	}
	stores, err := tenant.NewFileStore(g.storeDir)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(g.timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return reservations.NewService(stores, g.fetcher, reservations.NewLogPublisher(logger), logger, reservations.Config{
		DefaultLocation: loc,
		BusinessDayTag:  g.tag,
	}), nil
}

// fetcher prefers the store's own availability endpoint over --url.
func (g *globalFlags) fetcher(cfg tenant.StoreConfig) (availability.Fetcher, error) {
	url := cfg.AvailabilityURL
	if url == "" {
		url = g.url
	}
	if url == "" {
		return nil, errors.New("no availability url: set --url or the store's availabilityUrl")
	}
	c, err := calendar.NewClient(calendar.Config{URL: url, Timeout: g.timeout})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
