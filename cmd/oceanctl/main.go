package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/oceanclean/oceanclean/internal/adapters/docstore"
	natsadapter "github.com/oceanclean/oceanclean/internal/adapters/nats"
	"github.com/oceanclean/oceanclean/internal/bootstrap"
	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/usecases"
	"github.com/oceanclean/oceanclean/internal/pkg/config"
	"github.com/oceanclean/oceanclean/internal/pkg/logging"
)

var (
	verbose bool

	seriesNames []string
	password    string
	role        string
	lat, lng    float64

	res *bootstrap.Resources
)

var rootCmd = &cobra.Command{
	Use:   "oceanctl",
	Short: "Administer the OceanClean document store",
	Long: `oceanctl talks directly to the configured document store. It reads the same
config.yaml and OCEANCLEAN_* environment variables as the API server.`,
	SilenceUsage:      true,
	PersistentPreRunE: connect,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if res != nil {
			res.Close()
		}
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write generated sample data",
}

var seedStatisticsCmd = &cobra.Command{
	Use:   "statistics",
	Short: "Overwrite statistics series with generated readings",
	RunE:  runSeedStatistics,
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage dashboard accounts",
}

var usersAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create or update an account with a bcrypt password hash",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersAdd,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE:  runUsersList,
}

var mapsCmd = &cobra.Command{
	Use:   "maps",
	Short: "Inspect and edit cleaning-area maps",
}

var mapsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List maps ordered by creation time",
	RunE:  runMapsList,
}

var mapsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a map",
	Args:  cobra.ExactArgs(1),
	RunE:  runMapsDelete,
}

var mapsLocateCmd = &cobra.Command{
	Use:   "locate <id>",
	Short: "Show which areas of a map contain a point",
	Args:  cobra.ExactArgs(1),
	RunE:  runMapsLocate,
}

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Robot command stream",
}

var controlWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print drive and mode commands as the robot receives them",
	RunE:  runControlWatch,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	seedStatisticsCmd.Flags().StringSliceVarP(&seriesNames, "series", "s", nil,
		"Series to seed: dailyReadings, weeklyReadings, wasteTypes (default all)")

	usersAddCmd.Flags().StringVarP(&password, "password", "p", "", "Password (min 8 characters)")
	usersAddCmd.Flags().StringVarP(&role, "role", "r", string(domain.RoleUser), "Role: admin or user")
	_ = usersAddCmd.MarkFlagRequired("password")

	mapsLocateCmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	mapsLocateCmd.Flags().Float64Var(&lng, "lng", 0, "Longitude")
	_ = mapsLocateCmd.MarkFlagRequired("lat")
	_ = mapsLocateCmd.MarkFlagRequired("lng")

	seedCmd.AddCommand(seedStatisticsCmd)
	usersCmd.AddCommand(usersAddCmd, usersListCmd)
	mapsCmd.AddCommand(mapsListCmd, mapsDeleteCmd, mapsLocateCmd)
	controlCmd.AddCommand(controlWatchCmd)
	rootCmd.AddCommand(seedCmd, usersCmd, mapsCmd, controlCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func connect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("oceanctl")
	if err != nil {
		return err
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	logging.Setup(level, "text")

	if cfg.Store.Driver == config.DriverMemory {
		return errors.New("store.driver is memory; oceanctl needs a shared store (valkey or postgres)")
	}
	res, err = bootstrap.Open(cmd.Context(), cfg, "oceanctl")
	return err
}

func runSeedStatistics(cmd *cobra.Command, args []string) error {
	svc := usecases.NewStatisticsService(docstore.NewStatisticsRepo(res.Store), res.CacheService())
	written, err := svc.Seed(cmd.Context(), nil, seriesNames...)
	for name, data := range written {
		n := 0
		switch v := data.(type) {
		case map[string]domain.SensorReading:
			n = len(v)
		case map[string]domain.WasteType:
			n = len(v)
		}
		fmt.Printf("OK  %s (%d entries)\n", name, n)
	}
	return err
}

func runUsersAdd(cmd *cobra.Command, args []string) error {
	svc := usecases.NewAuthService(docstore.NewUserRepo(res.Store), nil)
	u, err := svc.AddUser(cmd.Context(), args[0], password, domain.Role(role))
	if err != nil {
		return err
	}
	fmt.Printf("saved %s (%s)\n", u.Username, u.Privileges)
	return nil
}

func runUsersList(cmd *cobra.Command, args []string) error {
	svc := usecases.NewAuthService(docstore.NewUserRepo(res.Store), nil)
	users, err := svc.ListUsers(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\n", u.Username, u.Privileges)
	}
	return w.Flush()
}

func runMapsList(cmd *cobra.Command, args []string) error {
	svc := usecases.NewMapService(docstore.NewMapRepo(res.Store))
	maps, err := svc.List(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tAREAS\tCREATED")
	for _, m := range maps {
		created := time.UnixMilli(m.CreatedAt).Format(time.DateTime)
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", m.ID, m.Name, len(m.Areas), created)
	}
	return w.Flush()
}

func runMapsDelete(cmd *cobra.Command, args []string) error {
	svc := usecases.NewMapService(docstore.NewMapRepo(res.Store))
	if err := svc.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func runMapsLocate(cmd *cobra.Command, args []string) error {
	svc := usecases.NewMapService(docstore.NewMapRepo(res.Store))
	r, err := svc.Locate(cmd.Context(), args[0], domain.LatLng{Lat: lat, Lng: lng})
	if err != nil {
		return err
	}
	if len(r.Inside) == 0 {
		if r.Nearest != nil {
			fmt.Printf("outside every area; nearest is %s (%.0f m)\n", r.Nearest.Name, r.DistanceMeters)
		} else {
			fmt.Println("map has no areas")
		}
		return nil
	}
	names := make([]string, len(r.Inside))
	for i, a := range r.Inside {
		names[i] = a.Name
	}
	fmt.Printf("inside: %s\n", strings.Join(names, ", "))
	return nil
}

func runControlWatch(cmd *cobra.Command, args []string) error {
	if res.NATS == nil {
		return errors.New("nats is not connected")
	}
	sub, err := natsadapter.NewSubscriber(res.NATS)
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sub.SubscribeDrive(ctx, func(ctx context.Context, c *domain.DriveCommand) error {
		fmt.Printf("%s drive %-8s speed=%3d depth=%.1f paused=%t by=%s\n",
			time.UnixMilli(c.Timestamp).Format(time.TimeOnly), c.Direction, c.Speed, c.Depth, c.Paused, c.IssuedBy)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe drive: %w", err)
	}
	err = sub.SubscribeMode(ctx, func(ctx context.Context, c *domain.ModeCommand) error {
		fmt.Printf("%s mode  %s map=%s\n", time.UnixMilli(c.Timestamp).Format(time.TimeOnly), c.Mode, c.MapID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe mode: %w", err)
	}

	<-ctx.Done()
	return nil
}
