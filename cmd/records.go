package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/geoface/internal/database"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect attendance records",
	Long: `Inspect the attendance table. The table is created on first use.

Examples:
  geoface records list
  geoface records list --name "Jane Doe" --since 24h
  geoface records count --since 2026-01-01T00:00:00Z`,
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance records, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRecordsList,
}

var recordsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count attendance records",
	Args:  cobra.NoArgs,
	RunE:  runRecordsCount,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsCountCmd)

	for _, c := range []*cobra.Command{recordsListCmd, recordsCountCmd} {
		c.Flags().String("name", "", "Only records of this person")
		c.Flags().String("since", "", "Only records at or after this time (RFC 3339) or within this duration (e.g. 24h)")
		c.Flags().Bool("json", false, "Output as JSON")
	}
	recordsListCmd.Flags().Int("limit", 50, "Maximum number of records (0 = no limit)")
}

// parseSince accepts an RFC 3339 timestamp or a duration counted back from now.
func parseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return now.Add(-d), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --since %q: want RFC 3339, YYYY-MM-DD or a duration", s)
}

func recordsFilter(cmd *cobra.Command) (database.AttendanceFilter, error) {
	since, err := parseSince(mustGetString(cmd, "since"), time.Now())
	if err != nil {
		return database.AttendanceFilter{}, err
	}
	f := database.AttendanceFilter{Name: mustGetString(cmd, "name"), Since: since}
	if cmd.Flags().Lookup("limit") != nil {
		f.Limit = mustGetInt(cmd, "limit")
	}
	return f, nil
}

// RecordsOutput is the machine-readable record listing.
type RecordsOutput struct {
	Records []database.AttendanceRecord `json:"records"`
	Count   int                         `json:"count"`
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	filter, err := recordsFilter(cmd)
	if err != nil {
		return err
	}
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}

	if mustGetBool(cmd, "json") {
		if records == nil {
			records = []database.AttendanceRecord{}
		}
		return outputJSON(RecordsOutput{Records: records, Count: len(records)})
	}

	if len(records) == 0 {
		fmt.Println("No attendance records")
		return nil
	}
	fmt.Printf("%-6s  %-19s  %-24s  %-30s  %s\n", "ID", "TIME", "NAME", "LOCATION", "LAT,LON")
	fmt.Println(strings.Repeat("-", 100))
	for _, r := range records {
		fmt.Printf("%-6d  %-19s  %-24s  %-30s  %.4f,%.4f\n",
			r.ID, r.Timestamp.Local().Format(time.DateTime), r.EmployeeName, r.LocationName, r.Latitude, r.Longitude)
	}
	fmt.Printf("\n%d record(s)\n", len(records))
	return nil
}

func runRecordsCount(cmd *cobra.Command, args []string) error {
	filter, err := recordsFilter(cmd)
	if err != nil {
		return err
	}
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Count(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("counting records: %w", err)
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(map[string]int64{"count": n})
	}
	fmt.Println(n)
	return nil
}
