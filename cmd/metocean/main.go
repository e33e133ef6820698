// Command metocean runs the operational-planning and extreme-value analyses
// over a time-indexed CSV of hindcast parameters (first column timestamps,
// remaining columns physical parameters such as hs and tp).
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/metoceanlab/metocean/internal/eva"
	"github.com/metoceanlab/metocean/internal/geo"
	"github.com/metoceanlab/metocean/internal/hindcast"
	"github.com/metoceanlab/metocean/internal/log"
	"github.com/metoceanlab/metocean/internal/opsplan"
	"github.com/metoceanlab/metocean/internal/persistence"
	"github.com/metoceanlab/metocean/internal/series"
	"github.com/metoceanlab/metocean/pkg/config"
)

func main() {
	var (
		input    = flag.String("input", "", "Input CSV file (time-indexed)")
		mode     = flag.String("mode", "windows", "Analysis to run: windows, oplen, contour, persistence or fetch")
		hsMax    = flag.Float64("hs-max", 0, "Criteria: maximum hs (0 disables)")
		tpMax    = flag.Float64("tp-max", 0, "Criteria: maximum tp (0 disables)")
		winLen   = flag.Float64("winlen", 1, "Weather window length in hours")
		policy   = flag.String("policy", "concurrent", "Window scan policy: concurrent or continuous")
		opLen    = flag.Float64("oplen", 10, "Nominal operation length in hours")
		critical = flag.Bool("critical", false, "Critical operation (restarts on downtime)")
		day      = flag.Int("day", 1, "Day of month for monthly operation starts")
		quantile = flag.Float64("q", 0.9, "Quantile threshold for the extreme-value fit")
		declust  = flag.Float64("r", 0, "Declustering window in hours for peak extraction")
		nsim     = flag.Int("nsim", 100000, "Number of joint-tail simulations")
		ntheta   = flag.Int("ntheta", 120, "Angular resolution of the contours (multiple of 4)")
		probs    = flag.String("prob", "0.9,0.99", "Comma-separated contour probability levels")
		seed     = flag.Uint64("seed", 42, "Random seed for the simulation")
		month    = flag.Int("month", 0, "Calendar month (1-12) for the persistence statistics")
		node     = flag.Int("node", 0, "Hindcast node id (1-based); 0 resolves the nearest node from -lon/-lat and -grid")
		params   = flag.String("params", "hs,tp", "Comma-separated parameters for the fetch mode")
		fetchBeg = flag.String("from", "", "Fetch period start (RFC3339)")
		fetchEnd = flag.String("to", "", "Fetch period end (RFC3339)")
		gridPath = flag.String("grid", "", "Node grid CSV (id,lon,lat[,depth]) for nearest-node lookup")
		lon      = flag.Float64("lon", 0, "Longitude for the nearest-node lookup, decimal degrees")
		lat      = flag.Float64("lat", 0, "Latitude for the nearest-node lookup, decimal degrees")
		coast    = flag.String("coastline", "", "Coastline shapefile; reports the distance from -lon/-lat to the coast")
		csvOut   = flag.String("csv", "", "Optional CSV output file path")
		debug    = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *mode == "fetch" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("loading configuration: %v", err)
		}
		start, err := time.Parse(time.RFC3339, *fetchBeg)
		if err != nil {
			log.Fatalf("fetch: invalid -from: %v", err)
		}
		end, err := time.Parse(time.RFC3339, *fetchEnd)
		if err != nil {
			log.Fatalf("fetch: invalid -to: %v", err)
		}
		parameters := strings.Split(*params, ",")
		for i := range parameters {
			parameters[i] = strings.TrimSpace(parameters[i])
		}
		if err := runFetch(cfg, *node, parameters, *gridPath, *lon, *lat, *coast, start, end, *csvOut); err != nil {
			log.Fatalf("fetch: %v", err)
		}
		return
	}

	if *input == "" {
		log.Fatal("an -input CSV file is required")
	}
	table, err := series.LoadCSV(*input)
	if err != nil {
		log.Fatalf("loading %s: %v", *input, err)
	}
	log.Infow("loaded input", "file", *input, "rows", table.Len(), "columns", table.Columns)

	switch *mode {
	case "windows":
		err = runWindows(table, *hsMax, *tpMax, *winLen, *policy, *csvOut)
	case "oplen":
		err = runOpLen(table, *hsMax, *tpMax, *opLen, *critical, *day, *csvOut)
	case "contour":
		err = runContour(table, *quantile, *declust, *nsim, *ntheta, *probs, *seed, *csvOut)
	case "persistence":
		err = runPersistence(table, *month, *csvOut)
	default:
		err = fmt.Errorf("unknown mode %q, want windows, oplen, contour, persistence or fetch", *mode)
	}
	if err != nil {
		log.Fatalf("%s: %v", *mode, err)
	}
}

// applyCriteria keeps the rows below the configured hs/tp thresholds, NaN
// rows excluded.
func applyCriteria(t *series.Table, hsMax, tpMax float64) (*series.Table, error) {
	hsIdx, tpIdx := -1, -1
	var err error
	if hsMax > 0 {
		if hsIdx, err = t.ColumnIndex("hs"); err != nil {
			return nil, err
		}
	}
	if tpMax > 0 {
		if tpIdx, err = t.ColumnIndex("tp"); err != nil {
			return nil, err
		}
	}
	filtered := t.Filter(func(row []float64) bool {
		if hsIdx >= 0 && !(row[hsIdx] < hsMax) {
			return false
		}
		if tpIdx >= 0 && !(row[tpIdx] < tpMax) {
			return false
		}
		return true
	})
	log.Infow("criteria applied", "kept", filtered.Len(), "of", t.Len())
	return filtered, nil
}

func runWindows(t *series.Table, hsMax, tpMax, winLen float64, policyName, csvOut string) error {
	var policy opsplan.ScanPolicy
	switch policyName {
	case "concurrent":
		policy = opsplan.ConcurrentWindows
	case "continuous":
		policy = opsplan.ContinuousWindows
	default:
		return fmt.Errorf("unknown policy %q, want concurrent or continuous", policyName)
	}

	filtered, err := applyCriteria(t, hsMax, tpMax)
	if err != nil {
		return err
	}
	starts, err := opsplan.WindowStarts(filtered.Times, winLen, policy)
	if err != nil {
		return err
	}

	fmt.Printf("%d weather windows of %.1f h (%s scan)\n", len(starts), winLen, policy)
	for _, s := range starts {
		fmt.Println("  ", s.Format(time.RFC3339))
	}
	if len(starts) > 0 {
		printMonthly("windows per month", opsplan.WindowCountsByMonth(starts))
	}

	if csvOut != "" {
		return writeCSV(csvOut, []string{"start"}, func(w *csv.Writer) error {
			for _, s := range starts {
				if err := w.Write([]string{s.Format(time.RFC3339)}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return nil
}

func runOpLen(t *series.Table, hsMax, tpMax, opLen float64, critical bool, day int, csvOut string) error {
	filtered, err := applyCriteria(t, hsMax, tpMax)
	if err != nil {
		return err
	}
	starts, err := opsplan.MonthlyStartDates(filtered.Times, day)
	if err != nil {
		return err
	}
	lengths, err := opsplan.OperationLengths(filtered.Times, opLen, critical, starts)
	if err != nil {
		return err
	}

	fmt.Printf("operation of %.1f h (critical=%v), monthly starts on day %d\n", opLen, critical, day)
	for _, l := range lengths {
		fmt.Printf("  %s  %8.1f h\n", l.Start.Format("2006-01-02"), l.Hours())
	}
	printMonthly("realized hours per month", opsplan.OperationHoursByMonth(lengths))

	if csvOut != "" {
		return writeCSV(csvOut, []string{"start", "hours"}, func(w *csv.Writer) error {
			for _, l := range lengths {
				rec := []string{l.Start.Format(time.RFC3339), strconv.FormatFloat(l.Hours(), 'f', 1, 64)}
				if err := w.Write(rec); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return nil
}

func runContour(t *series.Table, q, declustHours float64, nsim, ntheta int, probSpec string, seed uint64, csvOut string) error {
	var prob []float64
	for _, p := range strings.Split(probSpec, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("invalid probability level %q: %v", p, err)
		}
		prob = append(prob, v)
	}

	clean := t.DropNaN()
	n, m := clean.Len(), len(clean.Columns)
	if m != 2 && m != 3 {
		return fmt.Errorf("contours need 2 or 3 parameter columns, input has %d", m)
	}
	data := mat.NewDense(n, m, nil)
	for i, row := range clean.Data {
		data.SetRow(i, row)
	}

	fit, err := eva.FitCensoredGaussianCopula(data, q)
	if err != nil {
		return err
	}
	if !fit.Success {
		return fmt.Errorf("copula fit did not converge: %s", fit.Status)
	}
	log.Infow("copula fitted", "rho", fit.Rho, "tail_dependence", fit.TailDep, "objective", fit.Objective)

	gpd, err := eva.FitMarginals(clean, q, time.Duration(declustHours*float64(time.Hour)))
	if err != nil {
		return err
	}
	for j, g := range gpd {
		log.Infow("marginal fitted", "column", clean.Columns[j],
			"threshold", g.Threshold, "scale", g.Scale, "shape", g.Shape)
	}

	sims, err := eva.RunSimulation(fit.Rho, q, gpd, nsim, rand.NewSource(seed))
	if err != nil {
		return err
	}

	if m == 2 {
		contour, err := eva.HusebyContour2D(sims, prob, ntheta)
		if err != nil {
			return err
		}
		return writeContour2D(contour, csvOut)
	}
	contour, err := eva.HusebyContour3D(sims, prob, ntheta)
	if err != nil {
		return err
	}
	return writeContour3D(contour, csvOut)
}

// runFetch retrieves a parameter table for one grid node from the remote
// hindcast service, resolving the node from a position when needed, and
// writes it as a time-indexed CSV that the analysis modes accept as -input.
func runFetch(cfg config.Config, node int, parameters []string, gridPath string, lon, lat float64, coastPath string, start, end time.Time, csvOut string) error {
	if node == 0 {
		if gridPath == "" {
			return fmt.Errorf("either -node, or -grid with -lon/-lat, is required")
		}
		grid, err := geo.LoadGrid(gridPath)
		if err != nil {
			return err
		}
		nearest, err := grid.Nearest(lon, lat)
		if err != nil {
			return err
		}
		node = nearest.ID
		log.Infow("nearest node resolved", "node", node,
			"lon", nearest.Lon, "lat", nearest.Lat, "depth", nearest.Depth)
	}
	if coastPath != "" {
		segments, err := geo.LoadCoastline(coastPath)
		if err != nil {
			return err
		}
		log.Infow("distance to coastline", "meters", geo.DistanceToCoastline(segments, lon, lat))
	}

	var opts []hindcast.Option
	if cfg.CachePath != "" {
		cache, err := hindcast.OpenCache(cfg.CachePath)
		if err != nil {
			return err
		}
		defer cache.Close()
		opts = append(opts, hindcast.WithCache(cache))
	}
	client := hindcast.NewClient(cfg.HindcastURL, opts...)

	table, err := client.FetchTable(context.Background(), node, parameters, start, end)
	if err != nil {
		return err
	}
	log.Infow("fetched", "node", node, "rows", table.Len(), "columns", table.Columns)

	header := append([]string{"time"}, table.Columns...)
	emit := func(w *csv.Writer) error {
		for i, ts := range table.Times {
			rec := []string{ts.Format(time.RFC3339)}
			for _, v := range table.Data[i] {
				rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	}
	if csvOut != "" {
		return writeCSV(csvOut, header, emit)
	}
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()
	if err := w.Write(header); err != nil {
		return err
	}
	return emit(w)
}

// runPersistence computes the monthly accessibility statistics from the hs
// column of the input table.
func runPersistence(t *series.Table, month int, csvOut string) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("persistence needs -month between 1 and 12, got %d", month)
	}
	hs, err := t.DropNaN().Column("hs")
	if err != nil {
		return err
	}
	res, err := persistence.ComputeWeatherWindows(hs, time.Month(month), nil)
	if err != nil {
		return err
	}

	fmt.Printf("weibull fit for %s: x0=%.4f b=%.4f k=%.4f\n",
		time.Month(month), res.Fit.X0, res.Fit.B, res.Fit.K)
	for ti, thr := range res.Thresholds {
		fmt.Printf("  hs < %.1f m: P(24 h window) = %.3f, access %.1f h/month\n",
			thr, res.PT[ti][23], res.AccessHours[ti][23])
	}

	if csvOut == "" {
		return nil
	}
	header := []string{"threshold", "duration_hours", "probability", "events", "access_hours", "waiting_hours"}
	return writeCSV(csvOut, header, func(w *csv.Writer) error {
		for ti, thr := range res.Thresholds {
			for h := range res.PT[ti] {
				rec := []string{
					strconv.FormatFloat(thr, 'f', 2, 64),
					strconv.Itoa(h + 1),
					strconv.FormatFloat(res.PT[ti][h], 'f', 6, 64),
					strconv.FormatFloat(res.NumberEvents[ti][h], 'f', 6, 64),
					strconv.FormatFloat(res.AccessHours[ti][h], 'f', 3, 64),
					strconv.FormatFloat(res.WaitingHours[ti][h], 'f', 3, 64),
				}
				if err := w.Write(rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func writeContour2D(c *eva.Contour2D, csvOut string) error {
	header := []string{"theta"}
	for _, p := range c.Prob {
		header = append(header, fmt.Sprintf("x_p%g", p), fmt.Sprintf("y_p%g", p))
	}
	emit := func(w *csv.Writer) error {
		for i, th := range c.Theta {
			rec := []string{strconv.FormatFloat(th, 'f', 6, 64)}
			for p := range c.Prob {
				rec = append(rec,
					strconv.FormatFloat(c.X.At(i, p), 'f', 6, 64),
					strconv.FormatFloat(c.Y.At(i, p), 'f', 6, 64))
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	}
	if csvOut != "" {
		return writeCSV(csvOut, header, emit)
	}
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()
	if err := w.Write(header); err != nil {
		return err
	}
	return emit(w)
}

func writeContour3D(c *eva.Contour3D, csvOut string) error {
	header := []string{}
	for _, p := range c.Prob {
		header = append(header,
			fmt.Sprintf("x_p%g", p), fmt.Sprintf("y_p%g", p), fmt.Sprintf("z_p%g", p))
	}
	rows, _ := c.X.Dims()
	emit := func(w *csv.Writer) error {
		for i := 0; i < rows; i++ {
			var rec []string
			for p := range c.Prob {
				rec = append(rec,
					strconv.FormatFloat(c.X.At(i, p), 'f', 6, 64),
					strconv.FormatFloat(c.Y.At(i, p), 'f', 6, 64),
					strconv.FormatFloat(c.Z.At(i, p), 'f', 6, 64))
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	}
	if csvOut != "" {
		return writeCSV(csvOut, header, emit)
	}
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()
	if err := w.Write(header); err != nil {
		return err
	}
	return emit(w)
}

func printMonthly(title string, m *opsplan.MonthlyMatrix) {
	fmt.Println(title)
	fmt.Printf("%6s", "year")
	for _, mo := range m.Months {
		fmt.Printf("%8s", mo.String()[:3])
	}
	fmt.Println()
	for i, y := range m.Years {
		fmt.Printf("%6d", y)
		for j := range m.Months {
			v := m.Cells[i][j]
			if math.Trunc(v) == v {
				fmt.Printf("%8.0f", v)
			} else {
				fmt.Printf("%8.1f", v)
			}
		}
		fmt.Println()
	}
}

func writeCSV(path string, header []string, emit func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write(header); err != nil {
		return err
	}
	return emit(w)
}
