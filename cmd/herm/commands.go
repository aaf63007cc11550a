package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-kit/log/level"
	"github.com/hermean/herm"
	"github.com/spf13/cobra"
)

var (
	startFlag, endFlag string
	steps              int
	cadence            time.Duration
	targetCount        int
	nearFlag           string
	radius             time.Duration
	perItem            bool
)

var positionCmd = &cobra.Command{
	Use:   "position <epoch>...",
	Short: "Spacecraft position, local time and latitude at the given epochs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		frame, err := herm.ParseFrame(frameName)
		if err != nil {
			return err
		}
		epochs, err := parseEpochs(args)
		if err != nil {
			return err
		}
		tracker, err := cfg.NewTracker(herm.WithLogger(logger))
		if err != nil {
			return err
		}
		return tracker.Session(func(ts *herm.TrackerSession) error {
			for _, epoch := range epochs {
				p, err := ts.Position(cfg.Ephemeris.Spacecraft, epoch, frame)
				if err != nil {
					return err
				}
				mso, err := ts.Position(cfg.Ephemeris.Spacecraft, epoch, herm.MSO)
				if err != nil {
					return err
				}
				fmt.Println(report(epoch.Format(time.RFC3339),
					field("position", "%s", p),
					field("range", "%.3f km (%.4f R)", mso.Range(), mso.Range()/cfg.Constants.PlanetRadius),
					field("local time", "%.2f h", herm.LocalTime(mso)),
					field("latitude", "%.2f°", herm.Latitude(mso)),
					field("magnetic lat", "%.2f°", herm.MagneticLatitude(mso, cfg.Constants.DipoleOffset)),
				))
			}
			return nil
		})
	},
}

var trajectoryCmd = &cobra.Command{
	Use:   "trajectory",
	Short: "Evenly spaced spacecraft positions as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		frame, err := herm.ParseFrame(frameName)
		if err != nil {
			return err
		}
		start, end, err := window()
		if err != nil {
			return err
		}
		tracker, err := cfg.NewTracker(herm.WithLogger(logger))
		if err != nil {
			return err
		}
		traj, err := tracker.Trajectory(cfg.Ephemeris.Spacecraft, start, end, steps, frame)
		if err != nil {
			return err
		}
		fmt.Printf("epoch,x,y,z (%s, km)\n", frame)
		for _, p := range traj {
			fmt.Printf("%s,%f,%f,%f\n", p.Epoch.Format(time.RFC3339Nano), p.X, p.Y, p.Z)
		}
		return nil
	},
}

var apoapsisCmd = &cobra.Command{
	Use:   "apoapsis",
	Short: "Apoapses within a window, or the one nearest to --near",
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker, err := cfg.NewTracker(herm.WithLogger(logger))
		if err != nil {
			return err
		}
		finder := herm.ApoapsisFinder{Ephemeris: tracker.Ephemeris(), Body: cfg.Ephemeris.Spacecraft, Logger: logger}
		var found []herm.Apoapsis
		if nearFlag != "" {
			ref, err := herm.ParseEpoch(nearFlag)
			if err != nil {
				return err
			}
			apo, err := finder.FindNearest(ref, cadence, radius)
			if err != nil {
				return err
			}
			found = append(found, apo)
		} else {
			start, end, err := window()
			if err != nil {
				return err
			}
			if found, err = finder.FindAllInRange(start, end, cadence, targetCount); err != nil {
				return err
			}
		}
		lines := make([]string, len(found))
		for i, a := range found {
			lines[i] = field(a.Epoch.Format(time.RFC3339), "%.3f km", a.Altitude)
		}
		fmt.Println(report(fmt.Sprintf("%d apoapses", len(found)), lines...))
		return nil
	},
}

var aberrationCmd = &cobra.Command{
	Use:   "aberration <epoch>...",
	Short: "Solar wind aberration angle at the given epochs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		epochs, err := parseEpochs(args)
		if err != nil {
			return err
		}
		tracker, err := cfg.NewTracker(herm.WithLogger(logger))
		if err != nil {
			return err
		}
		eph := tracker.Ephemeris()
		model := herm.NewAberrationModel(eph, cfg.Constants, cfg.Aberration.Mode)
		distances, err := eph.HeliocentricDistancesParallel(context.Background(), epochs, cfg.Workers)
		if err != nil {
			return err
		}
		for i, epoch := range epochs {
			θ, err := model.Angle(epoch)
			if err != nil {
				return err
			}
			fmt.Println(report(epoch.Format(time.RFC3339),
				field("distance", "%.0f km (%.4f AU)", distances[i], distances[i]/herm.AU),
				field("speed", "%.3f km/s", model.OrbitalSpeed(distances[i])/1e3),
				field("angle", "%.4f° (%s)", herm.Rad2deg(θ), model.Mode()),
			))
		}
		return nil
	},
}

var grazingCmd = &cobra.Command{
	Use:   "grazing <crossings.csv>",
	Short: "Grazing angles of the crossings of a crossing list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		crossings, err := herm.ReadCrossings(f)
		if err != nil {
			return err
		}
		if startFlag != "" || endFlag != "" {
			start, end, err := window()
			if err != nil {
				return err
			}
			crossings = herm.CrossingsBetween(crossings, start, end)
		}
		tracker, err := cfg.NewTracker(herm.WithLogger(logger))
		if err != nil {
			return err
		}
		calc, err := herm.NewGrazingCalculator(tracker, cfg.Constants, herm.GrazingOptions{
			Samples:         cfg.Boundary.Samples,
			NormalTolerance: cfg.Boundary.NormalToleranceDeg,
			Body:            cfg.Ephemeris.Spacecraft,
			Logger:          logger,
		})
		if err != nil {
			return err
		}
		var results []herm.GrazingResult
		if perItem {
			if results, err = calc.GrazingAnglesPerItem(crossings); err != nil {
				return err
			}
		} else {
			gs, err := calc.GrazingAnglesParallel(cmd.Context(), skipGaps(crossings), cfg.Workers)
			if err != nil {
				return err
			}
			crossings = skipGaps(crossings)
			for _, g := range gs {
				results = append(results, herm.GrazingResult{Grazing: g})
			}
		}
		var ok []herm.Grazing
		lines := make([]string, len(results))
		for i, r := range results {
			label := fmt.Sprintf("%-8s %s", crossings[i].Type, crossings[i].Midpoint().Format(time.RFC3339))
			switch {
			case r.Err != nil:
				lines[i] = label + " " + errorStyle.Render(r.Err.Error())
			case r.Grazing.Approximate:
				lines[i] = label + " " + warnStyle.Render(fmt.Sprintf("%6.2f° (normal off by %.1f°)", r.Grazing.Angle, r.Grazing.NormalDeviation))
				ok = append(ok, r.Grazing)
			default:
				lines[i] = label + " " + valueStyle.Render(fmt.Sprintf("%6.2f°", r.Grazing.Angle))
				ok = append(ok, r.Grazing)
			}
		}
		fmt.Println(report(fmt.Sprintf("%d crossings", len(results)), lines...))
		summary := herm.Summarize(ok)
		level.Info(logger).Log("summary", summary)
		fmt.Println(headerStyle.Render(summary.String()))
		return nil
	},
}

// skipGaps drops the crossings without a boundary model.
func skipGaps(crossings []herm.Crossing) []herm.Crossing {
	var out []herm.Crossing
	for _, c := range crossings {
		if _, err := c.Boundary(); err == nil {
			out = append(out, c)
		}
	}
	return out
}

func parseEpochs(args []string) ([]time.Time, error) {
	epochs := make([]time.Time, len(args))
	for i, arg := range args {
		epoch, err := herm.ParseEpoch(arg)
		if err != nil {
			return nil, err
		}
		epochs[i] = epoch
	}
	return epochs, nil
}

func window() (start, end time.Time, err error) {
	if start, err = herm.ParseEpoch(startFlag); err != nil {
		return
	}
	end, err = herm.ParseEpoch(endFlag)
	return
}

func init() {
	trajectoryCmd.Flags().StringVar(&startFlag, "start", "", "first epoch")
	trajectoryCmd.Flags().StringVar(&endFlag, "end", "", "end epoch (excluded)")
	trajectoryCmd.Flags().IntVar(&steps, "steps", 100, "number of positions")

	apoapsisCmd.Flags().StringVar(&startFlag, "start", "", "window start")
	apoapsisCmd.Flags().StringVar(&endFlag, "end", "", "window end")
	apoapsisCmd.Flags().DurationVar(&cadence, "cadence", time.Minute, "sampling cadence")
	apoapsisCmd.Flags().IntVar(&targetCount, "count", 0, "keep the apoapses closest to the window midpoint (0 keeps all)")
	apoapsisCmd.Flags().StringVar(&nearFlag, "near", "", "find the apoapsis nearest to this epoch instead")
	apoapsisCmd.Flags().DurationVar(&radius, "radius", 12*time.Hour, "search radius around --near")

	grazingCmd.Flags().StringVar(&startFlag, "start", "", "only crossings after this epoch")
	grazingCmd.Flags().StringVar(&endFlag, "end", "", "only crossings before this epoch")
	grazingCmd.Flags().BoolVar(&perItem, "per-item", false, "report failures per crossing instead of failing the batch")

	rootCmd.AddCommand(positionCmd, trajectoryCmd, apoapsisCmd, aberrationCmd, grazingCmd)
}
