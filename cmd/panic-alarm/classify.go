package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/panic-alarm/internal/config"
	"github.com/sweeney/panic-alarm/internal/logic"
)

func classifyCmd() *cobra.Command {
	var (
		opts  classifyOptions
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "classify [x y z]",
		Short: "Classify one sample, or watch the motion source with --watch",
		Long: `Classify one sample, or watch the motion source with --watch.

Variant, policy, window and threshold come from the config file unless the
matching flag is given.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if watch {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg = opts.apply(cfg, cmd.Flags().Changed)
			if err := cfg.Validate(); err != nil {
				return err
			}
			c := logic.NewClassifier(logic.Variant(cfg.Variant), cfg.Threshold)

			if !watch {
				s, err := parseSample(args)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatLabels(c.Classify(s)))
				return nil
			}
			d := logic.NewDebouncer(logic.Policy(cfg.Policy), cfg.Window)
			return watchMotion(cmd.OutOrStdout(), cfg, c, d)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.variant, "variant", string(logic.VariantExclusive), "classifier variant: exclusive or independent")
	f.StringVar(&opts.policy, "policy", string(logic.PolicyLatch), "debounce policy for --watch: latch or window")
	f.Float64Var(&opts.threshold, "threshold", logic.Threshold, "per-axis trigger threshold")
	f.DurationVar(&opts.window, "window", logic.DefaultWindow, "debounce window for --watch with the window policy")
	f.BoolVar(&watch, "watch", false, "stream samples from the configured motion source")
	return cmd
}

// classifyOptions are the classify flags that override the config file.
type classifyOptions struct {
	variant   string
	policy    string
	threshold float64
	window    time.Duration
}

// apply overrides cfg with every flag the user set.
func (o classifyOptions) apply(cfg config.Config, changed func(name string) bool) config.Config {
	if changed("variant") {
		cfg.Variant = o.variant
	}
	if changed("policy") {
		cfg.Policy = o.policy
	}
	if changed("threshold") {
		cfg.Threshold = o.threshold
	}
	if changed("window") {
		cfg.Window = o.window
	}
	return cfg
}

func parseSample(args []string) (logic.Sample, error) {
	var v [3]float64
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return logic.Sample{}, fmt.Errorf("invalid axis %q: %w", a, err)
		}
		v[i] = f
	}
	return logic.Sample{X: v[0], Y: v[1], Z: v[2]}, nil
}

func formatLabels(labels []logic.Gesture) string {
	if len(labels) == 0 {
		return logic.GestureNone.String()
	}
	names := make([]string, len(labels))
	for i, g := range labels {
		names[i] = g.String()
	}
	return strings.Join(names, " ")
}

// watchMotion prints every gesture that would fire, until interrupted.
func watchMotion(out io.Writer, cfg config.Config, c logic.Classifier, d *logic.Debouncer) error {
	source, closeSource, err := openMotion(cfg)
	if err != nil {
		return fmt.Errorf("init motion: %w", err)
	}
	defer closeSource()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ok, err := source.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("motion permission: %w", err)
	}
	if !ok {
		return fmt.Errorf("motion permission denied")
	}

	samples := make(chan logic.Sample, 16)
	h, err := source.Subscribe(ctx, func(s logic.Sample) {
		select {
		case samples <- s:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer source.Unsubscribe(h)

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-samples:
			now := time.Now()
			for _, g := range d.Process(c.Classify(s), now) {
				fmt.Fprintf(out, "%s %s (x=%.2f y=%.2f z=%.2f)\n",
					now.UTC().Format(time.RFC3339Nano), g, s.X, s.Y, s.Z)
			}
		}
	}
}

