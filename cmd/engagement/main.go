package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/services"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/startup"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/domain/engagement"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "engagement",
		Short:         "Page engagement collector",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newScoreCmd())
	root.AddCommand(newProfileCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var opts startup.Options
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the collector HTTP service",
		RunE: func(_ *cobra.Command, _ []string) error {
			return startup.Initialize(opts)
		},
	}
	cmd.Flags().StringVar(&opts.Port, "port", "", "listen port (default from PORT)")
	cmd.Flags().StringVar(&opts.ProfilePath, "profile", "", "tracking profile YAML (default from TRACKING_PROFILE)")
	return cmd
}

func newScoreCmd() *cobra.Command {
	var f engagement.Factors
	var contentType string
	var insights bool
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one set of engagement factors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.ContentType = engagement.ParseContentType(contentType)
			result := engagement.CalculateEngagementScore(f)

			out := map[string]any{"factors": f, "score": result}
			if insights {
				out["insights"] = engagement.InsightsFor(engagement.Metrics{
					Initialized:       true,
					ContentType:       f.ContentType,
					ScrollDepth:       f.ScrollDepthPercent,
					TimeOnPageSeconds: int(f.TimeOnPageSeconds),
					ReadingProgress:   f.ReadingProgressPercent,
					SectionsSeen:      f.VisibleSectionCount,
					Interactions:      f.InteractionCount,
					Score:             result,
				})
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().IntVar(&f.ScrollDepthPercent, "scroll", 0, "maximum scroll depth, percent")
	cmd.Flags().Float64Var(&f.TimeOnPageSeconds, "time", 0, "time on page, seconds")
	cmd.Flags().IntVar(&f.ReadingProgressPercent, "reading", 0, "reading progress, percent")
	cmd.Flags().IntVar(&f.VisibleSectionCount, "sections", 0, "sections seen")
	cmd.Flags().IntVar(&f.InteractionCount, "interactions", 0, "interaction count")
	cmd.Flags().StringVar(&contentType, "type", string(engagement.ContentBlog), "content type: blog|article|landing|service|portfolio|contact")
	cmd.Flags().BoolVar(&insights, "insights", false, "include insight strings")
	return cmd
}

func newProfileCmd() *cobra.Command {
	profile := &cobra.Command{Use: "profile", Short: "Tracking profile commands"}
	profile.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate a tracking profile and print the effective settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.LoadProfile(args[0])
			if err != nil {
				return err
			}
			settings := services.DefaultTrackingSettings()
			settings.ApplyProfile(p)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"trackingInterval": settings.TrackingInterval.String(),
				"scroll":           settings.Scroll,
				"time":             settings.Time,
				"visibility":       settings.Visibility,
				"reading":          settings.Reading,
			})
		},
	})
	return profile
}
