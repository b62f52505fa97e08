package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ytlocalize/storage"
)

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to your channel and save the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAuth(cmd)
		},
	}
}

func (a *app) runAuth(cmd *cobra.Command) error {
	if _, err := a.newAuthenticator(cmd).Client(cmd.Context(), true); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if a.cfg.TokenJSON != "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Authentication successful (TOKEN_JSON).")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Authentication successful. Token stored in %s.\n", a.cfg.TokenFile)
	return nil
}

// ---------------------------------------------------------------------------
// --auto and videos
// ---------------------------------------------------------------------------

func (a *app) runAuto(cmd *cobra.Command, dryRun bool) error {
	ctx := cmd.Context()
	l, done, err := a.newLocalizer(ctx, cmd, localizeFlags{dryRun: dryRun})
	if err != nil {
		return err
	}
	defer done()

	run, err := l.Auto(ctx)
	printRun(cmd.OutOrStdout(), run)
	return err
}

func newVideosCmd(a *app) *cobra.Command {
	var force, dryRun bool

	cmd := &cobra.Command{
		Use:   "videos <video-id>...",
		Short: "Localize specific videos regardless of publication date",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l, done, err := a.newLocalizer(ctx, cmd, localizeFlags{
				interactive: true,
				force:       force,
				dryRun:      dryRun,
			})
			if err != nil {
				return err
			}
			defer done()

			run, err := l.Videos(ctx, args)
			printRun(cmd.OutOrStdout(), run)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Retranslate languages the video already has")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Translate without updating videos")

	return cmd
}

func printRun(w io.Writer, run *storage.Run) {
	if run == nil || len(run.Videos) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VIDEO ID\tTITLE\tLANGUAGES\tFALLBACKS\tRESULT")
	for _, v := range run.Videos {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", v.VideoID, truncate(v.Title, 40), len(v.Languages), v.Fallbacks(), outcome(v))
	}
	tw.Flush()
}

func outcome(v storage.VideoResult) string {
	switch {
	case v.Error != "":
		return "error: " + v.Error
	case v.Skipped != "":
		return "skipped: " + v.Skipped
	case v.Updated:
		return "updated"
	default:
		return "-"
	}
}

// ---------------------------------------------------------------------------
// text
// ---------------------------------------------------------------------------

func newTextCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "text [text|-]",
		Short: "Translate text from arguments or stdin",
		Long: `Translate text with the same pipeline used for video metadata:
emoji and ALL-CAPS words are preserved, long lines are split, and chunks
that cannot be translated are kept as is.

With no argument, or "-", the text is read from stdin.`,
		Example: `  ytlocalize text --to en "Bonjour le MONDE 😀"
  cat description.txt | ytlocalize text --from fr --to de`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				return fmt.Errorf("--to is required")
			}
			if from == "" {
				from = a.cfg.DefaultLanguage
			}

			text := strings.Join(args, " ")
			if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimRight(string(data), "\n")
			}

			res := a.newTranslator().TranslateDetailed(cmd.Context(), text, from, to)
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)

			a.log.Debug("translated", "requests", res.Requests, "fallbacks", res.Fallbacks)
			if res.Fallbacks > 0 {
				a.log.Warn("some chunks were left untranslated", "fallbacks", res.Fallbacks, "rate_limited", res.RateLimited)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source language (default: config default_language)")
	cmd.Flags().StringVar(&to, "to", "", "Target language")

	return cmd
}

// ---------------------------------------------------------------------------
// history
// ---------------------------------------------------------------------------

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	var videoID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past localization runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.NewJSONStore(a.cfg.HistoryFile)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if videoID != "" {
				results, err := store.VideoHistory(ctx, videoID)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Fprintf(out, "No history for video %s.\n", videoID)
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN\tPROCESSED\tLANGUAGES\tFALLBACKS\tRESULT")
				for _, v := range results {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
						shortID(v.RunID), v.ProcessedAt.Local().Format(time.DateTime), languages(v), v.Fallbacks(), outcome(v))
				}
				return tw.Flush()
			}

			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tMODE\tSTATUS\tVIDEOS\tUPDATED\tDURATION")
			for _, r := range runs {
				mode := string(r.Mode)
				if r.DryRun {
					mode += " (dry run)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					shortID(r.ID), r.StartedAt.Local().Format(time.DateTime), mode, r.Status,
					len(r.Videos), r.Updated(), r.Duration().Round(time.Second))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show (0 = all)")
	cmd.Flags().StringVar(&videoID, "video", "", "Show every result recorded for a video")

	return cmd
}

func languages(v storage.VideoResult) string {
	if len(v.Languages) == 0 {
		return "-"
	}
	codes := make([]string, len(v.Languages))
	for i, l := range v.Languages {
		codes[i] = l.Language
	}
	return strings.Join(codes, ",")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
