package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/streamline-go/internal/domain"
	"github.com/yourusername/streamline-go/pkg/logger"
)

var (
	serverURL   string
	outputDir   string
	noAutoStart bool
	verbose     bool
	rootCmd     = &cobra.Command{
		Use:   "streamline",
		Short: "Streamline CLI - download videos, audio, playlists and captions",
		Long:  `A command-line client for the Streamline server. Jobs run on the server; finished files are pulled into the output directory.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:5000", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", ".", "Directory for downloaded files")

	rootCmd.AddCommand(jobCommand("video [url]", "Download a video (best audio+video stream)", domain.MsgStartVideo))
	rootCmd.AddCommand(jobCommand("audio [url]", "Download the best audio-only stream", domain.MsgStartAudio))
	rootCmd.AddCommand(jobCommand("playlist [url]", "Download a playlist as one zip", domain.MsgStartPlaylist))
	rootCmd.AddCommand(jobCommand("captions [url]", "List caption tracks of a video", domain.MsgFetchCaptions))
	rootCmd.AddCommand(captionCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(logsCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "Number of jobs to show")
	logsCmd.Flags().StringP("date", "d", "", "Day to read (YYYY-MM-DD, default today)")
	logsCmd.Flags().StringP("query", "q", "", "Only show entries containing this text")
	logsCmd.Flags().IntP("limit", "n", 50, "Number of entries to show")
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// runJob follows one job until it finishes; Ctrl-C cancels it on the server
func runJob(event string, req domain.JobRequest) error {
	ensureServer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.NewCLI(verbose)
	defer log.Sync()
	log.Debug("Starting job",
		zap.String("server", serverURL),
		zap.String("event", event),
		zap.String("url", req.URL),
		zap.String("output", outputDir))

	return newJobClient(serverURL, outputDir, os.Stdout).run(ctx, event, req)
}

func jobCommand(use, short, event string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(event, domain.JobRequest{URL: args[0]})
		},
	}
}

var captionCmd = &cobra.Command{
	Use:   "caption [url] [code]",
	Short: "Download one caption track as SRT (see 'captions' for codes)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(domain.MsgDownloadCap, domain.JobRequest{URL: args[0], Code: args[1]})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search for videos",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		results, err := postSearch(serverURL, strings.Join(args, " "))
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TITLE\tDURATION\tURL")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%d:%02d\t%s\n", truncate(r.Title, 50), r.Duration/60, r.Duration%60, r.URL)
		}
		return w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		limit, _ := cmd.Flags().GetInt("limit")

		var resp struct {
			Jobs []domain.JobRecord `json:"jobs"`
		}
		if err := getJSON(serverURL, fmt.Sprintf("/api/v1/jobs?limit=%d", limit), &resp); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tSTATUS\tURL\tARTIFACT\tCREATED")
		for _, j := range resp.Jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				truncate(j.ID, 8),
				j.Kind,
				j.Status,
				truncate(j.URL, 40),
				j.ArtifactName,
				j.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show job statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var stats domain.JobStats
		if err := getJSON(serverURL, "/api/v1/jobs/stats", &stats); err != nil {
			return err
		}

		fmt.Println("Job Statistics:")
		fmt.Printf("  Total:      %d\n", stats.Total)
		fmt.Printf("  Running:    %d\n", stats.Running)
		fmt.Printf("  Completed:  %d\n", stats.Completed)
		fmt.Printf("  Failed:     %d\n", stats.Failed)
		fmt.Printf("  Cancelled:  %d\n", stats.Cancelled)
		fmt.Printf("  Delivered:  %d\n", stats.Delivered)
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [job|delivery|error]",
	Short: "View server category logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		date, _ := cmd.Flags().GetString("date")
		query, _ := cmd.Flags().GetString("query")
		limit, _ := cmd.Flags().GetInt("limit")

		params := url.Values{}
		params.Set("limit", fmt.Sprint(limit))
		if date != "" {
			params.Set("date", date)
		}
		if query != "" {
			params.Set("q", query)
		}

		var resp struct {
			Entries []logger.LogEntry `json:"entries"`
		}
		if err := getJSON(serverURL, "/api/v1/logs/"+url.PathEscape(args[0])+"?"+params.Encode(), &resp); err != nil {
			return err
		}

		for _, e := range resp.Entries {
			fmt.Printf("%s %-5s %s", e.Timestamp, strings.ToUpper(e.Level), e.Message)
			for k, v := range e.Fields {
				fmt.Printf(" %s=%v", k, v)
			}
			fmt.Println()
		}
		return nil
	},
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
