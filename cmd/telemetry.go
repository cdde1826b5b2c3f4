package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/constellation/internal/telemetry"
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "View the JSONL telemetry events of a run",
	Long: `Reads and formats the telemetry file of the given run, or of the most recent
run when --run is omitted. With --follow (-f) new events are printed as they
are appended, like tail -f.`,
	RunE: runTelemetry,
}

func init() {
	telemetryCmd.Flags().String("run", "", "run ID to view (default: most recent)")
	telemetryCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	telemetryCmd.Flags().String("kind", "", "only events of this kind")
	rootCmd.AddCommand(telemetryCmd)
}

func runTelemetry(cmd *cobra.Command, _ []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	runID, _ := cmd.Flags().GetString("run")
	follow, _ := cmd.Flags().GetBool("follow")
	kind, _ := cmd.Flags().GetString("kind")

	path, err := resolveTelemetryPath(s.pipeline().Path(s.cfg.TelemetryDir), runID)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(f)
	printLines(out, reader, kind)
	if !follow {
		return nil
	}

	ctx, cancel := setupSignalContext(s.printer)
	defer cancel()
	return tailFollow(ctx, out, reader, path, kind)
}

// printLines prints every complete line currently available from r.
func printLines(w io.Writer, r *bufio.Reader, kind string) {
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			printEvent(w, line, kind)
		}
		if err != nil {
			return
		}
	}
}

// tailFollow watches the file with fsnotify and prints appended events until
// ctx is canceled.
func tailFollow(ctx context.Context, w io.Writer, r *bufio.Reader, path, kind string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("telemetry: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("telemetry: watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) {
				printLines(w, r, kind)
			}
		}
	}
}

// printEvent decodes a JSONL line and prints a human-readable representation.
func printEvent(w io.Writer, line, kind string) {
	var evt telemetry.Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		fmt.Fprintf(w, "??? %s\n", line)
		return
	}
	if kind != "" && evt.Kind != kind {
		return
	}

	parts := []string{fmt.Sprintf("[%s]", evt.Timestamp.Local().Format(time.TimeOnly)), evt.Kind}
	if evt.Module != "" {
		parts = append(parts, "module="+evt.Module)
	}
	if evt.Data != nil {
		if m, ok := evt.Data.(map[string]any); ok {
			parts = append(parts, formatDataMap(m))
		} else {
			data, _ := json.Marshal(evt.Data)
			parts = append(parts, string(data))
		}
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}

// formatDataMap formats a data map as key=value pairs sorted by key.
func formatDataMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, m[k])
	}
	return b.String()
}

// resolveTelemetryPath finds the JSONL file for runID in dir, or the most
// recently modified one if runID is empty.
func resolveTelemetryPath(dir, runID string) (string, error) {
	if runID != "" {
		path := telemetry.PathFor(dir, runID)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("telemetry: no file for run %q: %w", runID, err)
		}
		return path, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("telemetry: cannot read %s: %w", dir, err)
	}

	var latest string
	var latestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || fi.ModTime().After(latestMod) {
			latest, latestMod = e.Name(), fi.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("telemetry: no JSONL files in %s", dir)
	}
	return filepath.Join(dir, latest), nil
}
