package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/cache"
	"github.com/connascence/conscan/internal/constants"
	"github.com/connascence/conscan/internal/policy"
	"github.com/connascence/conscan/service"
)

var (
	watchPolicy     string
	watchPolicyFile string
	watchDebounce   time.Duration
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [path...]",
		Short: "Re-analyze files as they change",
		Long: `Watch the given paths and re-analyze changed Python files. Unchanged
files are served from the result cache, so each save re-evaluates only
what was edited.

Examples:
  conscan watch src/
  conscan watch --policy strict src/
  conscan watch --debounce 500ms src/`,
		RunE: runWatch,
	}

	cmd.Flags().StringVarP(&watchPolicy, "policy", "p", constants.PolicyStandard,
		"Policy to score against: "+strings.Join(policy.PresetNames(), ", "))
	cmd.Flags().StringVar(&watchPolicyFile, "policy-file", "",
		"Path to a custom policy YAML file")
	cmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond,
		"Quiet period before re-analyzing a burst of changes")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}

	engine := policy.NewEngine()
	policyName, err := resolvePolicySelection(engine, watchPolicy, watchPolicyFile,
		cmd.Flags().Changed("policy"), args[0])
	if err != nil {
		return err
	}
	if _, err := engine.Resolve(policyName); err != nil {
		return err
	}

	svc := service.NewAnalysisService(engine, cache.NewResultCache(cache.DefaultCapacity))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initial full pass primes the cache
	report, err := svc.Analyze(ctx, domain.AnalyzeRequest{
		Paths:      args,
		PolicyName: policyName,
	})
	if err != nil {
		return err
	}
	printWatchReport(report)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, root := range args {
		if err := watchRecursive(watcher, root); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "Watching %s (policy %s, Ctrl-C to stop)\n",
		strings.Join(args, ", "), policyName)

	var mu sync.Mutex
	pending := make(map[string]bool)
	var timer *time.Timer

	flush := func() {
		mu.Lock()
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = make(map[string]bool)
		mu.Unlock()
		if len(paths) == 0 {
			return
		}
		sort.Strings(paths)
		reanalyze(ctx, svc, policyName, paths)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !isWatchExcluded(event.Name) {
						_ = watchRecursive(watcher, event.Name)
					}
					continue
				}
			}
			if filepath.Ext(event.Name) != ".py" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			mu.Lock()
			pending[event.Name] = true
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, flush)
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}

func watchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isWatchExcluded(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func isWatchExcluded(path string) bool {
	base := filepath.Base(path)
	for _, d := range constants.DefaultExcludeDirs {
		if base == d {
			return true
		}
	}
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

func reanalyze(ctx context.Context, svc *service.AnalysisServiceImpl, policyName string, paths []string) {
	existing := paths[:0]
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return
	}

	report, err := svc.Analyze(ctx, domain.AnalyzeRequest{
		Paths:      existing,
		PolicyName: policyName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "re-analysis failed: %v\n", err)
		return
	}

	fmt.Printf("\n[%s] %d file(s) changed\n", time.Now().Format("15:04:05"), len(existing))
	printWatchReport(report)
}

func printWatchReport(report *domain.Report) {
	violations := report.Violations()
	if len(violations) == 0 && report.Summary.FilesFailed == 0 {
		fmt.Printf("clean: %d files, index %.1f\n",
			report.Summary.FilesAnalyzed, report.Summary.ConnascenceIndex)
		return
	}
	for _, f := range violations {
		fmt.Printf("  %s:%d [%s/%s] %s\n",
			f.Location.FilePath, f.Location.StartLine, f.Type, f.Severity, f.Message)
	}
	for _, f := range report.Failures() {
		fmt.Printf("  %s: %s\n", f.Location.FilePath, f.Message)
	}
	fmt.Printf("%d finding(s), index %.1f\n",
		len(violations), report.Summary.ConnascenceIndex)
}
