package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/truthlayer/internal/model"
)

// Runner verifies one report's text
type Runner interface {
	Run(ctx context.Context, reportText string) (*model.TrustReport, error)
}

// ReportJob verifies one report file
type ReportJob struct {
	Index    int
	Path     string
	Runner   Runner
	MaxBytes int64
	Timeout  time.Duration
}

// Execute reads the report file and runs it through the pipeline
func (j *ReportJob) Execute(ctx context.Context) Result {
	start := time.Now()
	result := &BatchResult{Index: j.Index, Path: j.Path}

	text, err := readReport(j.Path, j.MaxBytes)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	result.Report, result.Error = j.Runner.Run(ctx, text)
	result.Duration = time.Since(start)
	return result
}

// BatchResult is the outcome for one report file
type BatchResult struct {
	Index    int
	Path     string
	Report   *model.TrustReport
	Error    error
	Duration time.Duration
}

// GetError returns the error from the batch result
func (r *BatchResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies many report files concurrently
type BatchProcessor struct {
	runner      Runner
	concurrency int
	maxBytes    int64
	timeout     time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxBytes <= 0 means no size cap; timeout <= 0 means no per-report deadline.
func NewBatchProcessor(runner Runner, concurrency int, maxBytes int64, timeout time.Duration) *BatchProcessor {
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
		maxBytes:    maxBytes,
		timeout:     timeout,
	}
}

// ProcessFiles verifies each report file. Results come back in input order.
// onResult, if non-nil, is called as each report completes.
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string, onResult func(*BatchResult)) []*BatchResult {
	if len(paths) == 0 {
		return []*BatchResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		for i, path := range paths {
			job := &ReportJob{
				Index:    i,
				Path:     path,
				Runner:   b.runner,
				MaxBytes: b.maxBytes,
				Timeout:  b.timeout,
			}
			if !pool.Submit(job) {
				break
			}
		}
		pool.CloseAndWait()
	}()

	results := make([]*BatchResult, 0, len(paths))
	done := make(map[int]bool, len(paths))
	for r := range pool.Results() {
		br := r.(*BatchResult)
		done[br.Index] = true
		results = append(results, br)
		if onResult != nil {
			onResult(br)
		}
	}

	// Reports never started because ctx ended still get a result
	for i, path := range paths {
		if !done[i] {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results = append(results, &BatchResult{Index: i, Path: path, Error: err})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}

// ProcessListFile reads report paths from a list file and verifies them
func (b *BatchProcessor) ProcessListFile(ctx context.Context, listPath string, onResult func(*BatchResult)) ([]*BatchResult, error) {
	paths, err := ReadListFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read report list: %w", err)
	}

	return b.ProcessFiles(ctx, paths, onResult), nil
}

// ReadListFile reads report paths from a file (one per line).
// Relative paths resolve against the list file's directory.
func ReadListFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	baseDir := filepath.Dir(filePath)

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(baseDir, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}

// reportExtensions are the file types picked up when expanding a directory
var reportExtensions = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// ExpandInputs turns files and directories into a sorted list of report files.
// Directories contribute their .md, .markdown and .txt files recursively.
func ExpandInputs(inputs []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", input, err)
		}

		if !info.IsDir() {
			add(input)
			continue
		}

		var found []string
		err = filepath.WalkDir(input, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && reportExtensions[strings.ToLower(filepath.Ext(path))] {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", input, err)
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}

	return paths, nil
}

// readReport loads a report file, refusing files above maxBytes
func readReport(path string, maxBytes int64) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open report: %w", err)
	}
	defer func() { _ = file.Close() }()

	var r io.Reader = file
	if maxBytes > 0 {
		r = io.LimitReader(file, maxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read report: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", fmt.Errorf("report %s exceeds %d bytes", path, maxBytes)
	}

	return string(data), nil
}
