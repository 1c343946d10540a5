package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ferret-index/ferret/pkg/metrics"
	"github.com/ferret-index/ferret/pkg/types"
)

// ErrNotADirectory means the indexing trigger was pointed at a path that
// does not exist or is not a directory.
var ErrNotADirectory = errors.New("not a directory")

// IndexDirectory scans path (non-recursively) for .txt files and
// dispatches one DocumentTask per non-empty file. Files are processed
// sequentially; a failure on one file does not abort the rest. The
// returned report lists successes, per-file failures with reasons, and
// the current pending count.
//
// Returns ErrNoWorkersAvailable without reading any file when no worker
// heartbeat is live.
func (d *Dispatcher) IndexDirectory(ctx context.Context, path string) (*types.DispatchReport, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, path)
	}

	live, err := d.HasLiveWorkers(ctx)
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, ErrNoWorkersAvailable
	}

	report := &types.DispatchReport{
		CampaignID:           uuid.NewString(),
		SuccessfulDispatches: []string{},
		FailedFiles:          []types.FailedFile{},
	}
	logger := d.logger.With().Str("campaign_id", report.CampaignID).Logger()
	logger.Info().Str("path", path).Msg("triggering local indexing")

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		report.FilesFound++
		docID := entry.Name()

		content, err := os.ReadFile(filepath.Join(path, docID))
		if err != nil {
			logger.Error().Err(err).Str("doc_id", docID).Msg("could not read document")
			report.FailedFiles = append(report.FailedFiles, types.FailedFile{
				Name:   docID,
				Reason: fmt.Sprintf("error reading file: %v", err),
			})
			metrics.DispatchFailures.WithLabelValues("read").Inc()
			continue
		}
		if strings.TrimSpace(string(content)) == "" {
			logger.Warn().Str("doc_id", docID).Msg("document is empty or whitespace only, skipping")
			report.FailedFiles = append(report.FailedFiles, types.FailedFile{
				Name:   docID,
				Reason: "skipped: file is empty or whitespace only",
			})
			metrics.DispatchFailures.WithLabelValues("empty").Inc()
			continue
		}

		task := types.DocumentTask{DocID: docID, Content: string(content)}
		if _, err := d.Dispatch(ctx, task); err != nil {
			logger.Error().Err(err).Str("doc_id", docID).Msg("failed to dispatch document")
			report.FailedFiles = append(report.FailedFiles, types.FailedFile{
				Name:   docID,
				Reason: fmt.Sprintf("failed to enqueue: %v", err),
			})
			metrics.DispatchFailures.WithLabelValues("enqueue").Inc()
			continue
		}
		report.SuccessfulDispatches = append(report.SuccessfulDispatches, docID)
		metrics.TasksDispatched.Inc()
	}

	report.DocsPending = d.pending.Len()
	metrics.DocsPending.Set(float64(report.DocsPending))
	logger.Info().
		Int("files_found", report.FilesFound).
		Int("dispatched", len(report.SuccessfulDispatches)).
		Int("failed", len(report.FailedFiles)).
		Msg("indexing trigger complete")
	return report, nil
}
