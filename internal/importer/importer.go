package importer

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"go-rail-employee-registry/internal/apperr"
	"go-rail-employee-registry/internal/dto"
	"go-rail-employee-registry/internal/registry"
)

type Adder interface {
	Add(ctx context.Context, in registry.AddInput) (string, error)
}

type Options struct {
	// Concurrency bounds the number of in-flight adds. Defaults to 4.
	Concurrency int
	Logger      logrus.FieldLogger
}

type Added struct {
	Line   int    `json:"line"`
	ID     string `json:"id"`
	HRMSID string `json:"hrms_id"`
}

type Skipped struct {
	Line   int    `json:"line"`
	HRMSID string `json:"hrms_id,omitempty"`
	Reason string `json:"reason"`
}

type Result struct {
	Added   []Added   `json:"added"`
	Skipped []Skipped `json:"skipped"`
	Failed  []Skipped `json:"failed"`
}

// Run adds every row. Rows without a name or HRMS ID, rows repeating an
// HRMS ID seen earlier in the file and rows the registry refuses as invalid
// are skipped. Rejected writes are reported as failures. An unavailable data
// source aborts the run.
func Run(ctx context.Context, adder Adder, rows []Row, opts Options) (Result, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var (
		mu  sync.Mutex
		res Result
	)
	skip := func(line int, hrmsID, reason string) {
		mu.Lock()
		res.Skipped = append(res.Skipped, Skipped{Line: line, HRMSID: hrmsID, Reason: reason})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	seen := map[string]int{}
	for _, row := range rows {
		name := strings.TrimSpace(dto.FormatValue(row.Fields[dto.FieldEmployeeName]))
		hrmsID := strings.TrimSpace(dto.FormatValue(row.Fields[dto.FieldHRMSID]))
		if name == "" || hrmsID == "" {
			skip(row.Line, hrmsID, "missing Employee Name or HRMS ID")
			continue
		}
		if first, dup := seen[hrmsID]; dup {
			skip(row.Line, hrmsID, "duplicate HRMS ID in file (first on line "+strconv.Itoa(first)+")")
			continue
		}
		seen[hrmsID] = row.Line

		g.Go(func() error {
			id, err := adder.Add(gctx, registry.AddInput{Name: name, HRMSID: hrmsID, Fields: row.Fields})
			switch {
			case err == nil:
				mu.Lock()
				res.Added = append(res.Added, Added{Line: row.Line, ID: id, HRMSID: hrmsID})
				mu.Unlock()
				return nil
			case errors.Is(err, apperr.ErrValidationFailed):
				skip(row.Line, hrmsID, err.Error())
				return nil
			case errors.Is(err, apperr.ErrWriteRejected):
				logger.WithError(err).WithField("line", row.Line).Warn("[importer] row rejected")
				mu.Lock()
				res.Failed = append(res.Failed, Skipped{Line: row.Line, HRMSID: hrmsID, Reason: err.Error()})
				mu.Unlock()
				return nil
			default:
				return errors.Wrapf(err, "line %d", row.Line)
			}
		})
	}

	err := g.Wait()
	sort.Slice(res.Added, func(i, j int) bool { return res.Added[i].Line < res.Added[j].Line })
	sort.Slice(res.Skipped, func(i, j int) bool { return res.Skipped[i].Line < res.Skipped[j].Line })
	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].Line < res.Failed[j].Line })

	logger.WithFields(logrus.Fields{
		"added":   len(res.Added),
		"skipped": len(res.Skipped),
		"failed":  len(res.Failed),
	}).Info("[importer] run finished")
	return res, err
}
