package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/crimson-sun/worktally/internal/config"
	"github.com/crimson-sun/worktally/internal/connector"
	"github.com/crimson-sun/worktally/internal/connector/csvfile"
	"github.com/crimson-sun/worktally/internal/engine"
	"github.com/crimson-sun/worktally/internal/engine/classifier"
	"github.com/crimson-sun/worktally/internal/engine/duration"
	"github.com/crimson-sun/worktally/internal/engine/llm"
	"github.com/crimson-sun/worktally/internal/engine/onnxmodel"
	"github.com/crimson-sun/worktally/internal/model"
	"github.com/crimson-sun/worktally/internal/output"
	"github.com/crimson-sun/worktally/internal/output/async"
	"github.com/crimson-sun/worktally/internal/output/file"
	"github.com/crimson-sun/worktally/internal/output/multi"
	"github.com/crimson-sun/worktally/internal/output/slack"
	"github.com/crimson-sun/worktally/internal/output/sqlite"
	"github.com/crimson-sun/worktally/internal/output/stdout"
	"github.com/crimson-sun/worktally/internal/output/webhook"
	"github.com/crimson-sun/worktally/internal/pipeline"
)

func (f cliFlags) apply(cfg *config.Config) {
	if f.input != "" {
		cfg.Input.Path = f.input
	}
	if f.granularity != "" {
		cfg.Report.Granularity = f.granularity
	}
	if f.schedule != "" {
		cfg.Schedule = f.schedule
	}
}

// buildRequest turns the report config and the -start/-end flags into a
// pipeline request. A bound containing "-" is a date; otherwise a month
// number. A date range also bounds the month table by its months.
func buildRequest(rc config.ReportConfig, start, end string) (pipeline.Request, error) {
	req := pipeline.Request{Shares: rc.Shares}
	switch rc.Granularity {
	case "month":
		req.Granularities = []model.Granularity{model.ByMonth}
	case "date":
		req.Granularities = []model.Granularity{model.ByDate}
	default:
		req.Granularities = []model.Granularity{model.ByMonth, model.ByDate}
	}

	if start == "" && end == "" {
		return req, nil
	}
	if start == "" || end == "" {
		return req, fmt.Errorf("-start and -end must be given together")
	}

	if strings.Contains(start, "-") || strings.Contains(end, "-") {
		lo, err := model.ParseDate(start)
		if err != nil {
			return req, fmt.Errorf("-start: %w", err)
		}
		hi, err := model.ParseDate(end)
		if err != nil {
			return req, fmt.Errorf("-end: %w", err)
		}
		req.Dates = &pipeline.Range[model.Date]{Start: lo, End: hi}
		req.Months = &pipeline.Range[time.Month]{Start: lo.Month, End: hi.Month}
		return req, nil
	}

	lo, err := model.ParseMonth(start)
	if err != nil {
		return req, fmt.Errorf("-start: %w", err)
	}
	hi, err := model.ParseMonth(end)
	if err != nil {
		return req, fmt.Errorf("-end: %w", err)
	}
	req.Months = &pipeline.Range[time.Month]{Start: lo, End: hi}
	return req, nil
}

var errDisabled = errors.New("classifier disabled")

// buildClassifier returns the primary classifier and its cleanup. A model
// that fails to load degrades to keyword rules for the whole run.
func buildClassifier(cc config.ClassifierConfig) (classifier.Classifier, func()) {
	noop := func() {}
	switch cc.Provider {
	case "onnx":
		m, err := onnxmodel.Load(cc.ModelDir)
		if err != nil {
			slog.Warn("model unavailable, using keyword rules", "dir", cc.ModelDir, "error", err)
			return classifier.Unavailable{Reason: err}, noop
		}
		slog.Info("model loaded", "dir", cc.ModelDir, "labels", len(m.Labels()))
		return m, func() { m.Close() }
	case "anthropic":
		opts := []llm.Option{llm.WithTimeout(cc.Timeout)}
		if cc.AnthropicModel != "" {
			opts = append(opts, llm.WithModel(cc.AnthropicModel))
		}
		return llm.New(cc.AnthropicAPIKey, opts...), noop
	default:
		return classifier.Unavailable{Reason: errDisabled}, noop
	}
}

func buildEngine(cls classifier.Classifier, layout string) *engine.Engine {
	return engine.New(classifier.NewResolver(cls), duration.New(layout))
}

// buildOutputs wraps every configured sink in one fan-out output. Network
// sinks deliver in the background. The stdout renderer is only included
// when withStdout is set.
func buildOutputs(oc config.OutputConfig, withStdout bool) (output.Output, error) {
	format := output.ParseFormat(oc.Format)
	var outs []output.Output
	if withStdout {
		outs = append(outs, stdout.New(format, oc.Pretty))
	}
	if oc.FilePath != "" {
		f, err := file.New(oc.FilePath)
		if err != nil {
			return nil, err
		}
		outs = append(outs, f)
	}
	if oc.WebhookURL != "" {
		outs = append(outs, async.New(webhook.New(oc.WebhookURL)))
	}
	if oc.SQLitePath != "" {
		db, err := sqlite.Open(oc.SQLitePath)
		if err != nil {
			multi.New(outs...).Close()
			return nil, err
		}
		outs = append(outs, db)
	}
	if oc.SlackToken != "" && oc.SlackChannel != "" {
		outs = append(outs, async.New(slack.New(oc.SlackToken, oc.SlackChannel)))
	}
	return multi.New(outs...), nil
}

func csvOptions(ic config.InputConfig) csvfile.Options {
	return csvfile.Options{Encoding: ic.Encoding, Columns: columns(ic.Columns)}
}

func connectorConfig(ic config.InputConfig) connector.ConnectorConfig {
	cfg := connector.ConnectorConfig{
		Provider: ic.Provider,
		Path:     ic.Path,
		Encoding: ic.Encoding,
		Columns:  columns(ic.Columns),
	}
	if ic.Token != "" {
		cfg.Extra = map[string]string{"token": ic.Token}
	}
	return cfg
}

func columns(cc config.ColumnsConfig) connector.Columns {
	return connector.Columns{
		Subject:   cc.Subject,
		StartDate: cc.StartDate,
		StartTime: cc.StartTime,
		EndDate:   cc.EndDate,
		EndTime:   cc.EndTime,
	}.WithDefaults()
}
