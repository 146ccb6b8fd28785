// Package convert orchestrates the full pipeline: parse, resolve the schema
// version, tabulate, render, and write edited rows back into documents.
package convert

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ecowise/idftab/internal/artifact"
	"github.com/ecowise/idftab/internal/checksum"
	"github.com/ecowise/idftab/internal/idd"
	"github.com/ecowise/idftab/internal/idf"
	"github.com/ecowise/idftab/internal/jobstore"
	"github.com/ecowise/idftab/internal/metrics"
	"github.com/ecowise/idftab/internal/sse"
	"github.com/ecowise/idftab/internal/tabulate"
)

// Service wires the pipeline to the schema catalog and the surrounding
// infrastructure. Jobs, artifacts, broker, and metrics are optional; a nil
// dependency simply skips that concern (the CLI runs with most of them nil).
type Service struct {
	catalog   *idd.Catalog
	jobs      jobstore.Store
	artifacts artifact.Store
	broker    *sse.Broker
	metrics   *metrics.Metrics
}

// NewService creates a conversion service over the given catalog.
func NewService(catalog *idd.Catalog, jobs jobstore.Store, artifacts artifact.Store, broker *sse.Broker, m *metrics.Metrics) *Service {
	return &Service{catalog: catalog, jobs: jobs, artifacts: artifacts, broker: broker, metrics: m}
}

// Versions returns the catalog's available version tags.
func (s *Service) Versions() []string {
	return s.catalog.Tags()
}

// ConvertRequest is one document to tabulate.
type ConvertRequest struct {
	Name         string // source file name, used for artifact keys and job records
	Text         string // raw IDF text
	Version      string // optional explicit version, overrides the declared tag
	AllSheetOnly bool   // render only the consolidated sheet
}

// Stats summarizes one conversion.
type Stats struct {
	Objects int `json:"objects"`
	Rows    int `json:"rows"`
	Types   int `json:"types"`
}

// ConvertResult is the outcome of a successful conversion.
type ConvertResult struct {
	JobID       string
	Version     string
	Warning     string
	Stats       Stats
	Output      *tabulate.Output
	ArtifactKey string
}

// Convert runs the full conversion pipeline for one document and renders
// the workbook artifact.
func (s *Service) Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	jobID := newJobID()

	doc, schema, warning, err := s.parseAndResolve(req.Text, req.Version)
	if err != nil {
		s.finishJob(ctx, jobstore.Record{
			ID: jobID, Kind: jobstore.KindConvert, Name: req.Name, Status: jobstore.StatusFailed,
			Detail: err.Error(), Checksum: checksum.SumString(req.Text),
		})
		return nil, err
	}

	rows := tabulate.Rows(doc, schema)
	out := tabulate.Build(rows)

	res := &ConvertResult{
		JobID:   jobID,
		Version: schema.Tag,
		Warning: warning,
		Stats:   Stats{Objects: len(doc.Instances), Rows: len(rows), Types: len(out.TypeOrder)},
		Output:  out,
	}

	if s.artifacts != nil {
		var buf bytes.Buffer
		if err := tabulate.RenderWorkbook(out, &buf, req.AllSheetOnly); err != nil {
			return nil, fmt.Errorf("convert: render workbook: %w", err)
		}
		key := jobID + "/" + workbookName(req.Name)
		if _, err := s.artifacts.Put(ctx, key, &buf, artifact.PutOptions{
			ContentType: "application/zip",
			Metadata:    map[string]string{"source": req.Name, "version": schema.Tag},
		}); err != nil {
			return nil, fmt.Errorf("convert: store workbook: %w", err)
		}
		res.ArtifactKey = key
	}

	s.finishJob(ctx, jobstore.Record{
		ID: jobID, Kind: jobstore.KindConvert, Name: req.Name, Version: schema.Tag,
		Objects: res.Stats.Objects, Rows: res.Stats.Rows, Status: jobstore.StatusCompleted,
		Warning: warning, ArtifactKey: res.ArtifactKey, Checksum: checksum.SumString(req.Text),
	})
	return res, nil
}

// ConvertAll converts independent documents in parallel. Results keep the
// request order; the first failure cancels the remaining conversions.
func (s *Service) ConvertAll(ctx context.Context, reqs []ConvertRequest) ([]*ConvertResult, error) {
	results := make([]*ConvertResult, len(reqs))
	g, gCtx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.Convert(gCtx, req)
			if err != nil {
				return fmt.Errorf("%s: %w", req.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateRequest carries an original document plus its edits, either as a
// full edited row set (diffed against the original tabulation) or as
// explicit edits.
type UpdateRequest struct {
	Name       string
	Text       string // original IDF text
	Version    string // optional explicit version
	EditedRows []tabulate.Row
	Edits      idf.ChangeSet // used when EditedRows is nil
	Verify     bool
}

// EditRecord reports one applied change for the update report.
type EditRecord struct {
	ObjectType string `json:"object_type"`
	ObjectName string `json:"object_name,omitempty"`
	FieldName  string `json:"field_name"`
	OldValue   string `json:"old_value"`
	NewValue   string `json:"new_value"`
}

// Report is the update statistics summary.
type Report struct {
	Total    int          `json:"total"`
	Applied  int          `json:"applied"`
	Failed   int          `json:"failed"`
	Edits    []EditRecord `json:"edits"`
	Warnings []string     `json:"warnings,omitempty"`
}

// UpdateResult is the outcome of a successful update.
type UpdateResult struct {
	JobID       string
	Version     string
	Report      Report
	Text        string
	ArtifactKey string
}

// Update applies edited rows to the original document and stores the
// rewritten IDF. Conflicts are surfaced whole as an idf.ConflictList; no
// partially updated text is ever produced or stored.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	jobID := newJobID()

	fail := func(err error) (*UpdateResult, error) {
		s.finishJob(ctx, jobstore.Record{
			ID: jobID, Kind: jobstore.KindUpdate, Name: req.Name, Status: jobstore.StatusFailed,
			Detail: err.Error(), Checksum: checksum.SumString(req.Text),
		})
		return nil, err
	}

	doc, schema, warning, err := s.parseAndResolve(req.Text, req.Version)
	if err != nil {
		return fail(err)
	}

	original := tabulate.Rows(doc, schema)
	changes := req.Edits
	if req.EditedRows != nil {
		changes, err = tabulate.Diff(original, req.EditedRows)
		if err != nil {
			return fail(err)
		}
	}

	newText, err := idf.Apply(doc, changes)
	if err != nil {
		return fail(err)
	}
	if req.Verify {
		if err := tabulate.Verify(doc, newText, schema, changes); err != nil {
			return fail(err)
		}
	}

	report := buildReport(doc, original, changes)
	if warning != "" {
		report.Warnings = append(report.Warnings, warning)
	}

	res := &UpdateResult{JobID: jobID, Version: schema.Tag, Report: report, Text: newText}

	if s.artifacts != nil {
		key := jobID + "/" + baseName(req.Name)
		if _, err := s.artifacts.Put(ctx, key, strings.NewReader(newText), artifact.PutOptions{
			ContentType: "text/plain; charset=utf-8",
			Metadata:    map[string]string{"source": req.Name, "version": schema.Tag},
		}); err != nil {
			return nil, fmt.Errorf("convert: store updated document: %w", err)
		}
		res.ArtifactKey = key
	}

	s.finishJob(ctx, jobstore.Record{
		ID: jobID, Kind: jobstore.KindUpdate, Name: req.Name, Version: schema.Tag,
		Objects: len(doc.Instances), Rows: len(original), Edits: report.Applied,
		Status: jobstore.StatusCompleted, Warning: warning,
		ArtifactKey: res.ArtifactKey, Checksum: checksum.SumString(req.Text),
	})
	return res, nil
}

// DetectResult reports a document's declared version and the schema the
// resolver would pick for it.
type DetectResult struct {
	Declared   string `json:"declared"`
	Normalized string `json:"normalized"`
	Suggested  string `json:"suggested"`
	Exact      bool   `json:"exact"`
}

// Detect extracts the declared version from a document and suggests the
// schema version that would be used, without running the full conversion.
func (s *Service) Detect(text string) (*DetectResult, error) {
	doc, err := idf.Parse(text)
	if err != nil {
		return nil, err
	}
	schema, warn, err := idd.Resolve(doc.VersionTag, s.catalog)
	if err != nil {
		return nil, err
	}
	return &DetectResult{
		Declared:   doc.VersionTag,
		Normalized: idd.NormalizeTag(doc.VersionTag),
		Suggested:  schema.Tag,
		Exact:      warn == nil,
	}, nil
}

// parseAndResolve is the shared front half of Convert and Update. An
// explicit version overrides the document's declared tag.
func (s *Service) parseAndResolve(text, explicitVersion string) (*idf.Document, *idd.SchemaVersion, string, error) {
	doc, err := idf.Parse(text)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ParseFailures.Inc()
		}
		return nil, nil, "", err
	}

	declared := doc.VersionTag
	if explicitVersion != "" {
		declared = explicitVersion
	}
	schema, warn, err := idd.Resolve(declared, s.catalog)
	if err != nil {
		return nil, nil, "", err
	}
	warning := ""
	if warn != nil {
		warning = warn.String()
	}
	return doc, schema, warning, nil
}

func buildReport(doc *idf.Document, original []tabulate.Row, changes idf.ChangeSet) Report {
	byRef := make(map[idf.Ref]*tabulate.Row, len(original))
	for i := range original {
		byRef[original[i].Ref] = &original[i]
	}

	report := Report{Total: len(changes), Applied: len(changes)}
	for _, e := range changes {
		rec := EditRecord{NewValue: e.NewValue}
		if row := byRef[e.Ref]; row != nil {
			rec.ObjectType = row.ObjectType
			rec.ObjectName = row.ObjectName
			rec.FieldName = row.FieldName
			rec.OldValue = row.Value
		} else if old, ok := doc.Value(e.Ref); ok {
			rec.OldValue = old
		}
		report.Edits = append(report.Edits, rec)
	}
	return report
}

// finishJob records the run and publishes its lifecycle event. Both sinks
// are best-effort: history must never fail the conversion itself.
func (s *Service) finishJob(ctx context.Context, rec jobstore.Record) {
	rec.CreatedAt = time.Now().UTC()
	if s.jobs != nil {
		_ = s.jobs.Put(ctx, rec)
	}
	if s.broker != nil {
		s.broker.PublishJobEvent(rec.Kind, rec.Status, rec.ID)
	}
	if s.metrics != nil {
		s.metrics.Operations.WithLabelValues(rec.Kind, rec.Status).Inc()
	}
}

func newJobID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func baseName(name string) string {
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "model.idf"
	}
	return name
}

func workbookName(name string) string {
	base := baseName(name)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base + ".zip"
}
