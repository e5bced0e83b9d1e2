package service

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPageSize = 200

	// isoLayout renders timestamps the way the registry expects for last_updated
	isoLayout = "2006-01-02T15:04:05.999999-07:00"

	snapshotPath = "/media/cached-api/latest/ballots-000001.json"
	ballotsPath  = "/api/next/ballots/"
)

// DefaultLastUpdated is used for incremental imports before any ballot has an upstream timestamp
var DefaultLastUpdated = time.Date(2021, 10, 27, 0, 0, 0, 0, time.UTC)

// ImportOptions configures one ballot import run. The zero value is a full import.
type ImportOptions struct {
	CurrentOnly          bool
	ExcludeCandidacies   bool
	ForceMetadata        bool
	ForceCurrentMetadata bool
	RecentlyUpdated      bool
	ForceUpdate          bool
	Params               url.Values
	BaseURL              string
	PageSize             int
}

// ImportPlan is what a run will fetch and which optional steps it runs
type ImportPlan struct {
	Params             url.Values
	URL                string
	FullImport         bool
	PrewarmMetadata    bool
	PrewarmCurrentOnly bool
	RunPostImportTasks bool
}

// BuildParams returns the registry query for opts. Any filter also sets page_size.
func BuildParams(opts ImportOptions, lastUpdated time.Time) url.Values {
	params := url.Values{}
	for k, v := range opts.Params {
		params[k] = slices.Clone(v)
	}

	if opts.CurrentOnly {
		params.Set("current", "True")
	}

	if opts.RecentlyUpdated {
		params.Set("last_updated", lastUpdated.Format(isoLayout))
	}

	if len(params) > 0 {
		pageSize := opts.PageSize
		if pageSize <= 0 {
			pageSize = defaultPageSize
		}
		params.Set("page_size", strconv.Itoa(pageSize))
	}

	return params
}

// PlanImport decides the fetch URL and optional steps for opts.
// A full import reads the bulk snapshot unless the registry is a local development server.
func PlanImport(opts ImportOptions, lastUpdated time.Time) ImportPlan {
	params := BuildParams(opts, lastUpdated)
	full := !opts.RecentlyUpdated && !opts.CurrentOnly && len(params) == 0

	plan := ImportPlan{
		Params:             params,
		FullImport:         full,
		PrewarmMetadata:    full || opts.CurrentOnly,
		PrewarmCurrentOnly: !opts.ForceMetadata,
		RunPostImportTasks: full || opts.CurrentOnly,
	}

	base := strings.TrimRight(opts.BaseURL, "/")
	switch {
	case full && !strings.HasPrefix(base, "http://localhost"):
		plan.URL = base + snapshotPath
	case len(params) == 0:
		plan.URL = base + ballotsPath
	default:
		plan.URL = base + ballotsPath + "?" + params.Encode()
	}

	return plan
}
