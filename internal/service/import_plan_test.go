package service

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const ynrBase = "https://candidates.democracyclub.org.uk"

func TestBuildParams(t *testing.T) {
	lastUpdated := time.Date(2021, 11, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		opts ImportOptions
		want url.Values
	}{
		{
			name: "no options",
			opts: ImportOptions{},
			want: url.Values{},
		},
		{
			name: "current only",
			opts: ImportOptions{CurrentOnly: true},
			want: url.Values{"current": {"True"}, "page_size": {"200"}},
		},
		{
			name: "recently updated",
			opts: ImportOptions{RecentlyUpdated: true},
			want: url.Values{"last_updated": {"2021-11-01T10:30:00+00:00"}, "page_size": {"200"}},
		},
		{
			name: "explicit params",
			opts: ImportOptions{Params: url.Values{"election_date": {"2021-05-06"}}},
			want: url.Values{"election_date": {"2021-05-06"}, "page_size": {"200"}},
		},
		{
			name: "custom page size",
			opts: ImportOptions{CurrentOnly: true, PageSize: 50},
			want: url.Values{"current": {"True"}, "page_size": {"50"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildParams(tt.opts, lastUpdated))
		})
	}
}

func TestBuildParamsDoesNotMutateOptions(t *testing.T) {
	params := url.Values{"election_date": {"2021-05-06"}}
	BuildParams(ImportOptions{Params: params, CurrentOnly: true}, DefaultLastUpdated)
	assert.Equal(t, url.Values{"election_date": {"2021-05-06"}}, params)
}

func TestLastUpdatedKeepsMicroseconds(t *testing.T) {
	ts := time.Date(2021, 11, 1, 10, 30, 0, 123456000, time.UTC)
	params := BuildParams(ImportOptions{RecentlyUpdated: true}, ts)
	assert.Equal(t, "2021-11-01T10:30:00.123456+00:00", params.Get("last_updated"))
}

func TestPlanImportURL(t *testing.T) {
	tests := []struct {
		name string
		opts ImportOptions
		want string
	}{
		{
			name: "full import uses snapshot",
			opts: ImportOptions{BaseURL: ynrBase},
			want: ynrBase + "/media/cached-api/latest/ballots-000001.json",
		},
		{
			name: "full import against localhost uses query api",
			opts: ImportOptions{BaseURL: "http://localhost:8000"},
			want: "http://localhost:8000/api/next/ballots/",
		},
		{
			name: "current only",
			opts: ImportOptions{BaseURL: ynrBase, CurrentOnly: true},
			want: ynrBase + "/api/next/ballots/?current=True&page_size=200",
		},
		{
			name: "explicit params",
			opts: ImportOptions{BaseURL: ynrBase, Params: url.Values{"election_date": {"2021-05-06"}}},
			want: ynrBase + "/api/next/ballots/?election_date=2021-05-06&page_size=200",
		},
		{
			name: "trailing slash on base",
			opts: ImportOptions{BaseURL: ynrBase + "/", CurrentOnly: true},
			want: ynrBase + "/api/next/ballots/?current=True&page_size=200",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanImport(tt.opts, DefaultLastUpdated).URL)
		})
	}
}

func TestPlanImportSteps(t *testing.T) {
	tests := []struct {
		name           string
		opts           ImportOptions
		full           bool
		prewarm        bool
		prewarmCurrent bool
		postTasks      bool
	}{
		{"full", ImportOptions{}, true, true, true, true},
		{"full forcing metadata", ImportOptions{ForceMetadata: true}, true, true, false, true},
		{"current only", ImportOptions{CurrentOnly: true}, false, true, true, true},
		{"recently updated", ImportOptions{RecentlyUpdated: true}, false, false, true, false},
		{"explicit params", ImportOptions{Params: url.Values{"election_date": {"2021-05-06"}}}, false, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanImport(tt.opts, DefaultLastUpdated)
			assert.Equal(t, tt.full, plan.FullImport)
			assert.Equal(t, tt.prewarm, plan.PrewarmMetadata)
			assert.Equal(t, tt.prewarmCurrent, plan.PrewarmCurrentOnly)
			assert.Equal(t, tt.postTasks, plan.RunPostImportTasks)
		})
	}
}
