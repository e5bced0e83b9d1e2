package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want FlexibleID
	}{
		{"string", `{"id": "9876"}`, "9876"},
		{"number", `{"id": 9876}`, "9876"},
		{"null", `{"id": null}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p PersonRecord
			require.NoError(t, json.Unmarshal([]byte(tt.in), &p))
			assert.Equal(t, tt.want, p.ID)
		})
	}

	var p PersonRecord
	assert.Error(t, json.Unmarshal([]byte(`{"id": true}`), &p))
}

func TestBallotRecordValidate(t *testing.T) {
	valid := BallotRecord{
		BallotPaperID: "local.sheffield.fulwood.2021-05-06",
		Election: ElectionRecord{
			ElectionID:   "local.sheffield.2021-05-06",
			ElectionDate: "2021-05-06",
		},
	}
	assert.NoError(t, valid.Validate())

	noID := valid
	noID.BallotPaperID = ""
	assert.True(t, errors.Is(noID.Validate(), ErrMalformedRecord))

	noElection := valid
	noElection.Election.ElectionID = ""
	assert.True(t, errors.Is(noElection.Validate(), ErrMalformedRecord))

	badDate := valid
	badDate.Election.ElectionDate = "06/05/2021"
	assert.True(t, errors.Is(badDate.Validate(), ErrMalformedRecord))
}

func TestBallotRecordDecodesUpstreamShape(t *testing.T) {
	doc := `{
		"ballot_paper_id": "local.sheffield.fulwood.2021-05-06",
		"election": {"election_id": "local.sheffield.2021-05-06", "name": "Sheffield local election",
			"election_date": "2021-05-06", "current": true, "party_lists_in_use": false},
		"post": {"id": null, "slug": "fulwood", "label": "Fulwood"},
		"winner_count": 1,
		"cancelled": false,
		"candidates_locked": true,
		"replaces": null,
		"last_updated": "2021-10-12T00:00:00+00:00",
		"candidacies": [{
			"person": {"id": 9876, "name": "Joe Bloggs"},
			"result": null,
			"elected": false,
			"party": {"legacy_slug": "party:53", "name": "Labour Party"},
			"party_name": "Labour Party",
			"party_description_text": "Labour Party",
			"party_list_position": null,
			"previous_party_affiliations": [{"legacy_slug": "ynmp-party:2"}]
		}]
	}`

	var b BallotRecord
	require.NoError(t, json.Unmarshal([]byte(doc), &b))
	require.NoError(t, b.Validate())

	assert.Equal(t, "fulwood", b.Post.ResolvedID())
	assert.Equal(t, "", b.Replaces)
	require.NotNil(t, b.WinnerCount)
	assert.Equal(t, 1, *b.WinnerCount)
	require.NotNil(t, b.LastUpdated)
	assert.Equal(t, 2021, b.LastUpdated.Year())
	require.Len(t, b.Candidacies, 1)
	assert.Equal(t, FlexibleID("9876"), b.Candidacies[0].Person.ID)
	assert.Nil(t, b.Candidacies[0].PartyListPosition)
	assert.Nil(t, b.Candidacies[0].VotesCast())
}

func TestCandidacyIsElected(t *testing.T) {
	yes, no := true, false
	votes := 1234

	fromResult := CandidacyRecord{Elected: &no, Result: &ResultRecord{Elected: &yes, NumBallots: &votes}}
	require.NotNil(t, fromResult.IsElected())
	assert.True(t, *fromResult.IsElected())
	assert.Equal(t, 1234, *fromResult.VotesCast())

	emptyResult := CandidacyRecord{Elected: &yes, Result: &ResultRecord{}}
	require.NotNil(t, emptyResult.IsElected())
	assert.True(t, *emptyResult.IsElected())

	unknown := CandidacyRecord{}
	assert.Nil(t, unknown.IsElected())
}

func TestDivisionTypeValidate(t *testing.T) {
	assert.NoError(t, DivisionType("").Validate())
	assert.NoError(t, DivisionType("DIW").Validate())
	assert.Equal(t, "District Ward", DivisionType("DIW").Description())

	err := DivisionType("NEW").Validate()
	assert.True(t, errors.Is(err, ErrInvalidDivisionType))

	p := &Post{YNRID: "foo", DivisionType: "XXX"}
	assert.ErrorIs(t, p.Validate(), ErrInvalidDivisionType)
}

func TestHasMetadata(t *testing.T) {
	assert.False(t, HasMetadata(nil))
	assert.False(t, HasMetadata(json.RawMessage("null")))
	assert.False(t, HasMetadata(json.RawMessage("{}")))
	assert.True(t, HasMetadata(json.RawMessage(`{"cancelled_election": {"title": "x"}}`)))
}

func TestElectionTypeFromID(t *testing.T) {
	assert.Equal(t, ElectionTypeLocal, ElectionTypeFromID("local.sheffield.2021-05-06"))
	assert.Equal(t, ElectionTypeParliamentary, ElectionTypeFromID("parl.2024-07-04"))
	assert.Equal(t, ElectionType("whoknows"), ElectionTypeFromID("whoknows"))
}
