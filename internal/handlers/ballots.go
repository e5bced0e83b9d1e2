package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/wcivf/internal/model"
	"github.com/jjenkins/wcivf/internal/store"
	"github.com/sirupsen/logrus"
)

// PostResponse is the JSON shape of a post
type PostResponse struct {
	ID                  string `json:"id"`
	Label               string `json:"label"`
	Territory           string `json:"territory,omitempty"`
	OrganisationType    string `json:"organisation_type,omitempty"`
	DivisionType        string `json:"division_type,omitempty"`
	DivisionDescription string `json:"division_description,omitempty"`
}

// CandidacyResponse is one candidacy on a ballot
type CandidacyResponse struct {
	PersonID         string   `json:"person_id"`
	PersonName       string   `json:"person_name"`
	PartyID          string   `json:"party_id,omitempty"`
	PartyName        string   `json:"party_name,omitempty"`
	PartyDescription string   `json:"party_description_text,omitempty"`
	ListPosition     *int64   `json:"list_position"`
	Elected          *bool    `json:"elected"`
	VotesCast        *int64   `json:"votes_cast"`
	PreviousParties  []string `json:"previous_party_affiliations"`
}

// BallotResponse is a ballot with its election, post, replacement and candidacies
type BallotResponse struct {
	BallotPaperID string              `json:"ballot_paper_id"`
	Election      ElectionResponse    `json:"election"`
	Post          PostResponse        `json:"post"`
	WinnerCount   *int64              `json:"winner_count"`
	Contested     bool                `json:"contested"`
	Locked        bool                `json:"locked"`
	Cancelled     bool                `json:"cancelled"`
	ReplacedBy    string              `json:"replaced_by,omitempty"`
	VotingSystem  string              `json:"voting_system,omitempty"`
	Metadata      json.RawMessage     `json:"metadata,omitempty"`
	Candidacies   []CandidacyResponse `json:"candidacies"`
}

func newBallotResponse(d *model.BallotDetail) BallotResponse {
	r := BallotResponse{
		BallotPaperID: d.BallotPaperID,
		Election:      newElectionResponse(&d.Election),
		Post: PostResponse{
			ID:                  d.Post.YNRID,
			Label:               d.Post.Label,
			Territory:           d.Post.Territory,
			OrganisationType:    d.Post.OrganisationType,
			DivisionType:        string(d.Post.DivisionType),
			DivisionDescription: d.Post.DivisionType.Description(),
		},
		WinnerCount:  nullInt(d.WinnerCount.Int64, d.WinnerCount.Valid),
		Contested:    d.Contested,
		Locked:       d.Locked,
		Cancelled:    d.Cancelled,
		ReplacedBy:   d.ReplacedByPaperID.String,
		VotingSystem: d.VotingSystemSlug.String,
		Candidacies:  make([]CandidacyResponse, 0, len(d.Candidacies)),
	}
	if model.HasMetadata(d.Metadata) {
		r.Metadata = d.Metadata
	}

	for _, c := range d.Candidacies {
		cr := CandidacyResponse{
			PersonID:         c.PersonYNRID,
			PersonName:       c.PersonName,
			PartyID:          c.PartyID,
			PartyName:        c.PartyName,
			PartyDescription: c.PartyDescriptionText,
			ListPosition:     nullInt(c.ListPosition.Int64, c.ListPosition.Valid),
			VotesCast:        nullInt(c.VotesCast.Int64, c.VotesCast.Valid),
			PreviousParties:  c.PreviousPartyIDs,
		}
		if c.Elected.Valid {
			elected := c.Elected.Bool
			cr.Elected = &elected
		}
		if cr.PreviousParties == nil {
			cr.PreviousParties = []string{}
		}
		r.Candidacies = append(r.Candidacies, cr)
	}

	return r
}

// BallotDetailHandler returns one ballot by ballot paper id
func BallotDetailHandler(repo store.Repository, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("ballot_paper_id")

		detail, err := repo.GetBallotDetail(c.UserContext(), id)
		if err != nil {
			log.WithError(err).WithField("ballot", id).Error("Error loading ballot")
			return fiber.NewError(fiber.StatusInternalServerError, "Error loading ballot")
		}
		if detail == nil {
			return fiber.NewError(fiber.StatusNotFound, "Ballot not found")
		}

		return c.JSON(newBallotResponse(detail))
	}
}
