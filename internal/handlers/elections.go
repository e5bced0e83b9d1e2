package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/wcivf/internal/model"
	"github.com/jjenkins/wcivf/internal/store"
	"github.com/sirupsen/logrus"
)

// ElectionResponse is the JSON shape of an election
type ElectionResponse struct {
	Slug              string          `json:"slug"`
	Name              string          `json:"name"`
	ElectionDate      string          `json:"election_date"`
	ElectionType      string          `json:"election_type"`
	Current           bool            `json:"current"`
	Description       string          `json:"description,omitempty"`
	ElectionWeight    int             `json:"election_weight"`
	UsesLists         bool            `json:"uses_lists"`
	VotingSystem      string          `json:"voting_system,omitempty"`
	AnyNonByElections bool            `json:"any_non_by_elections"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
}

// BallotSummary is a ballot as listed under its election
type BallotSummary struct {
	BallotPaperID string `json:"ballot_paper_id"`
	PostID        string `json:"post_id"`
	WinnerCount   *int64 `json:"winner_count"`
	Cancelled     bool   `json:"cancelled"`
	Locked        bool   `json:"locked"`
}

// ElectionDetailResponse is an election with its ballots
type ElectionDetailResponse struct {
	ElectionResponse
	Ballots []BallotSummary `json:"ballots"`
}

func newElectionResponse(e *model.Election) ElectionResponse {
	r := ElectionResponse{
		Slug:              e.Slug,
		Name:              e.Name,
		ElectionDate:      e.ElectionDate.Format("2006-01-02"),
		ElectionType:      string(e.ElectionType),
		Current:           e.Current,
		Description:       e.Description,
		ElectionWeight:    e.ElectionWeight,
		UsesLists:         e.UsesLists,
		AnyNonByElections: e.AnyNonByElections,
	}
	if e.VotingSystemSlug.Valid {
		r.VotingSystem = e.VotingSystemSlug.String
	}
	if model.HasMetadata(e.Metadata) {
		r.Metadata = e.Metadata
	}
	return r
}

// ElectionsHandler lists elections, newest first. ?current=true restricts to current elections.
func ElectionsHandler(repo store.Repository, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		currentOnly := c.QueryBool("current", false)

		elections, err := repo.ListElections(c.UserContext(), currentOnly)
		if err != nil {
			log.WithError(err).Error("Error loading elections")
			return fiber.NewError(fiber.StatusInternalServerError, "Error loading elections")
		}

		out := make([]ElectionResponse, 0, len(elections))
		for i := range elections {
			out = append(out, newElectionResponse(&elections[i]))
		}

		return c.JSON(fiber.Map{
			"count":   len(out),
			"results": out,
		})
	}
}

// ElectionDetailHandler returns one election and its ballots
func ElectionDetailHandler(repo store.Repository, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		slug := c.Params("slug")

		election, err := repo.GetElectionBySlug(ctx, slug)
		if err != nil {
			log.WithError(err).WithField("slug", slug).Error("Error loading election")
			return fiber.NewError(fiber.StatusInternalServerError, "Error loading election")
		}
		if election == nil {
			return fiber.NewError(fiber.StatusNotFound, "Election not found")
		}

		ballots, err := repo.ListBallotsForElection(ctx, election.ID)
		if err != nil {
			log.WithError(err).WithField("slug", slug).Error("Error loading ballots")
			return fiber.NewError(fiber.StatusInternalServerError, "Error loading ballots")
		}

		resp := ElectionDetailResponse{
			ElectionResponse: newElectionResponse(election),
			Ballots:          make([]BallotSummary, 0, len(ballots)),
		}
		for _, b := range ballots {
			resp.Ballots = append(resp.Ballots, BallotSummary{
				BallotPaperID: b.BallotPaperID,
				PostID:        b.PostID,
				WinnerCount:   nullInt(b.WinnerCount.Int64, b.WinnerCount.Valid),
				Cancelled:     b.Cancelled,
				Locked:        b.Locked,
			})
		}

		return c.JSON(resp)
	}
}

func nullInt(v int64, valid bool) *int64 {
	if !valid {
		return nil
	}
	return &v
}
