package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/taskflow/internal/dto"
	apierrors "github.com/yukikurage/taskflow/internal/errors"
	"github.com/yukikurage/taskflow/internal/services"
)

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
	}
}

// ListTeams returns every team with its leader and members
func (h *TeamHandler) ListTeams(c *gin.Context) {
	teams, err := h.teamService.ListTeams(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list teams")
		apierrors.InternalError(c, "Failed to fetch teams")
		return
	}

	teamDTOs := make([]dto.TeamDTO, len(teams))
	for i, team := range teams {
		teamDTOs[i] = dto.ToTeamDTO(team)
	}

	c.JSON(http.StatusOK, gin.H{
		"teams": teamDTOs,
	})
}
